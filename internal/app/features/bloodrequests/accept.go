// internal/app/features/bloodrequests/accept.go
package bloodrequests

import (
	"context"
	"errors"
	"net/http"
	"time"

	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/eligibility"
	"github.com/dalemusser/bloodlink/internal/app/system/metrics"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/app/system/txn"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Messages the client shows verbatim.
const (
	msgAlreadyAccepted = "You have already accepted this blood request."
	msgGroupMismatch   = "Your blood group does not match this request."
	msgNotActive       = "This blood request is no longer active."
	msgTooSoon         = "You are not eligible to donate yet."
)

type acceptRequest struct {
	BloodRequestID      string `json:"bloodRequestId"`
	NeedsTransportation bool   `json:"needsTransportation"`
}

type acceptResponse struct {
	Message               string                        `json:"message"`
	Acceptance            models.AcceptedBloodRequest   `json:"acceptance"`
	TransportationRequest *models.TransportationRequest `json:"transportationRequest,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/blood-request/accept                                               |
| Checks, in order: request exists, request active, blood group matches,       |
| not already accepted, donation interval elapsed.                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)

	var req acceptRequest
	if err := respond.DecodeJSON(w, r, &req, 4<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	reqID, err := primitive.ObjectIDFromHex(req.BloodRequestID)
	if err != nil {
		respond.BadRequest(w, "A valid bloodRequestId is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept blood request")
	defer cancel()

	br, err := h.Requests.GetByID(ctx, reqID)
	if errors.Is(err, bloodrequeststore.ErrNotFound) {
		respond.NotFound(w, "Blood request not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load blood request", err)
		return
	}
	if br.Status != models.RequestActive {
		respond.BadRequest(w, msgNotActive)
		return
	}

	donor, err := h.Users.GetByID(ctx, me.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Unauthorized(w, "Account not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load donor", err)
		return
	}
	if donor.BloodGroup != br.BloodGroup {
		respond.BadRequest(w, msgGroupMismatch)
		return
	}

	exists, err := h.Acceptances.Exists(ctx, reqID, me.ID)
	if err != nil {
		respond.Internal(w, h.Log, "check existing acceptance", err)
		return
	}
	if exists {
		respond.BadRequest(w, msgAlreadyAccepted)
		return
	}

	if res := eligibility.Check(donor.LastDonationDate, time.Now().UTC(), h.IntervalDays); !res.CanDonate {
		metrics.EligibilityRejections.Inc()
		respond.ErrorWith(w, http.StatusBadRequest, msgTooSoon, map[string]any{
			"canDonate":        false,
			"daysElapsed":      res.DaysElapsed,
			"daysRemaining":    res.DaysRemaining,
			"nextEligibleDate": res.NextEligibleDate,
		})
		return
	}

	acc, tr, err := h.recordAcceptance(ctx, br, donor, req.NeedsTransportation)
	if errors.Is(err, acceptancestore.ErrAlreadyAccepted) {
		respond.BadRequest(w, msgAlreadyAccepted)
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "record acceptance", err)
		return
	}
	metrics.BloodRequestsAccepted.Inc()
	h.Outbox.Wake()

	h.Log.Info("blood request accepted",
		zap.String("blood_request_id", br.ID.Hex()),
		zap.String("acceptance_id", acc.ID.Hex()),
		zap.String("donor_id", donor.ID.Hex()),
		zap.Bool("needs_transportation", req.NeedsTransportation))

	respond.Created(w, acceptResponse{
		Message:               "Blood request accepted",
		Acceptance:            acc,
		TransportationRequest: tr,
	})
}

// recordAcceptance writes the acceptance, the optional transportation
// request, and the broadcast task together. Without transaction support the
// writes run in sequence and a failure removes whatever was written.
func (h *Handler) recordAcceptance(ctx context.Context, br *models.BloodRequest, donor *models.User, needsTransport bool) (models.AcceptedBloodRequest, *models.TransportationRequest, error) {
	var (
		acc models.AcceptedBloodRequest
		tr  *models.TransportationRequest
	)
	accID := primitive.NewObjectID()
	trID := primitive.NewObjectID()

	err := txn.Run(ctx, h.Client, h.Log, func(tctx context.Context) error {
		tr = nil
		a := models.AcceptedBloodRequest{
			ID:                  accID,
			BloodRequestID:      br.ID,
			UserID:              donor.ID,
			DonorName:           donor.Name,
			BloodGroup:          donor.BloodGroup,
			NeedsTransportation: needsTransport,
		}
		if needsTransport {
			a.TransportationRequestID = &trID
		}
		created, err := h.Acceptances.Create(tctx, a)
		if err != nil {
			return err
		}
		acc = created

		if needsTransport {
			t, err := h.Transport.Create(tctx, models.TransportationRequest{
				ID:                trID,
				UserID:            donor.ID,
				AcceptedRequestID: &accID,
				BloodRequestID:    &br.ID,
				PickupLocation:    models.PendingPickupLocation,
				DropLocation:      br.DropLocation(),
				HospitalName:      br.HospitalName,
				HospitalLocation:  br.HospitalLocation,
				Status:            models.TransportPending,
				CreatedBy:         models.CreatedBySystem,
			})
			if err != nil {
				return err
			}
			tr = &t
		}

		return h.Outbox.Stage(tctx, outbox.BroadcastAcceptedTask(*br, donor.ID, donor.Name))
	})
	if err != nil {
		if !errors.Is(err, acceptancestore.ErrAlreadyAccepted) {
			h.undoAcceptance(ctx, accID, trID, needsTransport)
		}
		return models.AcceptedBloodRequest{}, nil, err
	}
	return acc, tr, nil
}

// undoAcceptance removes a partially written acceptance. After an aborted
// transaction there is nothing to remove and the deletes are no-ops.
func (h *Handler) undoAcceptance(ctx context.Context, accID, trID primitive.ObjectID, needsTransport bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	if err := h.Acceptances.Delete(ctx, accID); err != nil && !errors.Is(err, acceptancestore.ErrNotFound) {
		h.Log.Error("undo acceptance", zap.String("acceptance_id", accID.Hex()), zap.Error(err))
	}
	if needsTransport {
		if err := h.Transport.Delete(ctx, trID); err != nil {
			h.Log.Error("undo transportation request", zap.String("transportation_id", trID.Hex()), zap.Error(err))
		}
	}
}

// ServeEligibility handles GET /api/blood-request/eligibility.
func (h *Handler) ServeEligibility(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "check eligibility")
	defer cancel()

	donor, err := h.Users.GetByID(ctx, me.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Unauthorized(w, "Account not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load donor", err)
		return
	}
	res := eligibility.Check(donor.LastDonationDate, time.Now().UTC(), h.IntervalDays)
	respond.OK(w, map[string]any{
		"canDonate":        res.CanDonate,
		"daysElapsed":      res.DaysElapsed,
		"daysRemaining":    res.DaysRemaining,
		"nextEligibleDate": res.NextEligibleDate,
		"intervalDays":     h.IntervalDays,
		"lastDonationDate": donor.LastDonationDate,
	})
}
