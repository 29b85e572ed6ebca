// internal/app/features/transportation/create.go
package transportation

import (
	"context"
	"errors"
	"net/http"

	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	UserID            string           `json:"userId"`
	AcceptedRequestID string           `json:"acceptedRequestId"`
	BloodRequestID    string           `json:"bloodRequestId"`
	PickupLocation    string           `json:"pickupLocation"`
	DropLocation      string           `json:"dropLocation"`
	PickupCoords      *models.GeoPoint `json:"pickupCoords"`
	DropCoords        *models.GeoPoint `json:"dropCoords"`
	HospitalName      string           `json:"hospitalName"`
	HospitalLocation  string           `json:"hospitalLocation"`
}

// clientErr is a failure reported to the caller as-is.
type clientErr struct {
	status int
	msg    string
}

func (e *clientErr) Error() string { return e.msg }

func badRequest(msg string) error { return &clientErr{http.StatusBadRequest, msg} }
func notFound(msg string) error   { return &clientErr{http.StatusNotFound, msg} }

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/transportation-request                                             |
| One route, two callers. An admin books a ride for a named user (userId).     |
| A donor books a ride for one of their own acceptances or requests            |
| (acceptedRequestId or bloodRequestId).                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)

	var req createRequest
	if err := respond.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	req.PickupLocation = htmlsanitize.PlainText(req.PickupLocation)
	req.DropLocation = htmlsanitize.PlainText(req.DropLocation)
	req.HospitalName = htmlsanitize.PlainText(req.HospitalName)
	req.HospitalLocation = htmlsanitize.PlainText(req.HospitalLocation)
	if req.PickupLocation == "" || req.DropLocation == "" {
		respond.BadRequest(w, "pickupLocation and dropLocation are required")
		return
	}
	if !validCoords(req.PickupCoords) || !validCoords(req.DropCoords) {
		respond.BadRequest(w, "Coordinates are out of range")
		return
	}

	tr := models.TransportationRequest{
		PickupLocation:   req.PickupLocation,
		DropLocation:     req.DropLocation,
		PickupCoords:     req.PickupCoords,
		DropCoords:       req.DropCoords,
		HospitalName:     req.HospitalName,
		HospitalLocation: req.HospitalLocation,
		Status:           models.TransportPending,
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create transportation request")
	defer cancel()

	var (
		acc *models.AcceptedBloodRequest
		err error
	)
	if who.IsAdmin() {
		if !who.HasPermission(models.PermTransport) {
			respond.Forbidden(w, "You do not have permission to perform this action")
			return
		}
		err = h.forUser(ctx, &req, &tr)
	} else {
		acc, err = h.forDonor(ctx, who.ID, &req, &tr)
	}
	var ce *clientErr
	if errors.As(err, &ce) {
		respond.Error(w, ce.status, ce.msg)
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "resolve transportation owner", err)
		return
	}

	created, err := h.Transport.Create(ctx, tr)
	if err != nil {
		respond.Internal(w, h.Log, "create transportation request", err)
		return
	}
	if acc != nil {
		if err := h.Acceptances.LinkTransportation(ctx, acc.ID, created.ID, linkStatus(acc.Status)); err != nil {
			h.Log.Warn("link transportation to acceptance",
				zap.String("acceptance_id", acc.ID.Hex()),
				zap.String("transportation_id", created.ID.Hex()),
				zap.Error(err))
		}
	}

	respond.Created(w, map[string]any{
		"message":               "Transportation request created",
		"transportationRequest": created,
	})
}

// forUser fills tr for the admin use-case.
func (h *Handler) forUser(ctx context.Context, req *createRequest, tr *models.TransportationRequest) error {
	if req.AcceptedRequestID != "" || req.BloodRequestID != "" {
		return badRequest("Admins book transportation by userId only")
	}
	uid, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return badRequest("A valid userId is required")
	}
	if _, err := h.Users.GetByID(ctx, uid); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return notFound("User not found")
		}
		return err
	}
	tr.UserID = uid
	tr.CreatedBy = models.CreatedByAdmin
	return nil
}

// forDonor fills tr for the donor use-case and returns the acceptance to
// link, if any.
func (h *Handler) forDonor(ctx context.Context, me primitive.ObjectID, req *createRequest, tr *models.TransportationRequest) (*models.AcceptedBloodRequest, error) {
	if req.UserID != "" {
		return nil, badRequest("userId can only be set by an admin")
	}
	tr.UserID = me
	tr.CreatedBy = models.CreatedByUser

	var acc *models.AcceptedBloodRequest
	switch {
	case req.AcceptedRequestID != "":
		id, err := primitive.ObjectIDFromHex(req.AcceptedRequestID)
		if err != nil {
			return nil, badRequest("Invalid acceptedRequestId")
		}
		acc, err = h.Acceptances.GetForUser(ctx, id, me)
		if errors.Is(err, acceptancestore.ErrNotFound) {
			return nil, notFound("Accepted request not found")
		}
		if err != nil {
			return nil, err
		}
		br, err := h.Requests.GetByID(ctx, acc.BloodRequestID)
		if err != nil && !errors.Is(err, bloodrequeststore.ErrNotFound) {
			return nil, err
		}
		reqID := acc.BloodRequestID
		tr.BloodRequestID = &reqID
		if br != nil {
			fillHospital(tr, br)
		}

	case req.BloodRequestID != "":
		id, err := primitive.ObjectIDFromHex(req.BloodRequestID)
		if err != nil {
			return nil, badRequest("Invalid bloodRequestId")
		}
		br, err := h.Requests.GetByID(ctx, id)
		if errors.Is(err, bloodrequeststore.ErrNotFound) {
			return nil, notFound("Blood request not found")
		}
		if err != nil {
			return nil, err
		}
		if br.RequesterID != me {
			acc, err = h.Acceptances.GetByRequestAndUser(ctx, id, me)
			if errors.Is(err, acceptancestore.ErrNotFound) {
				return nil, notFound("Blood request not found")
			}
			if err != nil {
				return nil, err
			}
		}
		tr.BloodRequestID = &id
		fillHospital(tr, br)

	default:
		return nil, badRequest("acceptedRequestId or bloodRequestId is required")
	}

	if acc != nil {
		accID := acc.ID
		tr.AcceptedRequestID = &accID
	}
	return acc, nil
}

// fillHospital defaults the hospital fields from the blood request.
func fillHospital(tr *models.TransportationRequest, br *models.BloodRequest) {
	if tr.HospitalName == "" {
		tr.HospitalName = br.HospitalName
	}
	if tr.HospitalLocation == "" {
		tr.HospitalLocation = br.HospitalLocation
	}
}

// linkStatus moves an acceptance to transportation_needed unless it is
// already further along.
func linkStatus(cur string) string {
	if models.AcceptanceAdvances(cur, models.AcceptanceTransportationNeeded) {
		return models.AcceptanceTransportationNeeded
	}
	return ""
}

func validCoords(p *models.GeoPoint) bool {
	if p == nil {
		return true
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
