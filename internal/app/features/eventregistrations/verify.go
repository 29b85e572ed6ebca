// internal/app/features/eventregistrations/verify.go
package eventregistrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/app/system/metrics"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/app/system/txn"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgAlreadyVerified = "This registration has already been verified."
	msgCancelled       = "This registration has been cancelled."
)

// verifyRequest accepts the scanned QR value under any of the names older
// clients send, or the registration id typed in by hand.
type verifyRequest struct {
	QRToken           string `json:"qrToken"`
	Token             string `json:"token"`
	AlphanumericToken string `json:"alphanumericToken"`
	RegistrationID    string `json:"registrationId"`
}

// selector returns the lookup, or a client-facing message when the body
// names no registration.
func (v verifyRequest) selector() (eventregstore.Selector, string) {
	if v.RegistrationID != "" {
		id, err := primitive.ObjectIDFromHex(v.RegistrationID)
		if err != nil {
			return eventregstore.Selector{}, "Invalid registration id"
		}
		return eventregstore.Selector{ID: id}, ""
	}
	for _, t := range []string{v.QRToken, v.Token, v.AlphanumericToken} {
		if tok := normalize.Token(t); tok != "" {
			return eventregstore.Selector{Token: tok}, ""
		}
	}
	return eventregstore.Selector{}, "qrToken or registrationId is required"
}

type verifyResponse struct {
	Message        string                   `json:"message"`
	DonationStatus string                   `json:"donationStatus"`
	TotalDonations int                      `json:"totalDonations"`
	Registration   models.EventRegistration `json:"registration"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/event-registrations/qr-verify                                      |
| Redeems a check-in code exactly once and credits the donor.                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentAdmin(r)

	var req verifyRequest
	if err := respond.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	sel, msg := req.selector()
	if msg != "" {
		respond.BadRequest(w, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "verify registration")
	defer cancel()

	at := time.Now().UTC()
	var (
		reg   *models.EventRegistration
		donor *models.User
	)
	err := txn.Run(ctx, h.Client, h.Log, func(tctx context.Context) error {
		reg, donor = nil, nil
		v, err := h.Regs.Verify(tctx, sel, admin.ID, at)
		if err != nil {
			return err
		}
		reg = v
		u, err := h.Users.RecordDonation(tctx, v.UserID, at)
		if errors.Is(err, userstore.ErrNotFound) {
			h.Log.Warn("verified registration has no user", zap.String("registration_id", v.ID.Hex()))
			return nil
		}
		if err != nil {
			return fmt.Errorf("record donation: %w", err)
		}
		donor = u
		return nil
	})
	if err != nil {
		h.verifyFailed(ctx, w, reg, at, err)
		return
	}

	metrics.RegistrationsVerified.Inc()
	total := 0
	if donor != nil {
		total = donor.TotalDonations
	}
	h.AuditLog.RegistrationVerified(ctx, r, admin.ID, reg.ID, reg.UserID, total)
	h.queueVerified(ctx, reg, donor)

	h.Log.Info("registration verified",
		zap.String("registration_id", reg.ID.Hex()),
		zap.String("user_id", reg.UserID.Hex()),
		zap.String("admin_id", admin.ID.Hex()),
		zap.Int("total_donations", total))

	respond.OK(w, verifyResponse{
		Message:        "Registration verified successfully",
		DonationStatus: reg.DonationStatus,
		TotalDonations: total,
		Registration:   *reg,
	})
}

// verifyFailed maps a failed verification to a response. When the
// registration was flipped but the donor update failed outside a
// transaction, the flip is undone so the code can be redeemed again.
func (h *Handler) verifyFailed(ctx context.Context, w http.ResponseWriter, reg *models.EventRegistration, at time.Time, err error) {
	switch {
	case errors.Is(err, eventregstore.ErrNotFound):
		metrics.VerifyRejected.WithLabelValues("not_found").Inc()
		respond.NotFound(w, "Registration not found")
		return
	case errors.Is(err, eventregstore.ErrAlreadyVerified):
		metrics.VerifyRejected.WithLabelValues("already_verified").Inc()
		respond.BadRequest(w, msgAlreadyVerified)
		return
	case errors.Is(err, eventregstore.ErrCancelled):
		metrics.VerifyRejected.WithLabelValues("cancelled").Inc()
		respond.BadRequest(w, msgCancelled)
		return
	}

	if reg != nil && reg.TokenVerified {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		defer cancel()
		if rerr := h.Regs.RevertVerify(rctx, reg.ID, at); rerr != nil {
			h.Log.Error("revert verification",
				zap.String("registration_id", reg.ID.Hex()), zap.Error(rerr))
		}
	}
	metrics.VerifyRejected.WithLabelValues("error").Inc()
	respond.Internal(w, h.Log, "verify registration", err)
}

func (h *Handler) queueVerified(ctx context.Context, reg *models.EventRegistration, donor *models.User) {
	if donor == nil {
		return
	}
	eventTitle := "the donation drive"
	if e, err := h.Events.GetByID(ctx, reg.EventID); err == nil {
		eventTitle = e.Title
	}

	tasks := []models.OutboxTask{outbox.NotifyTask(models.Notification{
		RecipientID:   donor.ID,
		RecipientType: models.RecipientUser,
		Title:         "Donation Verified",
		Message:       fmt.Sprintf("Thank you for donating at %s. You have now donated %d time(s).", eventTitle, donor.TotalDonations),
		Type:          models.NotifyDonationVerified,
		Data: map[string]string{
			"registrationId": reg.ID.Hex(),
			"eventId":        reg.EventID.Hex(),
		},
	})}
	if donor.Email != "" {
		tasks = append(tasks, outbox.EmailTask(mailer.BuildDonationVerified(donor.Email, mailer.VerifiedData{
			Name:           donor.Name,
			EventTitle:     eventTitle,
			TotalDonations: donor.TotalDonations,
		})))
	}
	if err := h.Outbox.Enqueue(ctx, tasks...); err != nil {
		h.Log.Error("queue verification notice",
			zap.String("registration_id", reg.ID.Hex()), zap.Error(err))
	}
}
