// internal/app/features/eventregistrations/bloodgroup.go
package eventregistrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type bloodGroupRequest struct {
	BloodGroup string `json:"bloodGroup"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/event-registrations/{id}/blood-group                        |
| Records a lab-determined blood group and syncs it to the donor.              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleBloodGroup(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentAdmin(r)
	id, err := primitive.ObjectIDFromHex(urlID(r))
	if err != nil {
		respond.BadRequest(w, "Invalid registration id")
		return
	}

	var req bloodGroupRequest
	if err := respond.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	bg, ok := models.NormalizeBloodGroup(req.BloodGroup)
	if !ok {
		respond.BadRequest(w, "bloodGroup must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "record lab blood group")
	defer cancel()

	reg, err := h.Regs.SetLabBloodGroup(ctx, id, bg, admin.ID)
	if errors.Is(err, eventregstore.ErrNotFound) {
		respond.NotFound(w, "Registration not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "record lab blood group", err)
		return
	}

	var userID *primitive.ObjectID
	if !reg.UserID.IsZero() {
		err := h.Users.SetVerifiedBloodGroup(ctx, reg.UserID, bg)
		switch {
		case errors.Is(err, userstore.ErrNotFound):
			h.Log.Warn("blood group correction for missing user",
				zap.String("registration_id", reg.ID.Hex()),
				zap.String("user_id", reg.UserID.Hex()))
		case err != nil:
			respond.Internal(w, h.Log, "sync user blood group", err)
			return
		default:
			userID = &reg.UserID
			h.queueBloodGroupNotice(ctx, reg.ID, reg.UserID, bg)
		}
	}
	h.AuditLog.BloodGroupCorrected(ctx, r, admin.ID, reg.ID, userID, bg)

	respond.OK(w, map[string]any{
		"message":      "Blood group recorded",
		"userUpdated":  userID != nil,
		"registration": reg,
	})
}

func (h *Handler) queueBloodGroupNotice(ctx context.Context, regID, userID primitive.ObjectID, bg string) {
	err := h.Outbox.Enqueue(ctx, outbox.NotifyTask(models.Notification{
		RecipientID:   userID,
		RecipientType: models.RecipientUser,
		Title:         "Blood Group Verified",
		Message:       fmt.Sprintf("Your blood group has been verified by the lab as %s.", bg),
		Type:          models.NotifyBloodGroupUpdated,
		Data:          map[string]string{"registrationId": regID.Hex(), "bloodGroup": bg},
	}))
	if err != nil {
		h.Log.Error("queue blood group notice", zap.String("registration_id", regID.Hex()), zap.Error(err))
	}
}
