// internal/app/features/eventregistrations/cancel.go
package eventregistrations

import (
	"errors"
	"net/http"

	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleCancel handles DELETE /api/event-registrations/{id}. Only the owner
// may cancel, only while the registration is pending, and the slot goes
// back to the event.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(urlID(r))
	if err != nil {
		respond.BadRequest(w, "Invalid registration id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "cancel registration")
	defer cancel()

	reg, err := h.Regs.Cancel(ctx, id, me.ID)
	switch {
	case errors.Is(err, eventregstore.ErrNotFound):
		respond.NotFound(w, "Registration not found")
		return
	case errors.Is(err, eventregstore.ErrNotCancellable):
		respond.BadRequest(w, "Only pending registrations can be cancelled.")
		return
	case err != nil:
		respond.Internal(w, h.Log, "cancel registration", err)
		return
	}

	if err := h.Events.ReleaseSlot(ctx, reg.EventID); err != nil {
		h.Log.Error("release slot after cancellation",
			zap.String("registration_id", reg.ID.Hex()),
			zap.String("event_id", reg.EventID.Hex()),
			zap.Error(err))
	}
	respond.OK(w, map[string]any{"message": "Registration cancelled", "registration": reg})
}
