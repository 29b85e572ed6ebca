// internal/app/features/eventregistrations/list.go
package eventregistrations

import (
	"net/http"

	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listResponse struct {
	Registrations []models.EventRegistration `json:"registrations"`
	Count         int                        `json:"count"`
}

type checkUserResponse struct {
	Registered   bool                      `json:"registered"`
	Registration *models.EventRegistration `json:"registration,omitempty"`
}

// ServeList handles GET /api/event-registrations. The query selects the mode:
//
//	?registrationId=ID           one registration (owner or admin)
//	?eventId=ID&checkUser=true   the caller's registration for an event
//	?eventId=ID                  every registration for an event (admin)
//	(none)                       the caller's own registrations
//
// Every mode backfills missing check-in codes before responding.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if rid := query.Get(r, "registrationId"); rid != "" {
		h.serveOne(w, r, rid)
		return
	}

	who, _ := auth.Current(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list registrations")
	defer cancel()

	rawEvent := query.Get(r, "eventId")
	if rawEvent == "" {
		if who.IsAdmin() {
			respond.BadRequest(w, "eventId is required")
			return
		}
		regs, err := h.Regs.ListByUser(ctx, who.ID)
		if err != nil {
			respond.Internal(w, h.Log, "list user registrations", err)
			return
		}
		h.backfillAndRespond(w, r, regs)
		return
	}

	eventID, err := primitive.ObjectIDFromHex(rawEvent)
	if err != nil {
		respond.BadRequest(w, "Invalid event id")
		return
	}

	if query.Get(r, "checkUser") == "true" {
		if who.IsAdmin() {
			respond.BadRequest(w, "checkUser requires a user account")
			return
		}
		regs, err := h.Regs.ListByUser(ctx, who.ID)
		if err != nil {
			respond.Internal(w, h.Log, "list user registrations", err)
			return
		}
		for i := range regs {
			if regs[i].EventID != eventID {
				continue
			}
			if err := h.Regs.EnsureToken(ctx, &regs[i]); err != nil {
				respond.Internal(w, h.Log, "backfill registration token", err)
				return
			}
			respond.OK(w, checkUserResponse{Registered: true, Registration: &regs[i]})
			return
		}
		respond.OK(w, checkUserResponse{Registered: false})
		return
	}

	if !who.HasPermission(models.PermRegistrations) {
		respond.Forbidden(w, "Admin access required")
		return
	}
	regs, err := h.Regs.ListByEvent(ctx, eventID)
	if err != nil {
		respond.Internal(w, h.Log, "list event registrations", err)
		return
	}
	h.backfillAndRespond(w, r, regs)
}

// ServeGet handles GET /api/event-registrations/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	h.serveOne(w, r, urlID(r))
}

func (h *Handler) serveOne(w http.ResponseWriter, r *http.Request, rawID string) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get registration")
	defer cancel()

	reg, ok := h.loadVisible(ctx, w, r, rawID)
	if !ok {
		return
	}
	respond.OK(w, map[string]any{"registration": reg})
}

func (h *Handler) backfillAndRespond(w http.ResponseWriter, r *http.Request, regs []models.EventRegistration) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "backfill registration tokens")
	defer cancel()

	n, err := h.Regs.EnsureTokens(ctx, regs)
	if err != nil {
		respond.Internal(w, h.Log, "backfill registration tokens", err)
		return
	}
	if n > 0 {
		h.Log.Info("backfilled registration tokens", zap.Int("count", n))
	}
	respond.OK(w, listResponse{Registrations: regs, Count: len(regs)})
}
