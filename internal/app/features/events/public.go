// internal/app/features/events/public.go
package events

import (
	"errors"
	"net/http"

	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/events: active events, soonest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list events")
	defer cancel()

	out, err := h.Events.List(ctx, eventstore.ListFilter{
		Status: models.EventActive,
		Limit:  int64(pg.Limit),
		Skip:   int64(pg.Skip),
	})
	if err != nil {
		respond.Internal(w, h.Log, "list events", err)
		return
	}
	respond.OK(w, map[string]any{"events": viewsOf(out), "count": len(out)})
}

// ServeGet handles GET /api/events/{id}. Cancelled events stay visible so
// registrants can see what happened.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid event id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get event")
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, eventstore.ErrNotFound) {
		respond.NotFound(w, "Event not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "get event", err)
		return
	}
	respond.OK(w, map[string]any{"event": viewOf(*e)})
}
