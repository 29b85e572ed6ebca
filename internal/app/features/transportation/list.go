// internal/app/features/transportation/list.go
package transportation

import (
	"errors"
	"net/http"

	transportstore "github.com/dalemusser/bloodlink/internal/app/store/transport"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/transportation-request. Admins see every
// request and may filter by ?status= and ?userId=; users see their own.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)
	pg := paging.Parse(r)
	f := transportstore.ListFilter{
		Status: query.Get(r, "status"),
		Limit:  int64(pg.Limit),
		Skip:   int64(pg.Skip),
	}
	if f.Status != "" && !transportstore.ValidStatus(f.Status) {
		respond.BadRequest(w, transportstore.ErrBadStatus.Error())
		return
	}

	if who.IsAdmin() {
		if !who.HasPermission(models.PermTransport) {
			respond.Forbidden(w, "You do not have permission to perform this action")
			return
		}
		if raw := query.Get(r, "userId"); raw != "" {
			uid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respond.BadRequest(w, "Invalid userId")
				return
			}
			f.UserID = &uid
		}
	} else {
		f.UserID = &who.ID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list transportation requests")
	defer cancel()

	out, err := h.Transport.List(ctx, f)
	if err != nil {
		respond.Internal(w, h.Log, "list transportation requests", err)
		return
	}
	respond.OK(w, map[string]any{"transportationRequests": out, "count": len(out)})
}

// ServeGet handles GET /api/transportation-request/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid transportation request id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get transportation request")
	defer cancel()

	tr, err := h.Transport.GetByID(ctx, id)
	if errors.Is(err, transportstore.ErrNotFound) || (err == nil && tr.UserID != who.ID && !who.HasPermission(models.PermTransport)) {
		respond.NotFound(w, "Transportation request not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "get transportation request", err)
		return
	}
	respond.OK(w, map[string]any{"transportationRequest": tr})
}
