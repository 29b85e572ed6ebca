// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the public event listing (typically at "/api/events").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	return r
}

// AdminRoutes mounts the event editor (typically at "/api/admin/events").
func AdminRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAdmin(models.PermEvents))
	r.Get("/", h.ServeAdminList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeGet)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
