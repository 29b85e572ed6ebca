// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the inbox for any signed-in caller (typically at
// "/api/notifications").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireSignedIn)
	mount(r, h)
	return r
}

// AdminRoutes mounts the same inbox behind an admin check (typically at
// "/api/admin/notifications").
func AdminRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAdmin())
	mount(r, h)
	return r
}

func mount(r chi.Router, h *Handler) {
	r.Get("/", h.ServeList)
	r.Patch("/{id}/read", h.HandleMarkRead)
	r.Post("/read-all", h.HandleMarkAllRead)
}
