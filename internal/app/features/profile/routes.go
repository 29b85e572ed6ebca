// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the current user's account endpoints (typically at
// "/api/users/me").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireUser)
	r.Get("/", h.ServeProfile)
	r.Patch("/", h.HandleUpdate)
	r.Delete("/", h.HandleDelete)
	r.Post("/password", h.HandleChangePassword)
	return r
}
