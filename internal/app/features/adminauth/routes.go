// internal/app/features/adminauth/routes.go
package adminauth

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// LoginRoutes mounts POST /login and GET /me (typically under "/api/admin").
func LoginRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.With(mw.RequireAdmin()).Get("/me", h.ServeMe)
	return r
}

// AdminRoutes mounts admin account management (typically at
// "/api/admin/admins"). Superadmins only.
func AdminRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireSuperAdmin)
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
