// internal/app/features/authuser/routes.go
package authuser

import "github.com/go-chi/chi/v5"

// Routes mounts signup and login (typically at "/api/auth").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignup)
	r.Post("/login", h.HandleLogin)
	return r
}
