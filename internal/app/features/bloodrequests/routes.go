// internal/app/features/bloodrequests/routes.go
package bloodrequests

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the blood request API (typically at "/api/blood-request").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	// The donation feed (?all=true) is readable without signing in.
	r.With(mw.LoadAny).Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireUser)
		pr.Post("/", h.HandleCreate)
		pr.Post("/accept", h.HandleAccept)
		pr.Get("/accepted", h.ServeMyAcceptances)
		pr.Get("/eligibility", h.ServeEligibility)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireSignedIn)
		pr.Get("/{id}", h.ServeGet)
		pr.Patch("/{id}", h.HandleUpdate)
	})
	return r
}
