// internal/app/features/transportation/routes.go
package transportation

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the transportation API (typically at "/api/transportation-request").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeGet)
	})
	r.Group(func(ar chi.Router) {
		ar.Use(mw.RequireAdmin(models.PermTransport))
		ar.Patch("/", h.HandleUpdate)
		ar.Patch("/{id}", h.HandleUpdate)
	})
	return r
}
