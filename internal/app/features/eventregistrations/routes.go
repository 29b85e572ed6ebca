// internal/app/features/eventregistrations/routes.go
package eventregistrations

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the registration API (typically at "/api/event-registrations").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.With(mw.RequireUser).Post("/", h.HandleCreate)
	r.With(mw.RequireAdmin(models.PermRegistrations), h.verifyLimit).Post("/qr-verify", h.HandleVerify)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)
		pr.Get("/{id}/qr", h.ServeQR)
	})

	r.With(mw.RequireUser).Delete("/{id}", h.HandleCancel)
	return r
}

// AdminRoutes mounts the back-office registration tools
// (typically at "/api/admin/event-registrations").
func AdminRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAdmin(models.PermRegistrations))

	r.Get("/", h.ServeList)
	r.With(h.verifyLimit).Post("/verify", h.HandleVerify)
	r.Patch("/{id}/blood-group", h.HandleBloodGroup)
	return r
}
