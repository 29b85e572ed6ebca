// internal/app/features/donationimages/routes.go
package donationimages

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the donation image API (typically at "/api/donation-images").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireUser)
	r.Post("/", h.HandleUpload)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	return r
}
