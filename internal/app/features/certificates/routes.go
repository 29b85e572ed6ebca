// internal/app/features/certificates/routes.go
package certificates

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the certificate API (typically at "/api/certificates").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Get("/verify", h.ServeVerify)
	r.Group(func(pr chi.Router) {
		pr.Use(mw.RequireUser)
		pr.Post("/generate", h.HandleGenerate)
		pr.Get("/generate", h.ServeDownload)
	})
	return r
}
