// internal/app/features/payments/routes.go
package payments

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the donor payment endpoints (typically at "/api/payments").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireUser)
	r.Get("/", h.ServeList)
	r.Post("/order", h.HandleCreateOrder)
	r.Post("/verify", h.HandleVerify)
	return r
}
