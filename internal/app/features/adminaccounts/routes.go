// internal/app/features/adminaccounts/routes.go
package adminaccounts

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts account management (typically at "/api/admin/accounts").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAdmin(models.PermAccounts))
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
