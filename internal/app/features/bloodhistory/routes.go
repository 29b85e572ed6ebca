// internal/app/features/bloodhistory/routes.go
package bloodhistory

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the history (typically at "/api/admin/blood-history").
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAdmin(models.PermBloodRequests))
	r.Get("/", h.ServeList)
	return r
}
