// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit trail (typically at "/api/admin/audit").
// Access is restricted to superadmins.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireSuperAdmin)
	r.Get("/", h.ServeList)
	r.Get("/categories", h.ServeCategories)
	return r
}
