// internal/app/features/adminauth/login.go
package adminauth

import (
	"errors"
	"net/http"

	adminstore "github.com/dalemusser/bloodlink/internal/app/store/admins"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	Admin   models.Admin `json:"admin"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/login                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(w, r, &req, 4<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = normalize.Email(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.BadRequest(w, "email and password are required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin login")
	defer cancel()

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, req.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, req.Email, "admin")
			respond.Error(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	a, err := h.Admins.GetByEmail(ctx, req.Email)
	if errors.Is(err, adminstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, auth.KindAdmin, req.Email)
		respond.Unauthorized(w, "Invalid email or password")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load admin", err)
		return
	}
	if !auth.CheckPassword(a.PasswordHash, req.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, auth.KindAdmin, a.ID, a.Email)
		respond.Unauthorized(w, "Invalid email or password")
		return
	}

	token, err := h.Tokens.IssueAdminToken(a.ID, a.Email, a.Name, a.Role, a.Permissions)
	if err != nil {
		respond.Internal(w, h.Log, "issue token", err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}

	h.AuditLog.LoginSuccess(ctx, r, auth.KindAdmin, a.ID, "password", a.Email)
	h.Log.Info("admin logged in", zap.String("admin_id", a.ID.Hex()), zap.String("role", a.Role))
	respond.OK(w, loginResponse{Message: "Login successful", Token: token, Admin: *a})
}

// ServeMe handles GET /api/admin/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin me")
	defer cancel()

	a, err := h.Admins.GetByID(ctx, who.ID)
	if errors.Is(err, adminstore.ErrNotFound) {
		respond.Unauthorized(w, "Admin account no longer exists")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load admin", err)
		return
	}
	respond.OK(w, map[string]any{"admin": a})
}
