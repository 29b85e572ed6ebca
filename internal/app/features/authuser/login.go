// internal/app/features/authuser/login.go
package authuser

import (
	"errors"
	"net/http"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const msgBadCredentials = "Invalid email or password"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                         |
| Unknown email and wrong password get the same answer.                        |
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user login")
	defer cancel()

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, req.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, req.Email, "user")
			respond.Error(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, auth.KindUser, req.Email)
		respond.Unauthorized(w, msgBadCredentials)
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load user", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, auth.KindUser, u.ID, u.Email)
		respond.Unauthorized(w, msgBadCredentials)
		return
	}

	token, err := h.Tokens.IssueUserToken(u.ID, u.Email, u.Name)
	if err != nil {
		respond.Internal(w, h.Log, "issue token", err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}

	h.AuditLog.LoginSuccess(ctx, r, auth.KindUser, u.ID, u.AuthProvider, u.Email)
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	respond.OK(w, authResponse{Message: "Login successful", Token: token, User: *u})
}
