// internal/app/features/authuser/signup.go
package authuser

import (
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.uber.org/zap"
)

type signupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	BloodGroup string `json:"bloodGroup"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
}

func (req *signupRequest) validate() string {
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	rawPhone := strings.TrimSpace(req.Phone)
	req.Phone = normalize.Phone(req.Phone)
	req.Location = htmlsanitize.PlainText(req.Location)

	if req.Name == "" {
		return "name is required"
	}
	if !inputval.IsValidEmail(req.Email) {
		return "A valid email is required"
	}
	if len(req.Password) < auth.MinPasswordLength {
		return auth.ErrWeakPassword.Error()
	}
	if req.BloodGroup != "" {
		bg, ok := models.NormalizeBloodGroup(req.BloodGroup)
		if !ok {
			return "bloodGroup must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
		}
		req.BloodGroup = bg
	}
	if rawPhone != "" && !inputval.IsValidPhone(req.Phone) {
		return "phone is not a valid phone number"
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/signup                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.DecodeJSON(w, r, &req, 8<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respond.BadRequest(w, msg)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Internal(w, h.Log, "hash password", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "signup")
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		AuthProvider: userstore.ProviderPassword,
		BloodGroup:   req.BloodGroup,
		Phone:        req.Phone,
		Location:     req.Location,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.BadRequest(w, "An account with this email already exists.")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "create user", err)
		return
	}

	token, err := h.Tokens.IssueUserToken(u.ID, u.Email, u.Name)
	if err != nil {
		respond.Internal(w, h.Log, "issue token", err)
		return
	}

	h.AuditLog.Signup(ctx, r, u.ID, userstore.ProviderPassword)
	h.Log.Info("user signed up", zap.String("user_id", u.ID.Hex()))
	respond.Created(w, authResponse{Message: "Account created", Token: token, User: u})
}
