// internal/app/features/profile/profile.go
package profile

import (
	"errors"
	"net/http"
	"strings"
	"time"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/eligibility"
	"github.com/dalemusser/bloodlink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.uber.org/zap"
)

type profileResponse struct {
	User        models.User        `json:"user"`
	Eligibility eligibility.Result `json:"eligibility"`
}

func (h *Handler) respondProfile(w http.ResponseWriter, u *models.User) {
	respond.OK(w, profileResponse{
		User:        *u,
		Eligibility: eligibility.Check(u.LastDonationDate, time.Now().UTC(), h.IntervalDays),
	})
}

// ServeProfile handles GET /api/users/me.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get profile")
	defer cancel()

	u, err := h.Users.GetByID(ctx, who.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "get profile", err)
		return
	}
	h.respondProfile(w, u)
}

type updateRequest struct {
	Name               *string `json:"name"`
	BloodGroup         *string `json:"bloodGroup"`
	Location           *string `json:"location"`
	Phone              *string `json:"phone"`
	HasDisease         *bool   `json:"hasDisease"`
	DiseaseDescription *string `json:"diseaseDescription"`
}

func (req updateRequest) toUpdate() (userstore.ProfileUpdate, string) {
	var upd userstore.ProfileUpdate
	if req.Name != nil {
		n := normalize.Name(*req.Name)
		if n == "" {
			return upd, "name cannot be empty"
		}
		upd.Name = &n
	}
	if req.BloodGroup != nil {
		bg, ok := models.NormalizeBloodGroup(*req.BloodGroup)
		if !ok {
			return upd, "bloodGroup must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
		}
		upd.BloodGroup = &bg
	}
	if req.Location != nil {
		l := htmlsanitize.PlainText(*req.Location)
		upd.Location = &l
	}
	if req.Phone != nil {
		p := normalize.Phone(*req.Phone)
		if strings.TrimSpace(*req.Phone) != "" && !inputval.IsValidPhone(p) {
			return upd, "phone is not a valid phone number"
		}
		upd.Phone = &p
	}
	upd.HasDisease = req.HasDisease
	if req.DiseaseDescription != nil {
		d := htmlsanitize.PlainText(*req.DiseaseDescription)
		upd.DiseaseDescription = &d
	}
	if req.HasDisease != nil && !*req.HasDisease {
		upd.DiseaseDescription = nil
	}
	return upd, ""
}

// HandleUpdate handles PATCH /api/users/me. Changing the blood group clears
// its lab-verified flag.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)

	var req updateRequest
	if err := respond.DecodeJSON(w, r, &req, 16<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	upd, msg := req.toUpdate()
	if msg != "" {
		respond.BadRequest(w, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, who.ID, upd)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "update profile", err)
		return
	}
	h.respondProfile(w, u)
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleChangePassword handles POST /api/users/me/password. Accounts
// created through Google may set a first password without a current one.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)

	var req passwordRequest
	if err := respond.DecodeJSON(w, r, &req, 4<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "change password")
	defer cancel()

	u, err := h.Users.GetByID(ctx, who.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load user", err)
		return
	}

	if u.PasswordHash != "" {
		if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
			respond.BadRequest(w, "Current password is incorrect.")
			return
		}
		if auth.CheckPassword(u.PasswordHash, req.NewPassword) {
			respond.BadRequest(w, "New password cannot be the same as your current password.")
			return
		}
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if errors.Is(err, auth.ErrWeakPassword) {
		respond.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "hash password", err)
		return
	}
	if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		respond.Internal(w, h.Log, "update password", err)
		return
	}

	h.Log.Info("password changed", zap.String("user_id", u.ID.Hex()))
	respond.OK(w, map[string]any{"message": "Password updated"})
}

// HandleDelete handles DELETE /api/users/me. The account is removed at once
// along with pending event registrations.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete account")
	defer cancel()

	res, err := h.Remover.Remove(ctx, who.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "delete account", err)
		return
	}

	h.AuditLog.AccountDeleted(ctx, r, who.ID)
	http.SetCookie(w, &http.Cookie{Name: auth.TokenCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	respond.OK(w, map[string]any{
		"message":              "Account deleted",
		"registrationsRemoved": res.RegistrationsRemoved,
	})
}
