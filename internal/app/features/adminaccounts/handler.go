// internal/app/features/adminaccounts/handler.go
package adminaccounts

import (
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/accounts"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler lets admins look after donor accounts.
type Handler struct {
	Users    *userstore.Store
	Remover  *accounts.Remover
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(client *mongo.Client, db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Remover:  accounts.NewRemover(client, db, logger),
		AuditLog: audit,
		Log:      logger,
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid user id")
		return primitive.NilObjectID, false
	}
	return id, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/accounts?search=&bloodGroup=                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)
	f := userstore.ListFilter{
		Search: strings.TrimSpace(query.Get(r, "search")),
		Limit:  int64(pg.Limit),
		Skip:   int64(pg.Skip),
	}
	if bg := query.Get(r, "bloodGroup"); bg != "" {
		norm, ok := models.NormalizeBloodGroup(bg)
		if !ok {
			respond.BadRequest(w, "Invalid blood group")
			return
		}
		f.BloodGroup = norm
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list accounts")
	defer cancel()

	out, err := h.Users.List(ctx, f)
	if err != nil {
		respond.Internal(w, h.Log, "list accounts", err)
		return
	}
	respond.OK(w, map[string]any{"users": out, "count": len(out)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/accounts/{id}                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get account")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "get account", err)
		return
	}
	respond.OK(w, map[string]any{"user": u})
}

type updateRequest struct {
	Name               *string `json:"name"`
	Email              *string `json:"email"`
	BloodGroup         *string `json:"bloodGroup"`
	BloodGroupVerified *bool   `json:"bloodGroupVerified"`
	Location           *string `json:"location"`
	Phone              *string `json:"phone"`
	TotalDonations     *int    `json:"totalDonations"`
}

func (req updateRequest) toUpdate() (upd userstore.AdminUpdate, changed []string, msg string) {
	if req.Name != nil {
		n := normalize.Name(*req.Name)
		if n == "" {
			return upd, nil, "name cannot be empty"
		}
		upd.Name = &n
		changed = append(changed, "name")
	}
	if req.Email != nil {
		e := normalize.Email(*req.Email)
		if !inputval.IsValidEmail(e) {
			return upd, nil, "A valid email is required"
		}
		upd.Email = &e
		changed = append(changed, "email")
	}
	if req.BloodGroup != nil {
		bg, ok := models.NormalizeBloodGroup(*req.BloodGroup)
		if !ok {
			return upd, nil, "bloodGroup must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
		}
		upd.BloodGroup = &bg
		changed = append(changed, "bloodGroup")
	}
	if req.BloodGroupVerified != nil {
		upd.BloodGroupVerified = req.BloodGroupVerified
		changed = append(changed, "bloodGroupVerified")
	}
	if req.Location != nil {
		l := htmlsanitize.PlainText(*req.Location)
		upd.Location = &l
		changed = append(changed, "location")
	}
	if req.Phone != nil {
		p := normalize.Phone(*req.Phone)
		if strings.TrimSpace(*req.Phone) != "" && !inputval.IsValidPhone(p) {
			return upd, nil, "phone is not a valid phone number"
		}
		upd.Phone = &p
		changed = append(changed, "phone")
	}
	if req.TotalDonations != nil {
		if *req.TotalDonations < 0 {
			return upd, nil, "totalDonations cannot be negative"
		}
		upd.TotalDonations = req.TotalDonations
		changed = append(changed, "totalDonations")
	}
	return upd, changed, ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/accounts/{id}                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := respond.DecodeJSON(w, r, &req, 16<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	upd, changed, msg := req.toUpdate()
	if msg != "" {
		respond.BadRequest(w, msg)
		return
	}
	if len(changed) == 0 {
		respond.BadRequest(w, "No changes provided")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update account")
	defer cancel()

	u, err := h.Users.UpdateByAdmin(ctx, id, upd)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		respond.NotFound(w, "User not found")
		return
	case errors.Is(err, userstore.ErrDuplicateEmail):
		respond.BadRequest(w, "An account with this email already exists.")
		return
	case err != nil:
		respond.Internal(w, h.Log, "update account", err)
		return
	}

	h.AuditLog.AccountUpdated(ctx, r, who.ID, u.ID, strings.Join(changed, ","))
	respond.OK(w, map[string]any{"message": "Account updated", "user": u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/admin/accounts/{id}                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete account")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load account", err)
		return
	}

	res, err := h.Remover.Remove(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "delete account", err)
		return
	}

	h.AuditLog.AccountRemoved(ctx, r, who.ID, id, u.Email)
	respond.OK(w, map[string]any{
		"message":              "Account deleted",
		"registrationsRemoved": res.RegistrationsRemoved,
	})
}
