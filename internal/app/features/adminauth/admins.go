// internal/app/features/adminauth/admins.go
package adminauth

import (
	"errors"
	"net/http"
	"strings"

	adminstore "github.com/dalemusser/bloodlink/internal/app/store/admins"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type adminRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	Role        string    `json:"role"`
	Permissions *[]string `json:"permissions"`
}

// storeErr maps validation errors from the admin store to 400s.
func storeErr(err error) (string, bool) {
	switch {
	case errors.Is(err, adminstore.ErrBadRole), errors.Is(err, adminstore.ErrBadPermission):
		return err.Error(), true
	case errors.Is(err, adminstore.ErrDuplicateEmail):
		return "An admin with this email already exists.", true
	}
	return "", false
}

func adminIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid admin id")
		return primitive.NilObjectID, false
	}
	return id, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/admins                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list admins")
	defer cancel()

	out, err := h.Admins.List(ctx)
	if err != nil {
		respond.Internal(w, h.Log, "list admins", err)
		return
	}
	respond.OK(w, map[string]any{"admins": out, "count": len(out)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/admins                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)

	var req adminRequest
	if err := respond.DecodeJSON(w, r, &req, 8<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	switch {
	case req.Name == "":
		respond.BadRequest(w, "name is required")
		return
	case !inputval.IsValidEmail(req.Email):
		respond.BadRequest(w, "A valid email is required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		respond.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "hash password", err)
		return
	}

	a := models.Admin{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         strings.ToLower(strings.TrimSpace(req.Role)),
	}
	if req.Permissions != nil {
		a.Permissions = *req.Permissions
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create admin")
	defer cancel()

	created, err := h.Admins.Create(ctx, a)
	if msg, ok := storeErr(err); ok {
		respond.BadRequest(w, msg)
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "create admin", err)
		return
	}

	h.AuditLog.AdminCreated(ctx, r, who.ID, created.ID, created.Role)
	h.Log.Info("admin created", zap.String("admin_id", created.ID.Hex()), zap.String("by", who.ID.Hex()))
	respond.Created(w, map[string]any{"message": "Admin created", "admin": created})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/admins/{id}                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)
	id, ok := adminIDParam(w, r)
	if !ok {
		return
	}

	var req adminRequest
	if err := respond.DecodeJSON(w, r, &req, 8<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}

	var upd adminstore.Update
	var changed []string
	if n := normalize.Name(req.Name); n != "" {
		upd.Name = &n
		changed = append(changed, "name")
	}
	if role := strings.ToLower(strings.TrimSpace(req.Role)); role != "" {
		if id == who.ID && role != models.AdminRoleSuperAdmin {
			respond.BadRequest(w, "You cannot remove your own superadmin role.")
			return
		}
		upd.Role = &role
		changed = append(changed, "role")
	}
	if req.Permissions != nil {
		upd.Permissions = req.Permissions
		changed = append(changed, "permissions")
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if errors.Is(err, auth.ErrWeakPassword) {
			respond.BadRequest(w, err.Error())
			return
		}
		if err != nil {
			respond.Internal(w, h.Log, "hash password", err)
			return
		}
		upd.PasswordHash = &hash
		changed = append(changed, "password")
	}
	if len(changed) == 0 {
		respond.BadRequest(w, "No changes provided")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update admin")
	defer cancel()

	// Role and permissions validate together, so a partial update carries
	// the stored value for whichever one was omitted.
	if upd.Role == nil || upd.Permissions == nil {
		cur, err := h.Admins.GetByID(ctx, id)
		if errors.Is(err, adminstore.ErrNotFound) {
			respond.NotFound(w, "Admin not found")
			return
		}
		if err != nil {
			respond.Internal(w, h.Log, "load admin", err)
			return
		}
		if upd.Role == nil {
			upd.Role = &cur.Role
		}
		if upd.Permissions == nil {
			upd.Permissions = &cur.Permissions
		}
	}

	a, err := h.Admins.Update(ctx, id, upd)
	if errors.Is(err, adminstore.ErrNotFound) {
		respond.NotFound(w, "Admin not found")
		return
	}
	if msg, ok := storeErr(err); ok {
		respond.BadRequest(w, msg)
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "update admin", err)
		return
	}

	h.AuditLog.AdminUpdated(ctx, r, who.ID, a.ID, strings.Join(changed, ","))
	respond.OK(w, map[string]any{"message": "Admin updated", "admin": a})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/admin/admins/{id}                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)
	id, ok := adminIDParam(w, r)
	if !ok {
		return
	}
	if id == who.ID {
		respond.BadRequest(w, "You cannot delete your own account.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete admin")
	defer cancel()

	a, err := h.Admins.GetByID(ctx, id)
	if errors.Is(err, adminstore.ErrNotFound) {
		respond.NotFound(w, "Admin not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load admin", err)
		return
	}
	if err := h.Admins.Delete(ctx, id); err != nil && !errors.Is(err, adminstore.ErrNotFound) {
		respond.Internal(w, h.Log, "delete admin", err)
		return
	}

	h.AuditLog.AdminDeleted(ctx, r, who.ID, id, a.Email)
	respond.OK(w, map[string]any{"message": "Admin deleted"})
}
