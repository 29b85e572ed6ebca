// internal/app/features/bloodrequests/list.go
package bloodrequests

import (
	"errors"
	"net/http"

	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	BloodRequests []models.BloodRequest `json:"bloodRequests"`
	Count         int                   `json:"count"`
}

// ServeList handles GET /api/blood-request. Visibility depends on the
// caller:
//
//	admin token        every request, optionally ?status= and ?bloodGroup=
//	?all=true          every active request (the donation feed)
//	user token         the caller's own requests
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	who, signedIn := auth.Current(r)
	pg := paging.Parse(r)
	f := bloodrequeststore.ListFilter{Limit: int64(pg.Limit), Skip: int64(pg.Skip)}

	if bg := query.Get(r, "bloodGroup"); bg != "" {
		norm, ok := models.NormalizeBloodGroup(bg)
		if !ok {
			respond.BadRequest(w, "Invalid blood group")
			return
		}
		f.BloodGroup = norm
	}

	switch {
	case who.IsAdmin():
		f.Status = query.Get(r, "status")
		if f.Status != "" && !bloodrequeststore.ValidStatus(f.Status) {
			respond.BadRequest(w, bloodrequeststore.ErrBadStatus.Error())
			return
		}
	case query.Get(r, "all") == "true":
		f.Status = models.RequestActive
	case signedIn:
		f.RequesterID = &who.ID
		f.Status = query.Get(r, "status")
	default:
		respond.Unauthorized(w, "Authentication required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list blood requests")
	defer cancel()

	out, err := h.Requests.List(ctx, f)
	if err != nil {
		respond.Internal(w, h.Log, "list blood requests", err)
		return
	}
	respond.OK(w, listResponse{BloodRequests: out, Count: len(out)})
}

// ServeGet handles GET /api/blood-request/{id}. The document image is
// returned to the requester and to admins only; other donors may view
// active requests without it.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid blood request id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get blood request")
	defer cancel()

	br, err := h.Requests.GetByID(ctx, id)
	if errors.Is(err, bloodrequeststore.ErrNotFound) {
		respond.NotFound(w, "Blood request not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "get blood request", err)
		return
	}

	owner := br.RequesterID == who.ID
	if !owner && !who.IsAdmin() {
		if br.Status != models.RequestActive {
			respond.NotFound(w, "Blood request not found")
			return
		}
		br.DocumentImage = ""
		br.PatientPhone = ""
	}
	respond.OK(w, map[string]any{"bloodRequest": br})
}

type updateRequest struct {
	Status   *string `json:"status"`
	Verified *bool   `json:"verified"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/blood-request/{id}                                                |
| Owners may cancel or mark fulfilled an active request. Admins may set any    |
| status and the verified flag.                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid blood request id")
		return
	}

	var req updateRequest
	if err := respond.DecodeJSON(w, r, &req, 4<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	if req.Status == nil && req.Verified == nil {
		respond.BadRequest(w, "Nothing to update")
		return
	}
	if req.Status != nil && !bloodrequeststore.ValidStatus(*req.Status) {
		respond.BadRequest(w, bloodrequeststore.ErrBadStatus.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update blood request")
	defer cancel()

	isAdmin := who.HasPermission(models.PermBloodRequests)
	if !isAdmin {
		if who.IsAdmin() {
			respond.Forbidden(w, "You do not have permission to perform this action")
			return
		}
		if req.Verified != nil {
			respond.Forbidden(w, "Only admins can verify blood requests")
			return
		}
		cur, err := h.Requests.GetByID(ctx, id)
		if errors.Is(err, bloodrequeststore.ErrNotFound) || (err == nil && cur.RequesterID != who.ID) {
			respond.NotFound(w, "Blood request not found")
			return
		}
		if err != nil {
			respond.Internal(w, h.Log, "load blood request", err)
			return
		}
		if cur.Status != models.RequestActive {
			respond.BadRequest(w, msgNotActive)
			return
		}
		if *req.Status == models.RequestActive {
			respond.BadRequest(w, `status must be "fulfilled" or "cancelled"`)
			return
		}
	}

	br, err := h.Requests.Update(ctx, id, bloodrequeststore.Update{Status: req.Status, Verified: req.Verified})
	if errors.Is(err, bloodrequeststore.ErrNotFound) {
		respond.NotFound(w, "Blood request not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "update blood request", err)
		return
	}
	if isAdmin {
		h.AuditLog.BloodRequestUpdated(ctx, r, who.ID, br.ID, br.Status, br.Verified)
	}
	respond.OK(w, map[string]any{"message": "Blood request updated", "bloodRequest": br})
}

// acceptanceView is an acceptance with its request attached.
type acceptanceView struct {
	models.AcceptedBloodRequest
	BloodRequest *models.BloodRequest `json:"bloodRequest,omitempty"`
}

// ServeMyAcceptances handles GET /api/blood-request/accepted.
func (h *Handler) ServeMyAcceptances(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list acceptances")
	defer cancel()

	accs, err := h.Acceptances.ListByUser(ctx, me.ID)
	if err != nil {
		respond.Internal(w, h.Log, "list acceptances", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(accs))
	for _, a := range accs {
		ids = append(ids, a.BloodRequestID)
	}
	reqs, err := h.Requests.ByIDs(ctx, ids)
	if err != nil {
		respond.Internal(w, h.Log, "load accepted requests", err)
		return
	}

	out := make([]acceptanceView, 0, len(accs))
	for _, a := range accs {
		v := acceptanceView{AcceptedBloodRequest: a}
		if br, ok := reqs[a.BloodRequestID]; ok {
			v.BloodRequest = &br
		}
		out = append(out, v)
	}
	respond.OK(w, map[string]any{"acceptances": out, "count": len(out)})
}
