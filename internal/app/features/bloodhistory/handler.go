// internal/app/features/bloodhistory/handler.go
package bloodhistory

import (
	"net/http"
	"time"

	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin donation history: every acceptance joined with
// its blood request and donor.
type Handler struct {
	Acceptances *acceptancestore.Store
	Requests    *bloodrequeststore.Store
	Users       *userstore.Store
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Acceptances: acceptancestore.New(db),
		Requests:    bloodrequeststore.New(db),
		Users:       userstore.New(db),
		Log:         logger,
	}
}

type requestSummary struct {
	ID               primitive.ObjectID `json:"id"`
	PatientName      string             `json:"patientName,omitempty"`
	BloodGroup       string             `json:"bloodGroup"`
	Quantity         int                `json:"quantity"`
	Urgency          string             `json:"urgency"`
	HospitalName     string             `json:"hospitalName"`
	HospitalLocation string             `json:"hospitalLocation"`
	Status           string             `json:"status"`
	Verified         bool               `json:"verified"`
	RequesterName    string             `json:"requesterName,omitempty"`
}

type donorSummary struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone,omitempty"`
	BloodGroup     string             `json:"bloodGroup"`
	TotalDonations int                `json:"totalDonations"`
}

// entry is one row of history. Request or Donor is nil when the linked
// document has since been deleted.
type entry struct {
	models.AcceptedBloodRequest
	Request *requestSummary `json:"bloodRequest"`
	Donor   *donorSummary   `json:"donor"`
}

// ServeList handles GET /api/admin/blood-history with optional ?status=,
// ?bloodGroup=, ?userId= and ?bloodRequestId= filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)
	f := acceptancestore.HistoryFilter{
		Status: query.Get(r, "status"),
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
	for _, p := range []struct {
		name string
		dst  **primitive.ObjectID
	}{
		{"userId", &f.UserID},
		{"bloodRequestId", &f.BloodRequestID},
	} {
		v := query.Get(r, p.name)
		if v == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			respond.BadRequest(w, "Invalid "+p.name)
			return
		}
		*p.dst = &id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "blood history")
	defer cancel()

	accs, err := h.Acceptances.ListHistory(ctx, f)
	if err != nil {
		respond.Internal(w, h.Log, "list acceptances", err)
		return
	}

	reqIDs := make([]primitive.ObjectID, 0, len(accs))
	userIDs := make([]primitive.ObjectID, 0, len(accs))
	for _, a := range accs {
		reqIDs = append(reqIDs, a.BloodRequestID)
		userIDs = append(userIDs, a.UserID)
	}
	reqs, err := h.Requests.ByIDs(ctx, reqIDs)
	if err != nil {
		respond.Internal(w, h.Log, "load blood requests", err)
		return
	}
	users, err := h.Users.ByIDs(ctx, userIDs)
	if err != nil {
		respond.Internal(w, h.Log, "load donors", err)
		return
	}

	out := make([]entry, 0, len(accs))
	for _, a := range accs {
		e := entry{AcceptedBloodRequest: a}
		if br, ok := reqs[a.BloodRequestID]; ok {
			e.Request = &requestSummary{
				ID:               br.ID,
				PatientName:      br.PatientName,
				BloodGroup:       br.BloodGroup,
				Quantity:         br.Quantity,
				Urgency:          br.Urgency,
				HospitalName:     br.HospitalName,
				HospitalLocation: br.HospitalLocation,
				Status:           br.Status,
				Verified:         br.Verified,
				RequesterName:    br.RequesterName,
			}
		}
		if u, ok := users[a.UserID]; ok {
			e.Donor = &donorSummary{
				ID:             u.ID,
				Name:           u.Name,
				Email:          u.Email,
				Phone:          u.Phone,
				BloodGroup:     u.BloodGroup,
				TotalDonations: u.TotalDonations,
			}
		}
		out = append(out, e)
	}

	respond.OK(w, map[string]any{
		"history":     out,
		"count":       len(out),
		"generatedAt": time.Now().UTC(),
	})
}
