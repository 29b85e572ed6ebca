// internal/app/features/bloodrequests/create.go
package bloodrequests

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/metrics"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	RequestFor       string `json:"requestFor"`
	PatientName      string `json:"patientName"`
	PatientPhone     string `json:"patientPhone"`
	BloodGroup       string `json:"bloodGroup"`
	Quantity         int    `json:"quantity"`
	Urgency          string `json:"urgency"`
	HospitalName     string `json:"hospitalName"`
	HospitalLocation string `json:"hospitalLocation"`
	DocumentImage    string `json:"documentImage"`
}

// validate normalizes req in place and returns a client-facing message for
// the first problem found.
func (req *createRequest) validate(maxImage int) string {
	bg, ok := models.NormalizeBloodGroup(req.BloodGroup)
	if !ok {
		return "bloodGroup must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
	}
	req.BloodGroup = bg

	if req.Quantity <= 0 {
		return "quantity must be greater than zero"
	}

	req.Urgency = strings.ToLower(strings.TrimSpace(req.Urgency))
	if req.Urgency == "" {
		req.Urgency = models.UrgencyMedium
	}
	if !models.ValidUrgency(req.Urgency) {
		return "urgency must be low, medium, high or critical"
	}

	req.HospitalName = htmlsanitize.PlainText(req.HospitalName)
	req.HospitalLocation = htmlsanitize.PlainText(req.HospitalLocation)
	if req.HospitalLocation == "" {
		return "hospitalLocation is required"
	}

	req.RequestFor = strings.ToLower(strings.TrimSpace(req.RequestFor))
	if req.RequestFor == "" {
		req.RequestFor = models.RequestForSelf
	}
	switch req.RequestFor {
	case models.RequestForSelf:
		req.PatientName, req.PatientPhone = "", ""
	case models.RequestForOthers:
		req.PatientName = normalize.Name(req.PatientName)
		req.PatientPhone = normalize.Phone(req.PatientPhone)
		if req.PatientName == "" || req.PatientPhone == "" {
			return "patientName and patientPhone are required when requesting for others"
		}
		if !inputval.IsValidPhone(req.PatientPhone) {
			return "patientPhone is not a valid phone number"
		}
	default:
		return `requestFor must be "self" or "others"`
	}

	img, _, err := inputval.CheckImage(req.DocumentImage, maxImage)
	switch {
	case errors.Is(err, inputval.ErrImageRequired):
		return "A hospital document image is required"
	case errors.Is(err, inputval.ErrImageTooLarge):
		return "The document image is too large"
	case err != nil:
		return "The document image must be a base64 data URI"
	}
	req.DocumentImage = img
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/blood-request                                                      |
| Creates a request and queues the alert to every matching donor.              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)

	var req createRequest
	if err := respond.DecodeJSON(w, r, &req, h.bodyLimit()); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	if msg := req.validate(h.MaxImageBytes); msg != "" {
		respond.BadRequest(w, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create blood request")
	defer cancel()

	requesterName, requesterEmail := me.Name, me.Email
	if u, err := h.Users.GetByID(ctx, me.ID); err == nil {
		requesterName, requesterEmail = u.Name, u.Email
	}

	br, err := h.Requests.Create(ctx, models.BloodRequest{
		RequesterID:      me.ID,
		RequesterName:    requesterName,
		RequesterEmail:   requesterEmail,
		RequestFor:       req.RequestFor,
		PatientName:      req.PatientName,
		PatientPhone:     req.PatientPhone,
		BloodGroup:       req.BloodGroup,
		Quantity:         req.Quantity,
		Urgency:          req.Urgency,
		HospitalName:     req.HospitalName,
		HospitalLocation: req.HospitalLocation,
		DocumentImage:    req.DocumentImage,
	})
	if err != nil {
		respond.Internal(w, h.Log, "create blood request", err)
		return
	}
	metrics.BloodRequestsCreated.Inc()

	if err := h.Outbox.Enqueue(ctx, outbox.BroadcastRequestTask(br, h.requestLink(br.ID.Hex()))); err != nil {
		h.Log.Error("queue blood request broadcast",
			zap.String("blood_request_id", br.ID.Hex()), zap.Error(err))
	}

	h.Log.Info("blood request created",
		zap.String("blood_request_id", br.ID.Hex()),
		zap.String("requester_id", me.ID.Hex()),
		zap.String("blood_group", br.BloodGroup),
		zap.String("urgency", br.Urgency))

	br.DocumentImage = ""
	respond.Created(w, map[string]any{
		"message":      "Blood request created",
		"bloodRequest": br,
	})
}
