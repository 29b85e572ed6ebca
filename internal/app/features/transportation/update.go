// internal/app/features/transportation/update.go
package transportation

import (
	"errors"
	"net/http"
	"strings"

	transportstore "github.com/dalemusser/bloodlink/internal/app/store/transport"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type updateRequest struct {
	// ID is read when the route carries no {id}.
	ID           string  `json:"id"`
	DriverName   *string `json:"driverName"`
	DriverNumber *string `json:"driverNumber"`
	Status       *string `json:"status"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/transportation-request/{id}  (admin, transportation permission)   |
| PATCH /api/transportation-request       (same, id in the body)               |
| A status change notifies the owning user.                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.CurrentAdmin(r)

	var req updateRequest
	if err := respond.DecodeJSON(w, r, &req, 4<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	rawID := chi.URLParam(r, "id")
	if rawID == "" {
		rawID = strings.TrimSpace(req.ID)
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		respond.BadRequest(w, "Invalid transportation request id")
		return
	}
	if req.DriverName == nil && req.DriverNumber == nil && req.Status == nil {
		respond.BadRequest(w, "Nothing to update")
		return
	}
	if req.DriverName != nil {
		v := normalize.Name(*req.DriverName)
		req.DriverName = &v
	}
	if req.DriverNumber != nil {
		v := normalize.Phone(*req.DriverNumber)
		if strings.TrimSpace(*req.DriverNumber) != "" && !inputval.IsValidPhone(v) {
			respond.BadRequest(w, "driverNumber is not a valid phone number")
			return
		}
		req.DriverNumber = &v
	}
	if req.Status != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Status))
		if !transportstore.ValidStatus(v) {
			respond.BadRequest(w, transportstore.ErrBadStatus.Error())
			return
		}
		req.Status = &v
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update transportation request")
	defer cancel()

	tr, prev, err := h.Transport.Update(ctx, id, transportstore.Update{
		DriverName:   req.DriverName,
		DriverNumber: req.DriverNumber,
		Status:       req.Status,
	})
	if errors.Is(err, transportstore.ErrNotFound) {
		respond.NotFound(w, "Transportation request not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "update transportation request", err)
		return
	}

	if tr.Status != prev {
		h.AuditLog.TransportUpdated(ctx, r, admin.ID, tr.ID, tr.UserID, prev, tr.Status)
		if err := h.Outbox.Enqueue(ctx, outbox.NotifyTask(statusNotification(tr))); err != nil {
			h.Log.Warn("queue transportation notification",
				zap.String("transportation_id", tr.ID.Hex()),
				zap.Error(err))
		}
	}

	respond.OK(w, map[string]any{
		"message":               "Transportation request updated",
		"transportationRequest": tr,
	})
}

// statusNotification builds the message for tr's new status. Assigned
// rides carry the driver's contact both in the text and as data.
func statusNotification(tr *models.TransportationRequest) models.Notification {
	n := models.Notification{
		RecipientID:   tr.UserID,
		RecipientType: models.RecipientUser,
		Type:          models.NotifyTransportation,
		Data: map[string]string{
			"transportationRequestId": tr.ID.Hex(),
			"status":                  tr.Status,
		},
	}
	switch tr.Status {
	case models.TransportAssigned:
		n.Title = "Driver assigned"
		n.Message = "A driver has been assigned to your transportation request."
		if tr.DriverName != "" {
			n.Message = "Your driver is " + tr.DriverName
			if tr.DriverNumber != "" {
				n.Message += " (" + tr.DriverNumber + ")"
			}
			n.Message += "."
			n.Data["driverName"] = tr.DriverName
		}
		if tr.DriverNumber != "" {
			n.Data["driverNumber"] = tr.DriverNumber
		}
	case models.TransportCompleted:
		n.Title = "Transportation completed"
		n.Message = "Your transportation has been completed. Thank you for donating."
	case models.TransportCancelled:
		n.Title = "Transportation cancelled"
		n.Message = "Your transportation request has been cancelled."
	default:
		n.Title = "Transportation pending"
		n.Message = "Your transportation request is pending. We will notify you once a driver is assigned."
	}
	return n
}
