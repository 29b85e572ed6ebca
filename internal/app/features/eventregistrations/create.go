// internal/app/features/eventregistrations/create.go
package eventregistrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/app/system/metrics"
	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Messages the client shows verbatim.
const (
	msgAlreadyRegistered = "You have already registered for this event."
	msgSlotsFull         = "No more volunteer slots available."
	msgClosed            = "This event is not accepting registrations."
)

type createRequest struct {
	EventID            string `json:"eventId"`
	RegistrationNumber string `json:"registrationNumber"`
	Name               string `json:"name"`
	TimeSlot           string `json:"timeSlot"`
}

type createResponse struct {
	Message           string                   `json:"message"`
	AlphanumericToken string                   `json:"alphanumericToken"`
	Registration      models.EventRegistration `json:"registration"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/event-registrations                                                |
| Reserves a volunteer slot and issues the check-in code.                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)

	var req createRequest
	if err := respond.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	req.Name = normalize.Name(req.Name)
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	if req.EventID == "" || req.RegistrationNumber == "" || req.Name == "" || req.TimeSlot == "" {
		respond.BadRequest(w, "eventId, registrationNumber, name and timeSlot are required")
		return
	}
	eventID, err := primitive.ObjectIDFromHex(req.EventID)
	if err != nil {
		respond.BadRequest(w, "Invalid event id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create registration")
	defer cancel()

	event, err := h.Events.GetByID(ctx, eventID)
	if errors.Is(err, eventstore.ErrNotFound) {
		respond.NotFound(w, "Event not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load event", err)
		return
	}
	if !event.AcceptsRegistrations() {
		respond.BadRequest(w, msgClosed)
		return
	}

	exists, err := h.Regs.Exists(ctx, eventID, me.ID)
	if err != nil {
		respond.Internal(w, h.Log, "check existing registration", err)
		return
	}
	if exists {
		respond.BadRequest(w, msgAlreadyRegistered)
		return
	}

	switch err := h.Events.ReserveSlot(ctx, eventID); {
	case errors.Is(err, eventstore.ErrSlotsFull):
		respond.BadRequest(w, msgSlotsFull)
		return
	case errors.Is(err, eventstore.ErrClosed):
		respond.BadRequest(w, msgClosed)
		return
	case errors.Is(err, eventstore.ErrNotFound):
		respond.NotFound(w, "Event not found")
		return
	case err != nil:
		respond.Internal(w, h.Log, "reserve slot", err)
		return
	}

	reg, err := h.Regs.Create(ctx, models.EventRegistration{
		EventID:            eventID,
		UserID:             me.ID,
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		TimeSlot:           req.TimeSlot,
	})
	if err != nil {
		if rerr := h.Events.ReleaseSlot(ctx, eventID); rerr != nil {
			h.Log.Error("release slot after failed registration",
				zap.String("event_id", eventID.Hex()), zap.Error(rerr))
		}
		if errors.Is(err, eventregstore.ErrAlreadyRegistered) {
			respond.BadRequest(w, msgAlreadyRegistered)
			return
		}
		respond.Internal(w, h.Log, "create registration", err)
		return
	}
	metrics.RegistrationsCreated.Inc()

	h.queueConfirmation(ctx, me, event, reg)

	h.Log.Info("event registration created",
		zap.String("registration_id", reg.ID.Hex()),
		zap.String("event_id", eventID.Hex()),
		zap.String("user_id", me.ID.Hex()))

	respond.Created(w, createResponse{
		Message:           "Registration successful",
		AlphanumericToken: reg.AlphanumericToken,
		Registration:      reg,
	})
}

// queueConfirmation stages the in-app, email, and WhatsApp confirmations.
// Failure is logged and never fails the registration.
func (h *Handler) queueConfirmation(ctx context.Context, me *auth.Identity, event *models.Event, reg models.EventRegistration) {
	tasks := []models.OutboxTask{outbox.NotifyTask(models.Notification{
		RecipientID:   me.ID,
		RecipientType: models.RecipientUser,
		Title:         "Event Registration Confirmed",
		Message:       fmt.Sprintf("You are registered for %s. Your check-in code is %s.", event.Title, reg.AlphanumericToken),
		Type:          models.NotifyEventRegistration,
		Data: map[string]string{
			"eventId":        event.ID.Hex(),
			"registrationId": reg.ID.Hex(),
			"token":          reg.AlphanumericToken,
		},
	})}

	email := me.Email
	phone := ""
	if u, err := h.Users.GetByID(ctx, me.ID); err == nil {
		email, phone = u.Email, u.Phone
	} else {
		h.Log.Warn("load registrant contact", zap.String("user_id", me.ID.Hex()), zap.Error(err))
	}
	if email != "" {
		tasks = append(tasks, outbox.EmailTask(mailer.BuildRegistrationConfirmation(email, mailer.RegistrationData{
			Name:       reg.Name,
			EventTitle: event.Title,
			EventDate:  event.EventDate.Format("Mon, 02 Jan 2006"),
			TimeSlot:   reg.TimeSlot,
			Location:   event.Location,
			Token:      reg.AlphanumericToken,
		})))
	}
	if phone != "" {
		tasks = append(tasks, outbox.WhatsAppTask(phone, fmt.Sprintf(
			"BloodLink: you are registered for %s on %s (%s). Check-in code: %s",
			event.Title, event.EventDate.Format("02 Jan 2006"), reg.TimeSlot, reg.AlphanumericToken)))
	}

	if err := h.Outbox.Enqueue(ctx, tasks...); err != nil {
		h.Log.Error("queue registration confirmation",
			zap.String("registration_id", reg.ID.Hex()), zap.Error(err))
	}
}
