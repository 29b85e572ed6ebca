// internal/app/features/events/admin.go
package events

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/app/system/txn"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var clockRE = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// eventRequest is the admin create/update body. Pointers distinguish
// "absent" from "zero" on PATCH.
type eventRequest struct {
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	Location             *string `json:"location"`
	EventDate            *string `json:"eventDate"`
	StartTime            *string `json:"startTime"`
	EndTime              *string `json:"endTime"`
	VolunteerSlotsNeeded *int    `json:"volunteerSlotsNeeded"`
	Status               *string `json:"status"`
	AllowRegistrations   *bool   `json:"allowRegistrations"`
}

// parseEventDate accepts a calendar date or an RFC 3339 timestamp.
func parseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// toUpdate validates req and converts it. changed lists the fields set.
func (req eventRequest) toUpdate() (upd eventstore.Update, changed []string, msg string) {
	if req.Title != nil {
		t := htmlsanitize.PlainText(*req.Title)
		if t == "" {
			return upd, nil, "title cannot be empty"
		}
		upd.Title = &t
		changed = append(changed, "title")
	}
	if req.Description != nil {
		d := htmlsanitize.Sanitize(*req.Description)
		upd.Description = &d
		changed = append(changed, "description")
	}
	if req.Location != nil {
		l := htmlsanitize.PlainText(*req.Location)
		if l == "" {
			return upd, nil, "location cannot be empty"
		}
		upd.Location = &l
		changed = append(changed, "location")
	}
	if req.EventDate != nil {
		d, ok := parseEventDate(*req.EventDate)
		if !ok {
			return upd, nil, "eventDate must be YYYY-MM-DD or an RFC 3339 timestamp"
		}
		upd.EventDate = &d
		changed = append(changed, "eventDate")
	}
	for _, f := range []struct {
		name string
		in   *string
		out  **string
	}{
		{"startTime", req.StartTime, &upd.StartTime},
		{"endTime", req.EndTime, &upd.EndTime},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v != "" && !clockRE.MatchString(v) {
			return upd, nil, f.name + " must be HH:MM"
		}
		*f.out = &v
		changed = append(changed, f.name)
	}
	if upd.StartTime != nil && upd.EndTime != nil && *upd.StartTime != "" && *upd.EndTime != "" && *upd.EndTime <= *upd.StartTime {
		return upd, nil, "endTime must be after startTime"
	}
	if req.VolunteerSlotsNeeded != nil {
		if *req.VolunteerSlotsNeeded < 0 {
			return upd, nil, eventstore.ErrBadSlots.Error()
		}
		upd.VolunteerSlotsNeeded = req.VolunteerSlotsNeeded
		changed = append(changed, "volunteerSlotsNeeded")
	}
	if req.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*req.Status))
		upd.Status = &s
		changed = append(changed, "status")
	}
	if req.AllowRegistrations != nil {
		upd.AllowRegistrations = req.AllowRegistrations
		changed = append(changed, "allowRegistrations")
	}
	return upd, changed, ""
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid event id")
		return primitive.NilObjectID, false
	}
	return id, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/events                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)
	f := eventstore.ListFilter{Status: query.Get(r, "status"), Limit: int64(pg.Limit), Skip: int64(pg.Skip)}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin list events")
	defer cancel()

	out, err := h.Events.List(ctx, f)
	if err != nil {
		respond.Internal(w, h.Log, "list events", err)
		return
	}
	respond.OK(w, map[string]any{"events": viewsOf(out), "count": len(out)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/events                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)

	var req eventRequest
	if err := respond.DecodeJSON(w, r, &req, 32<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	switch {
	case req.Title == nil:
		respond.BadRequest(w, "title is required")
		return
	case req.Location == nil:
		respond.BadRequest(w, "location is required")
		return
	case req.EventDate == nil:
		respond.BadRequest(w, "eventDate is required")
		return
	case req.VolunteerSlotsNeeded == nil:
		respond.BadRequest(w, "volunteerSlotsNeeded is required")
		return
	}
	upd, _, msg := req.toUpdate()
	if msg != "" {
		respond.BadRequest(w, msg)
		return
	}

	e := models.Event{
		Title:                *upd.Title,
		Location:             *upd.Location,
		EventDate:            *upd.EventDate,
		VolunteerSlotsNeeded: *upd.VolunteerSlotsNeeded,
		AllowRegistrations:   true,
		CreatedBy:            &who.ID,
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.StartTime != nil {
		e.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		e.EndTime = *upd.EndTime
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.AllowRegistrations != nil {
		e.AllowRegistrations = *upd.AllowRegistrations
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create event")
	defer cancel()

	created, err := h.Events.Create(ctx, e)
	if errors.Is(err, eventstore.ErrBadStatus) || errors.Is(err, eventstore.ErrBadSlots) {
		respond.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "create event", err)
		return
	}

	h.AuditLog.EventCreated(ctx, r, who.ID, created.ID, created.Title)
	h.Log.Info("event created", zap.String("event_id", created.ID.Hex()), zap.String("admin_id", who.ID.Hex()))
	respond.Created(w, map[string]any{"message": "Event created", "event": viewOf(created)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/events/{id}                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := respond.DecodeJSON(w, r, &req, 32<<10); err != nil {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update event")
	defer cancel()

	e, err := h.Events.Update(ctx, id, upd)
	switch {
	case errors.Is(err, eventstore.ErrNotFound):
		respond.NotFound(w, "Event not found")
		return
	case errors.Is(err, eventstore.ErrBadStatus), errors.Is(err, eventstore.ErrBadSlots):
		respond.BadRequest(w, err.Error())
		return
	case err != nil:
		respond.Internal(w, h.Log, "update event", err)
		return
	}

	h.AuditLog.EventUpdated(ctx, r, who.ID, e.ID, strings.Join(changed, ","))
	respond.OK(w, map[string]any{"message": "Event updated", "event": viewOf(*e)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/admin/events/{id}                                                |
| Registrations for the event go with it.                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentAdmin(r)
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete event")
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, eventstore.ErrNotFound) {
		respond.NotFound(w, "Event not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load event", err)
		return
	}

	var removed int64
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		n, err := h.Registrations.DeleteByEvent(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return h.Events.Delete(ctx, id)
	})
	if errors.Is(err, eventstore.ErrNotFound) {
		respond.NotFound(w, "Event not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "delete event", err)
		return
	}

	h.AuditLog.EventDeleted(ctx, r, who.ID, id, e.Title, removed)
	h.Log.Info("event deleted",
		zap.String("event_id", id.Hex()),
		zap.Int64("registrations_removed", removed))
	respond.OK(w, map[string]any{"message": "Event deleted", "registrationsRemoved": removed})
}
