package events_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/features/events"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*events.Handler, *testutil.Fixtures, models.Admin) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := fx.CreateAdmin(ctx, "Ops", "ops@example.com", models.AdminRoleAdmin, models.PermEvents)
	return events.NewHandler(nil, db, nil, zap.NewNop()), fx, admin
}

type eventBody struct {
	Event struct {
		models.Event
		SlotsRemaining         int  `json:"slotsRemaining"`
		AcceptingRegistrations bool `json:"acceptingRegistrations"`
	} `json:"event"`
}

func TestHandleCreate(t *testing.T) {
	h, _, admin := setup(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing title", map[string]any{"location": "Hall", "eventDate": "2026-12-01", "volunteerSlotsNeeded": 5}, http.StatusBadRequest},
		{"bad date", map[string]any{"title": "Drive", "location": "Hall", "eventDate": "01/12/2026", "volunteerSlotsNeeded": 5}, http.StatusBadRequest},
		{"bad clock", map[string]any{"title": "Drive", "location": "Hall", "eventDate": "2026-12-01", "startTime": "9am", "volunteerSlotsNeeded": 5}, http.StatusBadRequest},
		{"end before start", map[string]any{"title": "Drive", "location": "Hall", "eventDate": "2026-12-01", "startTime": "12:00", "endTime": "09:00", "volunteerSlotsNeeded": 5}, http.StatusBadRequest},
		{"negative slots", map[string]any{"title": "Drive", "location": "Hall", "eventDate": "2026-12-01", "volunteerSlotsNeeded": -1}, http.StatusBadRequest},
		{"bad status", map[string]any{"title": "Drive", "location": "Hall", "eventDate": "2026-12-01", "volunteerSlotsNeeded": 5, "status": "paused"}, http.StatusBadRequest},
		{"ok", map[string]any{"title": "Winter <b>Drive</b>", "description": "<p>Bring ID</p><script>x()</script>", "location": "Hall", "eventDate": "2026-12-01", "startTime": "09:00", "endTime": "17:00", "volunteerSlotsNeeded": 20}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, testutil.WithAdmin(testutil.JSONRequest(t, http.MethodPost, "/api/admin/events", tt.body), admin))
			rec.AssertStatus(t, tt.want)
			if tt.want != http.StatusCreated {
				return
			}
			var got eventBody
			rec.DecodeJSON(t, &got)
			e := got.Event
			if e.Title != "Winter Drive" {
				t.Errorf("title = %q", e.Title)
			}
			if e.Description != "<p>Bring ID</p>" {
				t.Errorf("description = %q", e.Description)
			}
			if e.Status != models.EventActive || !e.AllowRegistrations || e.RegisteredCount != 0 {
				t.Errorf("event = %+v", e.Event)
			}
			if e.SlotsRemaining != 20 || !e.AcceptingRegistrations {
				t.Errorf("slotsRemaining=%d accepting=%v", e.SlotsRemaining, e.AcceptingRegistrations)
			}
			if e.CreatedBy == nil || *e.CreatedBy != admin.ID {
				t.Errorf("createdBy = %v", e.CreatedBy)
			}
		})
	}
}

func TestServeList_OnlyActive(t *testing.T) {
	h, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateEvent(ctx, "Open", 10)
	done := fx.CreateEvent(ctx, "Done", 10)
	if _, err := fx.DB().Collection("events").UpdateOne(ctx, bson.M{"_id": done.ID}, bson.M{"$set": bson.M{"status": models.EventCompleted}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.JSONRequest(t, http.MethodGet, "/api/events", nil))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Events []models.Event `json:"events"`
		Count  int            `json:"count"`
	}
	rec.DecodeJSON(t, &body)
	if body.Count != 1 || body.Events[0].Title != "Open" {
		t.Errorf("public list = %+v", body.Events)
	}

	rec = testutil.NewRecorder()
	h.ServeAdminList(rec, testutil.JSONRequest(t, http.MethodGet, "/api/admin/events", nil))
	rec.DecodeJSON(t, &body)
	if body.Count != 2 {
		t.Errorf("admin list count = %d, want 2", body.Count)
	}
}

func TestHandleUpdate(t *testing.T) {
	h, fx, admin := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := fx.CreateEvent(ctx, "Drive", 10)

	patch := func(id string, body map[string]any) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.JSONRequest(t, http.MethodPatch, "/api/admin/events/"+id, body)
		h.HandleUpdate(rec, testutil.WithChiURLParam(testutil.WithAdmin(req, admin), "id", id))
		return rec
	}

	rec := patch(e.ID.Hex(), map[string]any{"allowRegistrations": false, "volunteerSlotsNeeded": 4})
	rec.AssertStatus(t, http.StatusOK)
	var got eventBody
	rec.DecodeJSON(t, &got)
	if got.Event.AllowRegistrations || got.Event.VolunteerSlotsNeeded != 4 || got.Event.AcceptingRegistrations {
		t.Errorf("updated = %+v", got.Event)
	}
	if got.Event.Title != "Drive" {
		t.Errorf("untouched title changed to %q", got.Event.Title)
	}

	patch(e.ID.Hex(), map[string]any{}).AssertStatus(t, http.StatusBadRequest)
	patch(e.ID.Hex(), map[string]any{"status": "paused"}).AssertStatus(t, http.StatusBadRequest)
	patch(e.ID.Hex(), map[string]any{"title": "  "}).AssertStatus(t, http.StatusBadRequest)
	patch("000000000000000000000000", map[string]any{"title": "X"}).AssertStatus(t, http.StatusNotFound)
	patch("nope", map[string]any{"title": "X"}).AssertStatus(t, http.StatusBadRequest)
}

func TestHandleDelete_RemovesRegistrations(t *testing.T) {
	h, fx, admin := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := fx.CreateEvent(ctx, "Drive", 10)
	other := fx.CreateEvent(ctx, "Other", 10)
	u1 := fx.CreateUser(ctx, "A", "a@example.com", "O+")
	u2 := fx.CreateUser(ctx, "B", "b@example.com", "O+")
	fx.CreateRegistration(ctx, e.ID, u1.ID, "AAA111")
	fx.CreateRegistration(ctx, e.ID, u2.ID, "BBB222")
	fx.CreateRegistration(ctx, other.ID, u1.ID, "CCC333")

	del := func(id string) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.JSONRequest(t, http.MethodDelete, "/api/admin/events/"+id, nil)
		h.HandleDelete(rec, testutil.WithChiURLParam(testutil.WithAdmin(req, admin), "id", id))
		return rec
	}

	rec := del(e.ID.Hex())
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		RegistrationsRemoved int64 `json:"registrationsRemoved"`
	}
	rec.DecodeJSON(t, &body)
	if body.RegistrationsRemoved != 2 {
		t.Errorf("registrationsRemoved = %d, want 2", body.RegistrationsRemoved)
	}

	left, err := fx.DB().Collection("event_registrations").CountDocuments(ctx, bson.M{})
	if err != nil || left != 1 {
		t.Errorf("registrations left = %d (%v), want 1", left, err)
	}
	del(e.ID.Hex()).AssertStatus(t, http.StatusNotFound)
}
