package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/store/audit"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Query_ByActorAndCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	adminID := primitive.NewObjectID()
	regID := primitive.NewObjectID()
	events := []audit.Event{
		{Category: audit.CategoryAdmin, EventType: audit.EventRegistrationVerified, ActorID: &adminID, ActorKind: audit.ActorAdmin, TargetType: "event_registration", TargetID: &regID, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventEventCreated, ActorID: &adminID, ActorKind: audit.ActorAdmin, Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"by actor", audit.QueryFilter{ActorID: &adminID}, 2},
		{"by category", audit.QueryFilter{Category: audit.CategoryAuth}, 1},
		{"by event type", audit.QueryFilter{EventType: audit.EventRegistrationVerified}, 1},
		{"all", audit.QueryFilter{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
			n, err := store.CountByFilter(ctx, tt.filter)
			if err != nil || n != int64(tt.want) {
				t.Errorf("CountByFilter = %d, %v; want %d", n, err, tt.want)
			}
		})
	}
}

func TestStore_Query_ByTimeRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventSignup, CreatedAt: old, Success: true}); err != nil {
		t.Fatal(err)
	}
	if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventSignup, Success: true}); err != nil {
		t.Fatal(err)
	}

	start := now.Add(-time.Hour)
	got, err := store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 recent event, got %d", len(got))
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, et := range []string{audit.EventLoginFailedWrongPassword, audit.EventLoginFailedUserNotFound, audit.EventLoginFailedRateLimit} {
		if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: et, Success: false}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetFailedLogins(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 failed logins, got %d", len(got))
	}
}
