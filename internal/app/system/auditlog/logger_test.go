package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/store/audit"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, audit.ActorUser, primitive.NewObjectID(), "password", "a@example.com")
	logger.EventCreated(ctx, req, primitive.NewObjectID(), primitive.NewObjectID(), "Drive")
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "off"})
	userID := primitive.NewObjectID()
	logger.Signup(ctx, httptest.NewRequest("POST", "/api/auth/signup", nil), userID, "password")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_PerCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Auth to the log only, admin to the database.
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "log", Admin: "db"})
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	userID := primitive.NewObjectID()
	adminID := primitive.NewObjectID()
	regID := primitive.NewObjectID()
	logger.LoginSuccess(ctx, req, audit.ActorUser, userID, "password", "donor@example.com")
	logger.RegistrationVerified(ctx, req, adminID, regID, userID, 3)

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected only the admin event in the DB, got %d", len(events))
	}
	e := events[0]
	if e.EventType != audit.EventRegistrationVerified {
		t.Errorf("EventType = %q", e.EventType)
	}
	if e.ActorID == nil || *e.ActorID != adminID || e.ActorKind != audit.ActorAdmin {
		t.Errorf("actor = %v/%q", e.ActorID, e.ActorKind)
	}
	if e.TargetID == nil || *e.TargetID != regID {
		t.Error("target id not recorded")
	}
	if e.Details["total_donations"] != "3" {
		t.Errorf("details = %v", e.Details)
	}
	if e.IP != "203.0.113.7" {
		t.Errorf("IP = %q, want first forwarded address", e.IP)
	}
}
