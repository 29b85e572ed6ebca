package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/system/validators"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{"users", "admins", "events", "event_registrations", "bloodRequests", "audit_events"} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()
	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid user", "users", bson.M{"email": "a@example.com", "name": "Asha", "auth_provider": "password", "blood_group": "O+"}, false},
		{"google user without blood group", "users", bson.M{"email": "g@example.com", "name": "Gita", "auth_provider": "google"}, false},
		{"user missing email", "users", bson.M{"name": "Asha", "auth_provider": "password"}, true},
		{"user blank name", "users", bson.M{"email": "b@example.com", "name": "   ", "auth_provider": "password"}, true},
		{"user unknown provider", "users", bson.M{"email": "c@example.com", "name": "C", "auth_provider": "saml"}, true},
		{"user bad blood group", "users", bson.M{"email": "d@example.com", "name": "D", "auth_provider": "password", "blood_group": "C+"}, true},
		{"user negative donations", "users", bson.M{"email": "e@example.com", "name": "E", "auth_provider": "password", "total_donations": -1}, true},

		{"valid admin", "admins", bson.M{"email": "root@example.com", "name": "Root", "password_hash": "h", "role": "superadmin"}, false},
		{"admin with permissions", "admins", bson.M{"email": "desk@example.com", "name": "Desk", "password_hash": "h", "role": "admin", "permissions": bson.A{"events", "accounts"}}, false},
		{"admin unknown role", "admins", bson.M{"email": "x@example.com", "name": "X", "password_hash": "h", "role": "owner"}, true},
		{"admin unknown permission", "admins", bson.M{"email": "y@example.com", "name": "Y", "password_hash": "h", "role": "admin", "permissions": bson.A{"billing"}}, true},

		{"valid event", "events", bson.M{"title": "Drive", "event_date": now, "status": "active", "volunteer_slots_needed": 10, "registered_count": 0}, false},
		{"legacy event without count", "events", bson.M{"title": "Old Drive", "event_date": now, "status": "completed"}, false},
		{"event negative count", "events", bson.M{"title": "Drive", "event_date": now, "status": "active", "registered_count": -1}, true},
		{"event unknown status", "events", bson.M{"title": "Drive", "event_date": now, "status": "paused"}, true},
		{"event date as string", "events", bson.M{"title": "Drive", "event_date": "2026-03-01", "status": "active"}, true},

		{"valid registration", "event_registrations", bson.M{"event_id": primitive.NewObjectID(), "user_id": primitive.NewObjectID()}, false},
		{"registration missing event", "event_registrations", bson.M{"user_id": primitive.NewObjectID()}, true},

		{"valid blood request", "bloodRequests", bson.M{"requester_id": primitive.NewObjectID(), "blood_group": "AB-", "urgency": "critical", "status": "active", "quantity": 2}, false},
		{"blood request zero units", "bloodRequests", bson.M{"requester_id": primitive.NewObjectID(), "blood_group": "AB-", "urgency": "low", "status": "active", "quantity": 0}, true},
		{"blood request unknown urgency", "bloodRequests", bson.M{"requester_id": primitive.NewObjectID(), "blood_group": "AB-", "urgency": "asap", "status": "active"}, true},

		{"audit events accept anything", "audit_events", bson.M{"any_field": "any_value"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error inserting into %s", tt.coll)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("insert into %s failed: %v", tt.coll, err)
			}
		})
	}
}
