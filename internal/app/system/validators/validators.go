// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Accounts
	ensure("users", usersSchema())
	ensure("admins", adminsSchema())

	// Donation drives and blood requests
	ensure("events", eventsSchema())
	ensure("event_registrations", eventRegistrationsSchema())
	ensure("bloodRequests", bloodRequestsSchema())

	// Append-only records; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enumOf(values ...string) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "name", "auth_provider"},
			"properties": bson.M{
				"email":           nonBlank,
				"name":            nonBlank,
				"auth_provider":   bson.M{"enum": bson.A{userstore.ProviderPassword, userstore.ProviderGoogle}},
				"blood_group":     bson.M{"enum": enumOf(models.BloodGroups...)},
				"total_donations": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"last_donation_date": bson.M{"bsonType": "date"},
			},
		},
	}
}

func adminsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "name", "password_hash", "role"},
			"properties": bson.M{
				"email":         nonBlank,
				"name":          nonBlank,
				"password_hash": nonBlank,
				"role":          bson.M{"enum": bson.A{models.AdminRoleAdmin, models.AdminRoleSuperAdmin}},
				"permissions": bson.M{
					"bsonType": "array",
					"items":    bson.M{"enum": enumOf(models.AllPermissions...)},
				},
			},
		},
	}
}

func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "event_date", "status"},
			"properties": bson.M{
				"title":                  nonBlank,
				"event_date":             bson.M{"bsonType": "date"},
				"status":                 bson.M{"enum": bson.A{models.EventActive, models.EventCompleted, models.EventCancelled}},
				"volunteer_slots_needed": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"registered_count":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func eventRegistrationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"event_id", "user_id"},
			"properties": bson.M{
				"event_id": bson.M{"bsonType": "objectId"},
				"user_id":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func bloodRequestsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"requester_id", "blood_group", "urgency", "status"},
			"properties": bson.M{
				"requester_id": bson.M{"bsonType": "objectId"},
				"blood_group":  bson.M{"enum": enumOf(models.BloodGroups...)},
				"urgency":      bson.M{"enum": bson.A{models.UrgencyLow, models.UrgencyMedium, models.UrgencyHigh, models.UrgencyCritical}},
				"status":       bson.M{"enum": bson.A{models.RequestActive, models.RequestFulfilled, models.RequestCancelled}},
				"quantity":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			},
		},
	}
}
