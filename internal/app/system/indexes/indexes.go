// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"admins", ensureAdmins},
		{"events", ensureEvents},
		{"event_registrations", ensureEventRegistrations},
		{"bloodRequests", ensureBloodRequests},
		{"acceptedBloodRequests", ensureAcceptedBloodRequests},
		{"transportationRequests", ensureTransportationRequests},
		{"notifications", ensureNotifications},
		{"certificates", ensureCertificates},
		{"donationImages", ensureDonationImages},
		{"outbox", ensureOutbox},
		{"audit_events", ensureAuditEvents},
		{"payments", ensurePayments},
		{"oauth_states", ensureOAuthStates},
	}

	var problems []string
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name or with other options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops the index named old and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("drop %s: %w", old, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		return err
	}
	return nil
}

func describeCreateErr(coll *mongo.Collection, name string, unique bool, err error) string {
	if isDuplicateKeyErr(err) && unique {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(m.Keys.(bson.D))
		unique := boolVal(desiredUnique)
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique),
		}

		ex, found := listExisting(ctx, coll)[desiredSig]
		switch {
		case found && boolVal(ex.Unique) == unique && (desiredName == "" || ex.Name == desiredName):
			zap.L().Debug("reusing existing index", fields...)
			continue

		case found:
			// Same keys but a different name or uniqueness: align by recreating.
			if err := recreate(ctx, coll, ex.Name, m); err != nil {
				zap.L().Warn("index recreate failed", append(fields, zap.Error(err))...)
				errs = append(errs, describeCreateErr(coll, desiredName, unique, err))
				continue
			}
			zap.L().Info("index dropped and recreated",
				append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			if ex2, ok := listExisting(ctx, coll)[desiredSig]; ok {
				err = recreate(ctx, coll, ex2.Name, m)
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			errs = append(errs, describeCreateErr(coll, desiredName, unique, err))
			continue
		}
		zap.L().Info("index ensured",
			append(fields, zap.String("created_name", created), zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Donor matching by blood group.
		{
			Keys:    bson.D{{Key: "blood_group", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_bloodgroup__id"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_nameci__id"),
		},
	})
}

func ensureAdmins(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("admins"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_admins_email"),
		},
	})
}

func ensureEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "event_date", Value: 1}},
			Options: options.Index().SetName("idx_events_status_date"),
		},
	})
}

func ensureEventRegistrations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("event_registrations"), []mongo.IndexModel{
		// At most one registration per (event, user).
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_eventregs_event_user"),
		},
		// Token uniqueness; legacy rows without a token (or with "") are excluded.
		{
			Keys: bson.D{{Key: "alphanumeric_token", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_eventregs_token").
				SetPartialFilterExpression(bson.M{"alphanumeric_token": bson.M{"$gt": ""}}),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_eventregs_user_created"),
		},
	})
}

func ensureBloodRequests(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("bloodRequests"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_bloodreq_status_created"),
		},
		{
			Keys:    bson.D{{Key: "requester_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_bloodreq_requester_created"),
		},
	})
}

func ensureAcceptedBloodRequests(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("acceptedBloodRequests"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "blood_request_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_accepted_request_user"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_accepted_user_created"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_accepted_created"),
		},
	})
}

func ensureTransportationRequests(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("transportationRequests"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transport_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transport_status_created"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("notifications"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "recipient_type", Value: 1},
				{Key: "recipient_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_notif_recipient_created"),
		},
	})
}

func ensureCertificates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("certificates"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "certificate_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_certs_certid"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "issued_at", Value: -1}},
			Options: options.Index().SetName("idx_certs_user_issued"),
		},
	})
}

func ensureDonationImages(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("donationImages"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_images_user_created"),
		},
	})
}

func ensureOutbox(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("outbox"), []mongo.IndexModel{
		// Claim path: due pending tasks, oldest first.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}},
			Options: options.Index().SetName("idx_outbox_status_next"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("idx_outbox_status_updated"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_created"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_created"),
		},
	})
}

func ensurePayments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("payments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_payments_order"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		{
			// TTL
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	})
}
