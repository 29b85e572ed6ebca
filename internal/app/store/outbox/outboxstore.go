// internal/app/store/outbox/outboxstore.go
package outboxstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoneDue is returned by ClaimDue when nothing is ready to run.
var ErrNoneDue = errors.New("no outbox task due")

// Store persists outbox tasks.
//
// A task moves pending → processing (claimed, with a lease) → done | pending
// (retry) | failed. A processing task whose lease ran out is claimable again,
// so a worker that dies mid-task does not strand it.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("outbox"), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock returns a copy of s that reads the time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	cp := *s
	cp.now = now
	return &cp
}

// NewTask builds a pending task of kind with payload.
func NewTask(kind string, payload map[string]string) models.OutboxTask {
	return models.OutboxTask{Kind: kind, Payload: payload}
}

// Enqueue inserts tasks as pending and due immediately. It honors a session
// carried in ctx, so tasks written inside txn.Run commit with the caller.
func (s *Store) Enqueue(ctx context.Context, tasks ...models.OutboxTask) error {
	if len(tasks) == 0 {
		return nil
	}
	now := s.now()
	docs := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		t.Status = models.TaskPending
		t.Attempts = 0
		if t.NextAttemptAt.IsZero() {
			t.NextAttemptAt = now
		}
		t.CreatedAt, t.UpdatedAt = now, now
		docs = append(docs, t)
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// ClaimDue atomically takes the oldest due task and leases it for lease.
// Attempts is incremented on claim.
func (s *Store) ClaimDue(ctx context.Context, lease time.Duration) (*models.OutboxTask, error) {
	now := s.now()
	filter := bson.M{"$or": bson.A{
		bson.M{"status": models.TaskPending, "next_attempt_at": bson.M{"$lte": now}},
		bson.M{"status": models.TaskProcessing, "locked_until": bson.M{"$lte": now}},
	}}
	update := bson.M{
		"$set": bson.M{
			"status":       models.TaskProcessing,
			"locked_until": now.Add(lease),
			"updated_at":   now,
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var t models.OutboxTask
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoneDue
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) MarkDone(ctx context.Context, id primitive.ObjectID) error {
	return s.finish(ctx, id, bson.M{"status": models.TaskDone, "last_error": ""})
}

// MarkRetry returns a claimed task to pending, due at next.
func (s *Store) MarkRetry(ctx context.Context, id primitive.ObjectID, next time.Time, lastErr string) error {
	return s.finish(ctx, id, bson.M{"status": models.TaskPending, "next_attempt_at": next, "last_error": lastErr})
}

// MarkFailed parks a task permanently.
func (s *Store) MarkFailed(ctx context.Context, id primitive.ObjectID, lastErr string) error {
	return s.finish(ctx, id, bson.M{"status": models.TaskFailed, "last_error": lastErr})
}

func (s *Store) finish(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = s.now()
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   set,
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}

// PurgeDone deletes completed tasks last touched before cutoff.
func (s *Store) PurgeDone(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"status": models.TaskDone, "updated_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns the number of tasks in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// GetByID is used by tests and diagnostics.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.OutboxTask, error) {
	var t models.OutboxTask
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
