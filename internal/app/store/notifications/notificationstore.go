package notificationstore

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

var ErrNotFound = errors.New("notification not found")

// DefaultListLimit caps ListForRecipient when no limit is given.
const DefaultListLimit = 100

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

func prepare(n *models.Notification, now time.Time) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.RecipientType == "" {
		n.RecipientType = models.RecipientUser
	}
	n.Read = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}

func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	prepare(&n, time.Now().UTC())
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// CreateMany inserts ns unordered so one bad document does not stop the rest.
func (s *Store) CreateMany(ctx context.Context, ns []models.Notification) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(ns))
	for i := range ns {
		prepare(&ns[i], now)
		docs[i] = ns[i]
	}
	res, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if res != nil {
		return len(res.InsertedIDs), err
	}
	return 0, err
}

// ListForRecipient returns notifications newest first.
func (s *Store) ListForRecipient(ctx context.Context, recipientType string, recipientID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	filter := bson.M{"recipient_type": recipientType, "recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	find := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, recipientType string, recipientID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"recipient_type": recipientType, "recipient_id": recipientID, "read": false})
}

// MarkRead flags one notification as read. Only its recipient may do so.
func (s *Store) MarkRead(ctx context.Context, id primitive.ObjectID, recipientType string, recipientID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_type": recipientType, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, recipientType string, recipientID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"recipient_type": recipientType, "recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteForRecipient removes every notification addressed to a recipient.
func (s *Store) DeleteForRecipient(ctx context.Context, recipientType string, recipientID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"recipient_type": recipientType, "recipient_id": recipientID})
	return err
}
