package paymentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bloodlink/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("payment not found")
	ErrDuplicateOrder = errors.New("payment order already recorded")
	// ErrNotPending means the order was already verified or failed.
	ErrNotPending = errors.New("payment is not awaiting verification")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

func (s *Store) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Status = models.PaymentCreated
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Payment{}, ErrDuplicateOrder
		}
		return models.Payment{}, err
	}
	return p, nil
}

func (s *Store) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Resolve moves a created payment owned by userID to status, recording
// paymentID. A payment resolves once.
func (s *Store) Resolve(ctx context.Context, orderID string, userID primitive.ObjectID, paymentID, status string) (*models.Payment, error) {
	filter := bson.M{"order_id": orderID, "user_id": userID, "status": models.PaymentCreated}
	update := bson.M{"$set": bson.M{"status": status, "payment_id": paymentID, "updated_at": time.Now().UTC()}}
	var p models.Payment
	err := s.c.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	n, cerr := s.c.CountDocuments(ctx, bson.M{"order_id": orderID, "user_id": userID})
	if cerr != nil {
		return nil, cerr
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrNotPending
}

// ListByUser returns a user's payments newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Payment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
