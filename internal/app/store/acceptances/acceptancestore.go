package acceptancestore

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
	ErrNotFound = errors.New("acceptance not found")
	// ErrAlreadyAccepted is returned for a second (request, donor) acceptance.
	ErrAlreadyAccepted = errors.New("you have already accepted this blood request")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("acceptedBloodRequests")}
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// Exists reports whether userID already accepted requestID.
func (s *Store) Exists(ctx context.Context, requestID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"blood_request_id": requestID, "user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts an acceptance with status accepted.
func (s *Store) Create(ctx context.Context, a models.AcceptedBloodRequest) (models.AcceptedBloodRequest, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Status = models.AcceptanceAccepted
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AcceptedBloodRequest{}, ErrAlreadyAccepted
		}
		return models.AcceptedBloodRequest{}, err
	}
	return a, nil
}

// GetByID loads an acceptance.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AcceptedBloodRequest, error) {
	var a models.AcceptedBloodRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// GetForUser loads an acceptance only if it belongs to userID.
func (s *Store) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.AcceptedBloodRequest, error) {
	var a models.AcceptedBloodRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// GetByRequestAndUser finds the acceptance of requestID by userID.
func (s *Store) GetByRequestAndUser(ctx context.Context, requestID, userID primitive.ObjectID) (*models.AcceptedBloodRequest, error) {
	var a models.AcceptedBloodRequest
	if err := s.c.FindOne(ctx, bson.M{"blood_request_id": requestID, "user_id": userID}).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// ListByUser returns a donor's acceptances, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.AcceptedBloodRequest, error) {
	return s.list(ctx, bson.M{"user_id": userID}, 0, 0)
}

// HistoryFilter narrows the admin donation history.
type HistoryFilter struct {
	Status         string
	BloodGroup     string
	UserID         *primitive.ObjectID
	BloodRequestID *primitive.ObjectID
	Limit          int64
	Skip           int64
}

// ListHistory returns acceptances matching f, newest first.
func (s *Store) ListHistory(ctx context.Context, f HistoryFilter) ([]models.AcceptedBloodRequest, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.BloodGroup != "" {
		filter["blood_group"] = f.BloodGroup
	}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if f.BloodRequestID != nil {
		filter["blood_request_id"] = *f.BloodRequestID
	}
	return s.list(ctx, filter, f.Limit, f.Skip)
}

func (s *Store) list(ctx context.Context, filter bson.M, limit, skip int64) ([]models.AcceptedBloodRequest, error) {
	find := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		find.SetLimit(limit)
	}
	if skip > 0 {
		find.SetSkip(skip)
	}
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.AcceptedBloodRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LinkTransportation records the transportation request created for an
// acceptance and optionally advances its status.
func (s *Store) LinkTransportation(ctx context.Context, id, transportID primitive.ObjectID, status string) error {
	set := bson.M{"transportation_request_id": transportID, "updated_at": time.Now().UTC()}
	if status != "" {
		set["status"] = status
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves an acceptance to status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an acceptance. Used to undo a partially applied accept.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
