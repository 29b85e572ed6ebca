// internal/app/store/transport/transportstore.go
package transportstore

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

var (
	ErrNotFound  = errors.New("transportation request not found")
	ErrBadStatus = errors.New(`status must be "pending", "assigned", "completed" or "cancelled"`)
)

// ValidStatus reports whether s is a transportation status.
func ValidStatus(s string) bool {
	switch s {
	case models.TransportPending, models.TransportAssigned, models.TransportCompleted, models.TransportCancelled:
		return true
	}
	return false
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("transportationRequests")}
}

// Create inserts tr. Status defaults to pending.
func (s *Store) Create(ctx context.Context, tr models.TransportationRequest) (models.TransportationRequest, error) {
	if tr.ID.IsZero() {
		tr.ID = primitive.NewObjectID()
	}
	if tr.Status == "" {
		tr.Status = models.TransportPending
	}
	now := time.Now().UTC()
	tr.CreatedAt, tr.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, tr); err != nil {
		return models.TransportationRequest{}, err
	}
	return tr, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TransportationRequest, error) {
	var tr models.TransportationRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&tr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tr, nil
}

// ListFilter narrows List. A nil UserID lists every user's requests.
type ListFilter struct {
	UserID *primitive.ObjectID
	Status string
	Limit  int64
	Skip   int64
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]models.TransportationRequest, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	find := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		find.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		find.SetSkip(f.Skip)
	}
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.TransportationRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update carries the admin-editable fields.
type Update struct {
	DriverName   *string
	DriverNumber *string
	Status       *string
}

// Update applies upd and returns the updated request together with the
// status it had before the write.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.TransportationRequest, string, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.DriverName != nil {
		set["driver_name"] = *upd.DriverName
	}
	if upd.DriverNumber != nil {
		set["driver_number"] = *upd.DriverNumber
	}
	if upd.Status != nil {
		if !ValidStatus(*upd.Status) {
			return nil, "", ErrBadStatus
		}
		set["status"] = *upd.Status
	}

	var before models.TransportationRequest
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&before); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	after := before
	if upd.DriverName != nil {
		after.DriverName = *upd.DriverName
	}
	if upd.DriverNumber != nil {
		after.DriverNumber = *upd.DriverNumber
	}
	if upd.Status != nil {
		after.Status = *upd.Status
	}
	after.UpdatedAt = set["updated_at"].(time.Time)
	return &after, before.Status, nil
}

// Delete removes a request. Used to undo a partially applied accept.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// FillPendingPickup replaces the placeholder pickup of a pending request
// with a device-captured location and marks it verified. It reports false
// when the request already has a real pickup or has moved past pending.
func (s *Store) FillPendingPickup(ctx context.Context, id primitive.ObjectID, location string, coords models.GeoPoint) (*models.TransportationRequest, bool, error) {
	filter := bson.M{
		"_id":             id,
		"status":          models.TransportPending,
		"pickup_location": models.PendingPickupLocation,
	}
	update := bson.M{"$set": bson.M{
		"pickup_location":         location,
		"pickup_coords":           coords,
		"transportation_verified": true,
		"updated_at":              time.Now().UTC(),
	}}
	var tr models.TransportationRequest
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &tr, true, nil
}
