package bloodrequeststore

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
	ErrNotFound  = errors.New("blood request not found")
	ErrBadStatus = errors.New(`status must be "active", "fulfilled" or "cancelled"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("bloodRequests")}
}

// ValidStatus reports whether s is a blood request status.
func ValidStatus(s string) bool {
	return s == models.RequestActive || s == models.RequestFulfilled || s == models.RequestCancelled
}

// Create inserts an active, unverified request.
func (s *Store) Create(ctx context.Context, br models.BloodRequest) (models.BloodRequest, error) {
	br.ID = primitive.NewObjectID()
	br.Status = models.RequestActive
	br.Verified = false
	now := time.Now().UTC()
	br.CreatedAt, br.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, br); err != nil {
		return models.BloodRequest{}, err
	}
	return br, nil
}

// GetByID loads a request including its document image.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.BloodRequest, error) {
	var br models.BloodRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&br); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &br, nil
}

// ListFilter selects one of the list visibility modes.
type ListFilter struct {
	RequesterID *primitive.ObjectID
	Status      string
	BloodGroup  string
	// WithImages includes document images; lists omit them by default.
	WithImages bool
	Limit      int64
	Skip       int64
}

// List returns requests newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.BloodRequest, error) {
	filter := bson.M{}
	if f.RequesterID != nil {
		filter["requester_id"] = *f.RequesterID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.BloodGroup != "" {
		filter["blood_group"] = f.BloodGroup
	}
	find := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if !f.WithImages {
		find.SetProjection(bson.M{"document_image": 0})
	}
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
	out := []models.BloodRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByIDs loads requests keyed by id, without images.
func (s *Store) ByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.BloodRequest, error) {
	out := make(map[primitive.ObjectID]models.BloodRequest, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"document_image": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var br models.BloodRequest
		if err := cur.Decode(&br); err != nil {
			return nil, err
		}
		out[br.ID] = br
	}
	return out, cur.Err()
}

// Update holds the mutable request fields.
type Update struct {
	Status   *string
	Verified *bool
}

// Update applies upd and returns the updated request.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.BloodRequest, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Status != nil {
		if !ValidStatus(*upd.Status) {
			return nil, ErrBadStatus
		}
		set["status"] = *upd.Status
	}
	if upd.Verified != nil {
		set["verified"] = *upd.Verified
	}
	var br models.BloodRequest
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"document_image": 0})
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&br); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &br, nil
}
