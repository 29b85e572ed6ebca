package donationimagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("donation image not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("donationImages")}
}

// Create stores an uploaded image and assigns its public ImageID.
func (s *Store) Create(ctx context.Context, img models.DonationImage) (models.DonationImage, error) {
	if img.ID.IsZero() {
		img.ID = primitive.NewObjectID()
	}
	if img.ImageID == "" {
		img.ImageID = uuid.NewString()
	}
	img.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, img); err != nil {
		return models.DonationImage{}, err
	}
	return img, nil
}

// GetForUser loads an image owned by userID, including its data.
func (s *Store) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.DonationImage, error) {
	var img models.DonationImage
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&img); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// ListByUser returns image metadata newest first; image bytes are omitted.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.DonationImage, error) {
	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"image": 0})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.DonationImage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SetTransportation(ctx context.Context, id, transportID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"transportation_request_id": transportID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an image. Used to undo a partially applied upload.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
