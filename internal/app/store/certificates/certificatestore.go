// internal/app/store/certificates/certificatestore.go
package certificatestore

import (
	"context"
	"crypto/subtle"
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
	ErrNotFound      = errors.New("certificate not found")
	ErrDuplicateID   = errors.New("certificate id already issued")
	ErrTokenMismatch = errors.New("certificate token mismatch")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("certificates")}
}

// Create inserts a certificate. IssuedAt defaults to now.
func (s *Store) Create(ctx context.Context, cert models.Certificate) (models.Certificate, error) {
	if cert.ID.IsZero() {
		cert.ID = primitive.NewObjectID()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, cert); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Certificate{}, ErrDuplicateID
		}
		return models.Certificate{}, err
	}
	return cert, nil
}

// LatestForUser returns the most recently issued certificate of userID.
func (s *Store) LatestForUser(ctx context.Context, userID primitive.ObjectID) (*models.Certificate, error) {
	var cert models.Certificate
	opts := options.FindOne().SetSort(bson.D{{Key: "issued_at", Value: -1}, {Key: "_id", Value: -1}})
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&cert); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cert, nil
}

func (s *Store) GetByCertificateID(ctx context.Context, certificateID string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := s.c.FindOne(ctx, bson.M{"certificate_id": certificateID}).Decode(&cert); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cert, nil
}

// Verify returns the certificate only when both the id and token match.
// Every failure is ErrNotFound or ErrTokenMismatch so callers can answer
// uniformly without revealing which part was wrong.
func (s *Store) Verify(ctx context.Context, certificateID, token string) (*models.Certificate, error) {
	if certificateID == "" || token == "" {
		return nil, ErrNotFound
	}
	cert, err := s.GetByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(cert.VerificationToken), []byte(token)) != 1 {
		return nil, ErrTokenMismatch
	}
	return cert, nil
}

// DeleteByUser removes all certificates of userID.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
