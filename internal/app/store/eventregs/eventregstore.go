package eventregstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/system/regtoken"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("registration not found")
	// ErrAlreadyRegistered is returned for a second (event, user) registration.
	ErrAlreadyRegistered = errors.New("you have already registered for this event")
	// ErrAlreadyVerified is returned when a registration's token was redeemed before.
	ErrAlreadyVerified = errors.New("this registration has already been verified")
	// ErrCancelled is returned when acting on a cancelled registration.
	ErrCancelled = errors.New("this registration has been cancelled")
	// ErrNotCancellable is returned when a registration is no longer pending.
	ErrNotCancellable = errors.New("only pending registrations can be cancelled")
	// ErrTokenExhausted means every generated token collided.
	ErrTokenExhausted = errors.New("could not allocate a unique registration token")
)

type Store struct {
	c         *mongo.Collection
	newToken  func() (string, error)
	maxTokens int
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:         db.Collection("event_registrations"),
		newToken:  regtoken.New,
		maxTokens: regtoken.MaxAttempts,
	}
}

// WithTokenSource replaces the token generator. Tests use it to force
// collisions.
func (s *Store) WithTokenSource(fn func() (string, error)) *Store {
	cp := *s
	cp.newToken = fn
	return &cp
}

// isTokenDup reports whether a duplicate-key error came from the token
// index rather than the (event, user) index.
func isTokenDup(err error) bool {
	return wafflemongo.IsDup(err) && strings.Contains(err.Error(), "alphanumeric_token")
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// missingToken matches registrations without a usable token.
var missingToken = bson.A{
	bson.M{"alphanumeric_token": bson.M{"$exists": false}},
	bson.M{"alphanumeric_token": nil},
	bson.M{"alphanumeric_token": ""},
}

// Create inserts a pending, unverified registration with a fresh token.
// A token collision is retried with a new token; an (event, user)
// collision is ErrAlreadyRegistered.
func (s *Store) Create(ctx context.Context, reg models.EventRegistration) (models.EventRegistration, error) {
	now := time.Now().UTC()
	reg.ID = primitive.NewObjectID()
	reg.TokenVerified = false
	reg.DonationStatus = models.DonationPending
	reg.VerifiedAt, reg.VerifiedBy = nil, nil
	reg.CreatedAt, reg.UpdatedAt = now, now

	for i := 0; i < s.maxTokens; i++ {
		tok, err := s.newToken()
		if err != nil {
			return models.EventRegistration{}, fmt.Errorf("generate token: %w", err)
		}
		reg.AlphanumericToken = tok
		_, err = s.c.InsertOne(ctx, reg)
		switch {
		case err == nil:
			return reg, nil
		case isTokenDup(err):
			continue
		case wafflemongo.IsDup(err):
			return models.EventRegistration{}, ErrAlreadyRegistered
		default:
			return models.EventRegistration{}, err
		}
	}
	return models.EventRegistration{}, ErrTokenExhausted
}

// Exists reports whether userID already registered for eventID.
func (s *Store) Exists(ctx context.Context, eventID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"event_id": eventID, "user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID loads a registration.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EventRegistration, error) {
	var r models.EventRegistration
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// GetByToken loads a registration by its check-in code.
func (s *Store) GetByToken(ctx context.Context, token string) (*models.EventRegistration, error) {
	var r models.EventRegistration
	if err := s.c.FindOne(ctx, bson.M{"alphanumeric_token": token}).Decode(&r); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// ListByEvent returns an event's registrations, oldest first.
func (s *Store) ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.EventRegistration, error) {
	return s.list(ctx, bson.M{"event_id": eventID}, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
}

// ListByUser returns a user's registrations, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.EventRegistration, error) {
	return s.list(ctx, bson.M{"user_id": userID}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *Store) list(ctx context.Context, filter bson.M, sort bson.D) ([]models.EventRegistration, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.EventRegistration{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureToken gives reg a token if it has none and persists it. The write
// only applies while the stored document still lacks a token, so
// concurrent readers converge on whichever token landed first. Calling it
// on a registration that already has a token is a no-op.
func (s *Store) EnsureToken(ctx context.Context, reg *models.EventRegistration) error {
	if reg.AlphanumericToken != "" {
		return nil
	}
	for i := 0; i < s.maxTokens; i++ {
		tok, err := s.newToken()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		now := time.Now().UTC()
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": reg.ID, "$or": missingToken},
			bson.M{"$set": bson.M{"alphanumeric_token": tok, "updated_at": now}},
		)
		if err != nil {
			if isTokenDup(err) {
				continue
			}
			return err
		}
		if res.ModifiedCount == 1 {
			reg.AlphanumericToken = tok
			reg.UpdatedAt = now
			return nil
		}
		// Someone else filled it in, or the document is gone.
		cur, err := s.GetByID(ctx, reg.ID)
		if err != nil {
			return err
		}
		if cur.AlphanumericToken != "" {
			reg.AlphanumericToken = cur.AlphanumericToken
			reg.UpdatedAt = cur.UpdatedAt
			return nil
		}
	}
	return ErrTokenExhausted
}

// EnsureTokens runs EnsureToken over a slice in place.
func (s *Store) EnsureTokens(ctx context.Context, regs []models.EventRegistration) (int, error) {
	n := 0
	for i := range regs {
		if regs[i].AlphanumericToken != "" {
			continue
		}
		if err := s.EnsureToken(ctx, &regs[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// BackfillMissingTokens assigns tokens to every registration lacking one.
func (s *Store) BackfillMissingTokens(ctx context.Context) (int, error) {
	regs, err := s.list(ctx, bson.M{"$or": missingToken}, bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return 0, err
	}
	return s.EnsureTokens(ctx, regs)
}

// Selector identifies a registration by id or by token.
type Selector struct {
	ID    primitive.ObjectID
	Token string
}

func (sel Selector) filter() (bson.M, error) {
	switch {
	case !sel.ID.IsZero():
		return bson.M{"_id": sel.ID}, nil
	case sel.Token != "":
		return bson.M{"alphanumeric_token": sel.Token}, nil
	}
	return nil, ErrNotFound
}

// Verify redeems a registration exactly once. The flag test and the write
// are a single conditional update; a registration that was already
// verified yields ErrAlreadyVerified and is not modified.
func (s *Store) Verify(ctx context.Context, sel Selector, adminID primitive.ObjectID, at time.Time) (*models.EventRegistration, error) {
	base, err := sel.filter()
	if err != nil {
		return nil, err
	}
	filter := bson.M{"token_verified": bson.M{"$ne": true}, "donation_status": bson.M{"$ne": models.DonationCancelled}}
	for k, v := range base {
		filter[k] = v
	}

	var r models.EventRegistration
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{
		"token_verified":  true,
		"donation_status": models.DonationCompleted,
		"verified_at":     at,
		"verified_by":     adminID,
		"updated_at":      at,
	}}, opts).Decode(&r)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// No match: distinguish missing from already verified.
	var cur models.EventRegistration
	if err := s.c.FindOne(ctx, base).Decode(&cur); err != nil {
		return nil, mapErr(err)
	}
	if cur.TokenVerified {
		return &cur, ErrAlreadyVerified
	}
	return &cur, ErrCancelled
}

// RevertVerify undoes a Verify made at the given instant. It is the
// compensation path when the follow-up donor update fails and the store
// cannot run both in one transaction.
func (s *Store) RevertVerify(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "token_verified": true, "verified_at": at},
		bson.M{
			"$set":   bson.M{"token_verified": false, "donation_status": models.DonationPending, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"verified_at": "", "verified_by": ""},
		},
	)
	return err
}

// SetLabBloodGroup records a lab-determined blood group.
func (s *Store) SetLabBloodGroup(ctx context.Context, id primitive.ObjectID, bloodGroup string, adminID primitive.ObjectID) (*models.EventRegistration, error) {
	now := time.Now().UTC()
	var r models.EventRegistration
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"lab_blood_group":         bloodGroup,
			"blood_group_recorded_at": now,
			"blood_group_recorded_by": adminID,
			"updated_at":              now,
		}},
		opts,
	).Decode(&r)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// Cancel marks a user's own pending registration cancelled.
func (s *Store) Cancel(ctx context.Context, id, userID primitive.ObjectID) (*models.EventRegistration, error) {
	var r models.EventRegistration
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID, "donation_status": models.DonationPending, "token_verified": false},
		bson.M{"$set": bson.M{"donation_status": models.DonationCancelled, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&r)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	cur, gerr := s.GetByID(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if cur.UserID != userID {
		return nil, ErrNotFound
	}
	return nil, ErrNotCancellable
}

// DeletePendingByUser removes a user's pending registrations and returns
// their event ids so slots can be released.
func (s *Store) DeletePendingByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{"user_id": userID, "donation_status": models.DonationPending}
	regs, err := s.list(ctx, filter, bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(regs))
	events := make([]primitive.ObjectID, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ID)
		events = append(events, r.EventID)
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return events, nil
}

// CountActiveByEvent counts registrations holding a slot.
func (s *Store) CountActiveByEvent(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"event_id":        eventID,
		"donation_status": bson.M{"$ne": models.DonationCancelled},
	})
}

// DeleteByEvent removes all registrations for an event.
func (s *Store) DeleteByEvent(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
