package eventstore

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
	ErrNotFound = errors.New("event not found")
	// ErrClosed is returned when an event is not taking registrations.
	ErrClosed = errors.New("event is not accepting registrations")
	// ErrSlotsFull is returned when every volunteer slot is taken.
	ErrSlotsFull = errors.New("no more volunteer slots available")
	ErrBadStatus = errors.New(`status must be "active", "completed" or "cancelled"`)
	ErrBadSlots  = errors.New("volunteer slots must be zero or more")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

func validStatus(s string) bool {
	return s == models.EventActive || s == models.EventCompleted || s == models.EventCancelled
}

// GetByID loads an event.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts an event. The registered count always starts at zero.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	if e.Status == "" {
		e.Status = models.EventActive
	}
	if !validStatus(e.Status) {
		return models.Event{}, ErrBadStatus
	}
	if e.VolunteerSlotsNeeded < 0 {
		return models.Event{}, ErrBadSlots
	}
	e.ID = primitive.NewObjectID()
	e.RegisteredCount = 0
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// ListFilter narrows event lists.
type ListFilter struct {
	Status string
	// OpenOnly keeps events that are active and taking registrations.
	OpenOnly bool
	Limit    int64
	Skip     int64
}

// List returns events ordered by date.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Event, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.OpenOnly {
		filter["status"] = models.EventActive
		filter["allow_registrations"] = true
	}
	find := options.Find().SetSort(bson.D{{Key: "event_date", Value: 1}, {Key: "_id", Value: 1}})
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
	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the mutable event fields. Nil fields are left alone.
type Update struct {
	Title                *string
	Description          *string
	Location             *string
	EventDate            *time.Time
	StartTime            *string
	EndTime              *string
	VolunteerSlotsNeeded *int
	Status               *string
	AllowRegistrations   *bool
}

// Update applies upd and returns the updated event.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Event, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.EventDate != nil {
		set["event_date"] = *upd.EventDate
	}
	if upd.StartTime != nil {
		set["start_time"] = *upd.StartTime
	}
	if upd.EndTime != nil {
		set["end_time"] = *upd.EndTime
	}
	if upd.VolunteerSlotsNeeded != nil {
		if *upd.VolunteerSlotsNeeded < 0 {
			return nil, ErrBadSlots
		}
		set["volunteer_slots_needed"] = *upd.VolunteerSlotsNeeded
	}
	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return nil, ErrBadStatus
		}
		set["status"] = *upd.Status
	}
	if upd.AllowRegistrations != nil {
		set["allow_registrations"] = *upd.AllowRegistrations
	}

	var e models.Event
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Delete removes an event.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveSlot takes one volunteer slot. The count check and increment are
// one conditional update, so concurrent callers can never push
// registered_count past volunteer_slots_needed.
func (s *Store) ReserveSlot(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":                 id,
			"status":              models.EventActive,
			"allow_registrations": true,
			"$expr": bson.M{"$lt": bson.A{
				bson.M{"$ifNull": bson.A{"$registered_count", 0}},
				"$volunteer_slots_needed",
			}},
		},
		bson.M{
			"$inc": bson.M{"registered_count": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Work out which precondition failed.
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !e.AcceptsRegistrations() {
		return ErrClosed
	}
	return ErrSlotsFull
}

// ReleaseSlot gives back a slot taken by ReserveSlot.
func (s *Store) ReleaseSlot(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "registered_count": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"registered_count": -1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// IDsMissingCount returns events created before registered_count existed.
func (s *Store) IDsMissingCount(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"registered_count": bson.M{"$exists": false}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// SetCountIfMissing initializes registered_count once.
func (s *Store) SetCountIfMissing(ctx context.Context, id primitive.ObjectID, n int64) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "registered_count": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"registered_count": n}},
	)
	return err
}
