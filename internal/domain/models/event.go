// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event statuses.
const (
	EventActive    = "active"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Event is a donation drive with a fixed number of volunteer slots.
// RegisteredCount is maintained by the registration workflow and is the
// value slot reservation compares against VolunteerSlotsNeeded.
type Event struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title                string              `bson:"title" json:"title"`
	Description          string              `bson:"description,omitempty" json:"description,omitempty"`
	Location             string              `bson:"location" json:"location"`
	EventDate            time.Time           `bson:"event_date" json:"eventDate"`
	StartTime            string              `bson:"start_time,omitempty" json:"startTime,omitempty"`
	EndTime              string              `bson:"end_time,omitempty" json:"endTime,omitempty"`
	VolunteerSlotsNeeded int                 `bson:"volunteer_slots_needed" json:"volunteerSlotsNeeded"`
	RegisteredCount      int                 `bson:"registered_count" json:"registeredCount"`
	Status               string              `bson:"status" json:"status"`
	AllowRegistrations   bool                `bson:"allow_registrations" json:"allowRegistrations"`
	CreatedBy            *primitive.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// AcceptsRegistrations reports whether new registrations may be taken.
func (e Event) AcceptsRegistrations() bool {
	return e.AllowRegistrations && e.Status == EventActive
}

// SlotsRemaining never goes below zero.
func (e Event) SlotsRemaining() int {
	n := e.VolunteerSlotsNeeded - e.RegisteredCount
	if n < 0 {
		return 0
	}
	return n
}
