// internal/domain/models/eventregistration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Donation statuses for an event registration.
const (
	DonationPending   = "Pending"
	DonationCompleted = "Completed"
	DonationCancelled = "Cancelled"
)

// EventRegistration is one user's volunteer slot for an event.
//
// NOTE:
//   - (EventID, UserID) is unique.
//   - AlphanumericToken is unique when present. Legacy records may lack it
//     and are backfilled on read.
//   - TokenVerified flips false→true exactly once.
type EventRegistration struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	EventID            primitive.ObjectID  `bson:"event_id" json:"eventId"`
	UserID             primitive.ObjectID  `bson:"user_id" json:"userId"`
	Name               string              `bson:"name" json:"name"`
	RegistrationNumber string              `bson:"registration_number" json:"registrationNumber"`
	TimeSlot           string              `bson:"time_slot" json:"timeSlot"`
	AlphanumericToken  string              `bson:"alphanumeric_token,omitempty" json:"alphanumericToken"`
	TokenVerified      bool                `bson:"token_verified" json:"tokenVerified"`
	DonationStatus     string              `bson:"donation_status" json:"donationStatus"`
	VerifiedAt         *time.Time          `bson:"verified_at,omitempty" json:"verifiedAt,omitempty"`
	VerifiedBy         *primitive.ObjectID `bson:"verified_by,omitempty" json:"verifiedBy,omitempty"`

	LabBloodGroup        string              `bson:"lab_blood_group,omitempty" json:"labBloodGroup,omitempty"`
	BloodGroupRecordedAt *time.Time          `bson:"blood_group_recorded_at,omitempty" json:"bloodGroupRecordedAt,omitempty"`
	BloodGroupRecordedBy *primitive.ObjectID `bson:"blood_group_recorded_by,omitempty" json:"bloodGroupRecordedBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
