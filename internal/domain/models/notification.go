// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recipient kinds.
const (
	RecipientUser  = "user"
	RecipientAdmin = "admin"
)

// Notification types.
const (
	NotifyEventRegistration = "event_registration"
	NotifyDonationVerified  = "donation_verified"
	NotifyBloodGroupUpdated = "blood_group_updated"
	NotifyBloodRequest      = "blood_request"
	NotifyRequestAccepted   = "blood_request_accepted"
	NotifyTransportation    = "transportation"
)

// Notification is an in-app message. Only Read ever changes after insert.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID   primitive.ObjectID `bson:"recipient_id" json:"recipientId"`
	RecipientType string             `bson:"recipient_type" json:"recipientType"`
	Title         string             `bson:"title" json:"title"`
	Message       string             `bson:"message" json:"message"`
	Type          string             `bson:"type" json:"type"`
	Data          map[string]string  `bson:"data,omitempty" json:"data,omitempty"`
	Read          bool               `bson:"read" json:"read"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}
