// internal/domain/models/bloodrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blood request statuses.
const (
	RequestActive    = "active"
	RequestFulfilled = "fulfilled"
	RequestCancelled = "cancelled"
)

// Who the request is for.
const (
	RequestForSelf   = "self"
	RequestForOthers = "others"
)

// Urgency levels.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// ValidUrgency reports whether u is a known urgency level.
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// BloodRequest is a broadcast call for donors of one blood group.
type BloodRequest struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterID      primitive.ObjectID `bson:"requester_id" json:"requesterId"`
	RequesterName    string             `bson:"requester_name" json:"requesterName"`
	RequesterEmail   string             `bson:"requester_email" json:"requesterEmail"`
	RequestFor       string             `bson:"request_for" json:"requestFor"`
	PatientName      string             `bson:"patient_name,omitempty" json:"patientName,omitempty"`
	PatientPhone     string             `bson:"patient_phone,omitempty" json:"patientPhone,omitempty"`
	BloodGroup       string             `bson:"blood_group" json:"bloodGroup"`
	Quantity         int                `bson:"quantity" json:"quantity"`
	Urgency          string             `bson:"urgency" json:"urgency"`
	HospitalName     string             `bson:"hospital_name,omitempty" json:"hospitalName,omitempty"`
	HospitalLocation string             `bson:"hospital_location" json:"hospitalLocation"`
	DocumentImage    string             `bson:"document_image" json:"documentImage,omitempty"`
	Status           string             `bson:"status" json:"status"`
	Verified         bool               `bson:"verified" json:"verified"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// DropLocation is where a donor travelling to this request is dropped off.
func (br *BloodRequest) DropLocation() string {
	if br.HospitalName != "" && br.HospitalLocation != "" {
		return br.HospitalName + ", " + br.HospitalLocation
	}
	if br.HospitalLocation != "" {
		return br.HospitalLocation
	}
	return br.HospitalName
}
