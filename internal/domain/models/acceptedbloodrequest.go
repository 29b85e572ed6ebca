// internal/domain/models/acceptedbloodrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Acceptance statuses, in the order they progress.
const (
	AcceptanceAccepted             = "accepted"
	AcceptanceTransportationNeeded = "transportation_needed"
	AcceptanceImageUploaded        = "image_uploaded"
	AcceptanceFulfilled            = "fulfilled"
)

// AcceptedBloodRequest is a donor's commitment to a blood request.
// (BloodRequestID, UserID) is unique.
type AcceptedBloodRequest struct {
	ID                      primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	BloodRequestID          primitive.ObjectID  `bson:"blood_request_id" json:"bloodRequestId"`
	UserID                  primitive.ObjectID  `bson:"user_id" json:"userId"`
	DonorName               string              `bson:"donor_name" json:"donorName"`
	BloodGroup              string              `bson:"blood_group" json:"bloodGroup"`
	Status                  string              `bson:"status" json:"status"`
	NeedsTransportation     bool                `bson:"needs_transportation" json:"needsTransportation"`
	TransportationRequestID *primitive.ObjectID `bson:"transportation_request_id,omitempty" json:"transportationRequestId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

var acceptanceRank = map[string]int{
	AcceptanceAccepted:             0,
	AcceptanceTransportationNeeded: 1,
	AcceptanceImageUploaded:        2,
	AcceptanceFulfilled:            3,
}

// AcceptanceAdvances reports whether moving from cur to next is forward
// progress. Acceptances never move backwards.
func AcceptanceAdvances(cur, next string) bool {
	c, ok1 := acceptanceRank[cur]
	n, ok2 := acceptanceRank[next]
	return ok1 && ok2 && n > c
}
