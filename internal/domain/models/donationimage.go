// internal/domain/models/donationimage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DonationImage is a geotagged photo a donor uploads, optionally linked to
// an acceptance.
type DonationImage struct {
	ID                      primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ImageID                 string              `bson:"image_id" json:"imageId"`
	UserID                  primitive.ObjectID  `bson:"user_id" json:"userId"`
	AcceptedRequestID       *primitive.ObjectID `bson:"accepted_request_id,omitempty" json:"acceptedRequestId,omitempty"`
	Image                   string              `bson:"image" json:"-"`
	Location                *GeoPoint           `bson:"location,omitempty" json:"location,omitempty"`
	CapturedAt              *time.Time          `bson:"captured_at,omitempty" json:"capturedAt,omitempty"`
	TransportationRequestID *primitive.ObjectID `bson:"transportation_request_id,omitempty" json:"transportationRequestId,omitempty"`
	CreatedAt               time.Time           `bson:"created_at" json:"createdAt"`
}
