// internal/domain/models/transportationrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transportation statuses.
const (
	TransportPending   = "pending"
	TransportAssigned  = "assigned"
	TransportCompleted = "completed"
	TransportCancelled = "cancelled"
)

// Who created a transportation request.
const (
	CreatedByUser   = "user"
	CreatedByAdmin  = "admin"
	CreatedBySystem = "system"
)

// PendingPickupLocation is the placeholder used when a donor asks for
// transport while accepting a request and has not said where from yet.
const PendingPickupLocation = "To be provided by donor"

// GeoPoint is a device-reported coordinate.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// TransportationRequest tracks pickup/drop logistics for one donation.
type TransportationRequest struct {
	ID                     primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID                 primitive.ObjectID  `bson:"user_id" json:"userId"`
	AcceptedRequestID      *primitive.ObjectID `bson:"accepted_request_id,omitempty" json:"acceptedRequestId,omitempty"`
	BloodRequestID         *primitive.ObjectID `bson:"blood_request_id,omitempty" json:"bloodRequestId,omitempty"`
	PickupLocation         string              `bson:"pickup_location" json:"pickupLocation"`
	DropLocation           string              `bson:"drop_location" json:"dropLocation"`
	PickupCoords           *GeoPoint           `bson:"pickup_coords,omitempty" json:"pickupCoords,omitempty"`
	DropCoords             *GeoPoint           `bson:"drop_coords,omitempty" json:"dropCoords,omitempty"`
	HospitalName           string              `bson:"hospital_name,omitempty" json:"hospitalName,omitempty"`
	HospitalLocation       string              `bson:"hospital_location,omitempty" json:"hospitalLocation,omitempty"`
	Status                 string              `bson:"status" json:"status"`
	DriverName             string              `bson:"driver_name,omitempty" json:"driverName,omitempty"`
	DriverNumber           string              `bson:"driver_number,omitempty" json:"driverNumber,omitempty"`
	TransportationVerified bool                `bson:"transportation_verified" json:"transportationVerified"`
	CreatedBy              string              `bson:"created_by" json:"createdBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
