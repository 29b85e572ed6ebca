// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment statuses.
const (
	PaymentCreated  = "created"
	PaymentVerified = "verified"
	PaymentFailed   = "failed"
)

// Payment records a gateway order and its verification. Amount is a decimal
// string in major units (e.g. "250.00").
type Payment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   string             `bson:"order_id" json:"orderId"`
	PaymentID string             `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Amount    string             `bson:"amount" json:"amount"`
	Currency  string             `bson:"currency" json:"currency"`
	Status    string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
