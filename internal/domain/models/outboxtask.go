// internal/domain/models/outboxtask.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outbox task statuses.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskDone       = "done"
	TaskFailed     = "failed"
)

// OutboxTask is a durable side effect written next to a primary record and
// carried out later by the outbox worker.
type OutboxTask struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind          string             `bson:"kind" json:"kind"`
	Payload       map[string]string  `bson:"payload" json:"payload"`
	Status        string             `bson:"status" json:"status"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	NextAttemptAt time.Time          `bson:"next_attempt_at" json:"nextAttemptAt"`
	LockedUntil   *time.Time         `bson:"locked_until,omitempty" json:"lockedUntil,omitempty"`
	LastError     string             `bson:"last_error,omitempty" json:"lastError,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
