// internal/domain/models/admin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin roles.
const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "superadmin"
)

// Admin permissions. An admin with an empty permission list has all of them.
const (
	PermEvents        = "events"
	PermRegistrations = "registrations"
	PermBloodRequests = "blood_requests"
	PermTransport     = "transportation"
	PermAccounts      = "accounts"
	PermCertificates  = "certificates"
)

// AllPermissions lists every permission an admin can be granted.
var AllPermissions = []string{
	PermEvents,
	PermRegistrations,
	PermBloodRequests,
	PermTransport,
	PermAccounts,
	PermCertificates,
}

// Admin is a back-office account. Admins live in their own collection and
// sign tokens of their own kind, so a user token can never pass an admin check.
type Admin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // admin | superadmin
	Permissions  []string           `bson:"permissions,omitempty" json:"permissions,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
