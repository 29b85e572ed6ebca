// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a donor account. Recipients are users too; the role never changes.
//
// NOTE:
//   - Email is stored case-folded and is unique across users.
//   - PasswordHash is empty for accounts created through Google sign-in.
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email              string             `bson:"email" json:"email"`
	Name               string             `bson:"name" json:"name"`
	NameCI             string             `bson:"name_ci" json:"-"`
	PasswordHash       string             `bson:"password_hash,omitempty" json:"-"`
	AuthProvider       string             `bson:"auth_provider" json:"authProvider"` // password | google
	BloodGroup         string             `bson:"blood_group,omitempty" json:"bloodGroup,omitempty"`
	BloodGroupVerified bool               `bson:"blood_group_verified" json:"bloodGroupVerified"`
	Location           string             `bson:"location,omitempty" json:"location,omitempty"`
	Phone              string             `bson:"phone,omitempty" json:"phone,omitempty"`
	LastDonationDate   *time.Time         `bson:"last_donation_date,omitempty" json:"lastDonationDate,omitempty"`
	TotalDonations     int                `bson:"total_donations" json:"totalDonations"`
	HasDisease         bool               `bson:"has_disease" json:"hasDisease"`
	DiseaseDescription string             `bson:"disease_description,omitempty" json:"diseaseDescription,omitempty"`
	Role               string             `bson:"role" json:"role"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
