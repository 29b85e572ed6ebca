// internal/domain/models/certificate.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Certificate is issued proof of cumulative donations. CertificateID and
// VerificationToken together allow an unauthenticated lookup.
type Certificate struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CertificateID     string             `bson:"certificate_id" json:"certificateId"`
	VerificationToken string             `bson:"verification_token" json:"verificationToken"`
	UserID            primitive.ObjectID `bson:"user_id" json:"userId"`
	DonorName         string             `bson:"donor_name" json:"donorName"`
	BloodGroup        string             `bson:"blood_group,omitempty" json:"bloodGroup,omitempty"`
	TotalDonations    int                `bson:"total_donations" json:"totalDonations"`
	IssuedAt          time.Time          `bson:"issued_at" json:"issuedAt"`
}
