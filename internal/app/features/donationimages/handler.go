// internal/app/features/donationimages/handler.go
package donationimages

import (
	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	donationimagestore "github.com/dalemusser/bloodlink/internal/app/store/donationimages"
	transportstore "github.com/dalemusser/bloodlink/internal/app/store/transport"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMaxImageBytes caps the decoded size of an uploaded photo.
const DefaultMaxImageBytes = 5 << 20

// Handler serves geotagged donation photos. A photo linked to an
// acceptance also sets up the donor's ride to the hospital.
type Handler struct {
	Client      *mongo.Client
	Images      *donationimagestore.Store
	Acceptances *acceptancestore.Store
	Requests    *bloodrequeststore.Store
	Transport   *transportstore.Store
	Log         *zap.Logger

	MaxImageBytes int
}

// NewHandler wires the handler to db. A nil client writes without a
// transaction.
func NewHandler(client *mongo.Client, db *mongo.Database, maxImageBytes int, logger *zap.Logger) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &Handler{
		Client:        client,
		Images:        donationimagestore.New(db),
		Acceptances:   acceptancestore.New(db),
		Requests:      bloodrequeststore.New(db),
		Transport:     transportstore.New(db),
		Log:           logger,
		MaxImageBytes: maxImageBytes,
	}
}
