// internal/app/features/bloodrequests/handler.go
package bloodrequests

import (
	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	transportstore "github.com/dalemusser/bloodlink/internal/app/store/transport"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/eligibility"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMaxImageBytes caps the decoded size of a hospital document.
const DefaultMaxImageBytes = 5 << 20

// Config holds the blood request rules that vary by deployment.
type Config struct {
	// IntervalDays is the minimum wait between donations.
	IntervalDays int
	// MaxImageBytes caps the decoded document image.
	MaxImageBytes int
	// BaseURL prefixes links in donor alerts.
	BaseURL string
}

// Handler serves blood requests and donor acceptances.
type Handler struct {
	Client      *mongo.Client
	Requests    *bloodrequeststore.Store
	Acceptances *acceptancestore.Store
	Transport   *transportstore.Store
	Users       *userstore.Store
	Outbox      *outbox.Queue
	AuditLog    *auditlog.Logger
	Log         *zap.Logger

	IntervalDays  int
	MaxImageBytes int
	BaseURL       string
}

// NewHandler wires the handler to db. client may be nil, in which case
// an acceptance and its transportation request are written without a
// transaction.
func NewHandler(client *mongo.Client, db *mongo.Database, queue *outbox.Queue, audit *auditlog.Logger, cfg Config, logger *zap.Logger) *Handler {
	if cfg.IntervalDays <= 0 {
		cfg.IntervalDays = eligibility.DefaultIntervalDays
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	return &Handler{
		Client:        client,
		Requests:      bloodrequeststore.New(db),
		Acceptances:   acceptancestore.New(db),
		Transport:     transportstore.New(db),
		Users:         userstore.New(db),
		Outbox:        queue,
		AuditLog:      audit,
		Log:           logger,
		IntervalDays:  cfg.IntervalDays,
		MaxImageBytes: cfg.MaxImageBytes,
		BaseURL:       cfg.BaseURL,
	}
}

// bodyLimit leaves room for a base64 image plus the other fields.
func (h *Handler) bodyLimit() int64 {
	return int64(h.MaxImageBytes)*4/3 + 64<<10
}

func (h *Handler) requestLink(id string) string {
	return h.BaseURL + "/blood-requests/" + id
}
