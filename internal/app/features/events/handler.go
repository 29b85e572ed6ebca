// internal/app/features/events/handler.go
package events

import (
	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the public event listing and the admin event editor.
type Handler struct {
	Client        *mongo.Client
	Events        *eventstore.Store
	Registrations *eventregstore.Store
	AuditLog      *auditlog.Logger
	Log           *zap.Logger
}

// NewHandler wires the handler to db. client may be nil; deleting an event
// and its registrations then runs without a transaction.
func NewHandler(client *mongo.Client, db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Client:        client,
		Events:        eventstore.New(db),
		Registrations: eventregstore.New(db),
		AuditLog:      audit,
		Log:           logger,
	}
}

// eventView adds the derived slot figures clients show next to an event.
type eventView struct {
	models.Event
	SlotsRemaining         int  `json:"slotsRemaining"`
	AcceptingRegistrations bool `json:"acceptingRegistrations"`
}

func viewOf(e models.Event) eventView {
	return eventView{
		Event:                  e,
		SlotsRemaining:         e.SlotsRemaining(),
		AcceptingRegistrations: e.AcceptsRegistrations() && e.SlotsRemaining() > 0,
	}
}

func viewsOf(es []models.Event) []eventView {
	out := make([]eventView, 0, len(es))
	for _, e := range es {
		out = append(out, viewOf(e))
	}
	return out
}
