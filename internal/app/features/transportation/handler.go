// internal/app/features/transportation/handler.go
package transportation

import (
	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	transportstore "github.com/dalemusser/bloodlink/internal/app/store/transport"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves transportation requests for donors and the admins who
// dispatch drivers.
type Handler struct {
	Transport   *transportstore.Store
	Acceptances *acceptancestore.Store
	Requests    *bloodrequeststore.Store
	Users       *userstore.Store
	Outbox      *outbox.Queue
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, queue *outbox.Queue, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Transport:   transportstore.New(db),
		Acceptances: acceptancestore.New(db),
		Requests:    bloodrequeststore.New(db),
		Users:       userstore.New(db),
		Outbox:      queue,
		AuditLog:    audit,
		Log:         logger,
	}
}

const maxBodyBytes = 16 << 10
