// internal/app/features/profile/handler.go
package profile

import (
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/accounts"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/eligibility"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the signed-in donor's own account endpoints.
type Handler struct {
	Users        *userstore.Store
	Remover      *accounts.Remover
	AuditLog     *auditlog.Logger
	Log          *zap.Logger
	IntervalDays int
}

// NewHandler constructs a Handler bound to db. client may be nil.
func NewHandler(client *mongo.Client, db *mongo.Database, audit *auditlog.Logger, intervalDays int, logger *zap.Logger) *Handler {
	if intervalDays <= 0 {
		intervalDays = eligibility.DefaultIntervalDays
	}
	return &Handler{
		Users:        userstore.New(db),
		Remover:      accounts.NewRemover(client, db, logger),
		AuditLog:     audit,
		Log:          logger,
		IntervalDays: intervalDays,
	}
}
