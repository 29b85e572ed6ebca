// internal/app/features/auditlog/handler.go
package auditlog

import (
	adminstore "github.com/dalemusser/bloodlink/internal/app/store/admins"
	"github.com/dalemusser/bloodlink/internal/app/store/audit"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the audit trail to superadmins.
type Handler struct {
	Audit  *audit.Store
	Admins *adminstore.Store
	Users  *userstore.Store
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  audit.New(db),
		Admins: adminstore.New(db),
		Users:  userstore.New(db),
		Log:    logger,
	}
}
