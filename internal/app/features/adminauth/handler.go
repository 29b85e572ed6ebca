// internal/app/features/adminauth/handler.go
package adminauth

import (
	adminstore "github.com/dalemusser/bloodlink/internal/app/store/admins"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves admin login and superadmin management of admin accounts.
type Handler struct {
	Admins   *adminstore.Store
	Tokens   *auth.TokenManager
	Limiter  *ratelimit.LoginLimiter
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, tokens *auth.TokenManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Admins:   adminstore.New(db),
		Tokens:   tokens,
		Limiter:  limiter,
		AuditLog: audit,
		Log:      logger,
	}
}
