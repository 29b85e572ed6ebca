// internal/app/features/authuser/handler.go
package authuser

import (
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/ratelimit"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves donor signup and password login.
type Handler struct {
	Users    *userstore.Store
	Tokens   *auth.TokenManager
	Limiter  *ratelimit.LoginLimiter
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, tokens *auth.TokenManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Tokens:   tokens,
		Limiter:  limiter,
		AuditLog: audit,
		Log:      logger,
	}
}

// authResponse is returned by signup and login.
type authResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}
