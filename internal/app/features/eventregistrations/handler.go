// internal/app/features/eventregistrations/handler.go
package eventregistrations

import (
	"context"
	"errors"
	"net/http"

	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/ratelimit"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxBodyBytes = 16 << 10

// Handler serves event registration, check-in verification, and the
// admin registration tools.
type Handler struct {
	Client   *mongo.Client
	Events   *eventstore.Store
	Regs     *eventregstore.Store
	Users    *userstore.Store
	Outbox   *outbox.Queue
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	// VerifyLimiter throttles token verification per admin. Nil disables it.
	VerifyLimiter *ratelimit.Limiter
}

// NewHandler wires the handler to db. client may be nil, in which case the
// verify workflow runs without a transaction.
func NewHandler(client *mongo.Client, db *mongo.Database, queue *outbox.Queue, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Client:   client,
		Events:   eventstore.New(db),
		Regs:     eventregstore.New(db),
		Users:    userstore.New(db),
		Outbox:   queue,
		AuditLog: audit,
		Log:      logger,
	}
}

// loadVisible loads a registration the caller may see: its owner or any
// admin. Anything else is reported as not found. The token is backfilled
// before returning. On failure the response has been written.
func (h *Handler) loadVisible(ctx context.Context, w http.ResponseWriter, r *http.Request, rawID string) (*models.EventRegistration, bool) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		respond.BadRequest(w, "Invalid registration id")
		return nil, false
	}
	who, _ := auth.Current(r)

	reg, err := h.Regs.GetByID(ctx, id)
	if errors.Is(err, eventregstore.ErrNotFound) || (err == nil && !who.IsAdmin() && reg.UserID != who.ID) {
		respond.NotFound(w, "Registration not found")
		return nil, false
	}
	if err != nil {
		respond.Internal(w, h.Log, "load registration", err)
		return nil, false
	}
	if err := h.Regs.EnsureToken(ctx, reg); err != nil {
		respond.Internal(w, h.Log, "backfill registration token", err)
		return nil, false
	}
	return reg, true
}

// verifyLimit applies VerifyLimiter keyed by the signed-in admin.
func (h *Handler) verifyLimit(next http.Handler) http.Handler {
	if h.VerifyLimiter == nil {
		return next
	}
	return h.VerifyLimiter.Middleware(func(r *http.Request) string {
		if who, ok := auth.CurrentAdmin(r); ok {
			return "admin:" + who.ID.Hex()
		}
		return ""
	})(next)
}

func urlID(r *http.Request) string { return chi.URLParam(r, "id") }
