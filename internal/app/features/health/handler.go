// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Outbox *outboxstore.Store
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. db may be nil, in which case the
// outbox backlog is not reported.
func NewHandler(client *mongo.Client, db *mongo.Database, logger *zap.Logger) *Handler {
	h := &Handler{Client: client, Log: logger}
	if db != nil {
		h.Outbox = outboxstore.New(db)
	}
	return h
}

type healthResponse struct {
	Status   string           `json:"status"`
	Database string           `json:"database"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
	Outbox   map[string]int64 `json:"outbox,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "outbox":{"pending":0} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	// Informational only; a slow count does not fail the check.
	if h.Outbox != nil {
		if counts, err := h.Outbox.CountByStatus(ctx); err == nil {
			resp.Outbox = counts
		} else {
			h.Log.Warn("health-check: outbox count failed", zap.Error(err))
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
