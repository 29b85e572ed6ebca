// internal/app/features/notifications/handler.go
package notifications

import (
	"errors"
	"net/http"

	notificationstore "github.com/dalemusser/bloodlink/internal/app/store/notifications"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/paging"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the in-app inbox. Users and admins share the handler; the
// token kind decides whose inbox is read.
type Handler struct {
	Notifications *notificationstore.Store
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: notificationstore.New(db),
		Log:           logger,
	}
}

func recipientOf(who *auth.Identity) string {
	if who.IsAdmin() {
		return models.RecipientAdmin
	}
	return models.RecipientUser
}

type listResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Count         int                   `json:"count"`
	Unread        int64                 `json:"unread"`
}

// ServeList handles GET /api/notifications (?unread=true for unread only).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)
	kind := recipientOf(who)
	unreadOnly := query.Get(r, "unread") == "true"
	limit := paging.Parse(r).Limit

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list notifications")
	defer cancel()

	out, err := h.Notifications.ListForRecipient(ctx, kind, who.ID, unreadOnly, int64(limit))
	if err != nil {
		respond.Internal(w, h.Log, "list notifications", err)
		return
	}
	unread, err := h.Notifications.CountUnread(ctx, kind, who.ID)
	if err != nil {
		respond.Internal(w, h.Log, "count unread", err)
		return
	}
	respond.OK(w, listResponse{Notifications: out, Count: len(out), Unread: unread})
}

// HandleMarkRead handles PATCH /api/notifications/{id}/read. Someone else's
// notification looks the same as a missing one.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid notification id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark notification read")
	defer cancel()

	err = h.Notifications.MarkRead(ctx, id, recipientOf(who), who.ID)
	if errors.Is(err, notificationstore.ErrNotFound) {
		respond.NotFound(w, "Notification not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "mark notification read", err)
		return
	}
	respond.OK(w, map[string]any{"message": "Notification marked as read"})
}

// HandleMarkAllRead handles POST /api/notifications/read-all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.Current(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark all notifications read")
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, recipientOf(who), who.ID)
	if err != nil {
		respond.Internal(w, h.Log, "mark all notifications read", err)
		return
	}
	respond.OK(w, map[string]any{"message": "All notifications marked as read", "updated": n})
}
