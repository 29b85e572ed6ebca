// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/store/audit"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// objectIDParam returns nil when the parameter is absent.
func objectIDParam(r *http.Request, name string) (*primitive.ObjectID, error) {
	raw := strings.TrimSpace(query.Get(r, name))
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ServeCategories handles GET /api/admin/audit/categories.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]any{"categories": allCategories()})
}

// ServeList handles GET /api/admin/audit with optional category,
// eventType, actorId, userId, startDate and endDate (YYYY-MM-DD) filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "eventType"))

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if category != "" && category != audit.CategoryAuth && category != audit.CategoryAdmin {
		respond.BadRequest(w, "Unknown category")
		return
	}
	if eventType != "" && !validEventType(category, eventType) {
		respond.BadRequest(w, "Unknown event type")
		return
	}

	var err error
	if filter.ActorID, err = objectIDParam(r, "actorId"); err != nil {
		respond.BadRequest(w, "Invalid actorId")
		return
	}
	if filter.UserID, err = objectIDParam(r, "userId"); err != nil {
		respond.BadRequest(w, "Invalid userId")
		return
	}

	if s := query.Get(r, "startDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respond.BadRequest(w, "startDate must be YYYY-MM-DD")
			return
		}
		filter.StartTime = &t
	}
	if s := query.Get(r, "endDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respond.BadRequest(w, "endDate must be YYYY-MM-DD")
			return
		}
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		respond.Internal(w, h.Log, "query audit events", err)
		return
	}
	total, err := h.Audit.CountByFilter(ctx, filter)
	if err != nil {
		respond.Internal(w, h.Log, "count audit events", err)
		return
	}

	// Batch fetch names. Actors may be admins or donors.
	var adminIDs, userIDs []primitive.ObjectID
	for _, e := range events {
		if e.ActorID != nil {
			if e.ActorKind == audit.ActorAdmin {
				adminIDs = append(adminIDs, *e.ActorID)
			} else {
				userIDs = append(userIDs, *e.ActorID)
			}
		}
		if e.UserID != nil {
			userIDs = append(userIDs, *e.UserID)
		}
	}
	admins, err := h.Admins.ByIDs(ctx, adminIDs)
	if err != nil {
		h.Log.Warn("failed to fetch admin names for audit log", zap.Error(err))
	}
	users, err := h.Users.ByIDs(ctx, userIDs)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.CreatedAt,
			Category:      e.Category,
			EventType:     e.EventType,
			ActorKind:     e.ActorKind,
			TargetType:    e.TargetType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.TargetID != nil {
			item.TargetID = e.TargetID.Hex()
		}
		if e.ActorID != nil {
			item.ActorName = e.ActorID.Hex()
			if a, ok := admins[*e.ActorID]; ok && e.ActorKind == audit.ActorAdmin {
				item.ActorName = a.Name
			} else if u, ok := users[*e.ActorID]; ok {
				item.ActorName = u.Name
			}
		}
		if e.UserID != nil {
			item.TargetName = e.UserID.Hex()
			if u, ok := users[*e.UserID]; ok {
				item.TargetName = u.Name
			}
		}
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	respond.OK(w, listResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}
