// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/bloodlink/internal/app/store/audit"
)

// listItem is one audit event with actor and subject names resolved.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	ActorKind     string            `json:"actorKind,omitempty"`
	ActorName     string            `json:"actorName,omitempty"`
	TargetName    string            `json:"targetName,omitempty"`
	TargetType    string            `json:"targetType,omitempty"`
	TargetID      string            `json:"targetId,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	HasPrev    bool       `json:"hasPrev"`
	HasNext    bool       `json:"hasNext"`
}

// categoryOption describes a category and the event types it holds.
type categoryOption struct {
	Value      string   `json:"value"`
	Label      string   `json:"label"`
	EventTypes []string `json:"eventTypes"`
}

// allCategories returns the available categories for filtering.
func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication", EventTypes: eventTypesForCategory(audit.CategoryAuth)},
		{Value: audit.CategoryAdmin, Label: "Administration", EventTypes: eventTypesForCategory(audit.CategoryAdmin)},
	}
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventSignup,
		audit.EventAccountDeleted,
	}

	adminEvents := []string{
		audit.EventRegistrationVerified,
		audit.EventBloodGroupCorrected,
		audit.EventEventCreated,
		audit.EventEventUpdated,
		audit.EventEventDeleted,
		audit.EventAccountUpdated,
		audit.EventAccountRemoved,
		audit.EventAdminCreated,
		audit.EventAdminUpdated,
		audit.EventAdminDeleted,
		audit.EventTransportUpdated,
		audit.EventBloodRequestUpdated,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return all
	default:
		return nil
	}
}

func validEventType(category, eventType string) bool {
	for _, e := range eventTypesForCategory(category) {
		if e == eventType {
			return true
		}
	}
	return false
}
