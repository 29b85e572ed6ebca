// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/bloodlink/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (signup, login, account deletion).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin actions (verification, corrections, CRUD).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()), zap.String("actor_kind", event.ActorKind))
	}
	if event.TargetID != nil {
		fields = append(fields, zap.String("target_type", event.TargetType), zap.String("target_id", event.TargetID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login by a user or admin.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, kind string, id primitive.ObjectID, method, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &id,
		ActorKind: kind,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"auth_method": method,
			"email":       email,
		},
	})
}

// LoginFailedUserNotFound logs a failed login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, kind, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		ActorKind:     kind,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "account not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, kind string, id primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &id,
		ActorKind:     kind,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedRateLimit logs a login refused by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "rate limited",
		Details: map[string]string{
			"email":      email,
			"limit_type": limitType,
		},
	})
}

// Signup logs a new donor account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignup,
		UserID:    &userID,
		ActorID:   &userID,
		ActorKind: audit.ActorUser,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"auth_provider": provider},
	})
}

// AccountDeleted logs a donor deleting their own account.
func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventAccountDeleted,
		UserID:    &userID,
		ActorID:   &userID,
		ActorKind: audit.ActorUser,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin Events ---

func (l *Logger) adminEvent(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, targetType string, targetID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  eventType,
		UserID:     userID,
		ActorID:    &actorID,
		ActorKind:  audit.ActorAdmin,
		TargetType: targetType,
		TargetID:   &targetID,
		IP:         getClientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    true,
		Details:    details,
	})
}

// RegistrationVerified logs a QR check-in.
func (l *Logger) RegistrationVerified(ctx context.Context, r *http.Request, adminID, registrationID, userID primitive.ObjectID, totalDonations int) {
	l.adminEvent(ctx, r, audit.EventRegistrationVerified, adminID, "event_registration", registrationID, &userID,
		map[string]string{"total_donations": intToString(totalDonations)})
}

// BloodGroupCorrected logs a lab blood group recorded against a registration.
func (l *Logger) BloodGroupCorrected(ctx context.Context, r *http.Request, adminID, registrationID primitive.ObjectID, userID *primitive.ObjectID, bloodGroup string) {
	l.adminEvent(ctx, r, audit.EventBloodGroupCorrected, adminID, "event_registration", registrationID, userID,
		map[string]string{"blood_group": bloodGroup})
}

// EventCreated logs a new donation event.
func (l *Logger) EventCreated(ctx context.Context, r *http.Request, adminID, eventID primitive.ObjectID, title string) {
	l.adminEvent(ctx, r, audit.EventEventCreated, adminID, "event", eventID, nil, map[string]string{"title": title})
}

// EventUpdated logs changes to an event.
func (l *Logger) EventUpdated(ctx context.Context, r *http.Request, adminID, eventID primitive.ObjectID, fieldsChanged string) {
	l.adminEvent(ctx, r, audit.EventEventUpdated, adminID, "event", eventID, nil, map[string]string{"fields_changed": fieldsChanged})
}

// EventDeleted logs removal of an event and its registrations.
func (l *Logger) EventDeleted(ctx context.Context, r *http.Request, adminID, eventID primitive.ObjectID, title string, registrations int64) {
	l.adminEvent(ctx, r, audit.EventEventDeleted, adminID, "event", eventID, nil, map[string]string{
		"title":         title,
		"registrations": strconv.FormatInt(registrations, 10),
	})
}

// AccountUpdated logs an admin edit of a donor account.
func (l *Logger) AccountUpdated(ctx context.Context, r *http.Request, adminID, userID primitive.ObjectID, fieldsChanged string) {
	l.adminEvent(ctx, r, audit.EventAccountUpdated, adminID, "user", userID, &userID, map[string]string{"fields_changed": fieldsChanged})
}

// AccountRemoved logs an admin deleting a donor account.
func (l *Logger) AccountRemoved(ctx context.Context, r *http.Request, adminID, userID primitive.ObjectID, email string) {
	l.adminEvent(ctx, r, audit.EventAccountRemoved, adminID, "user", userID, &userID, map[string]string{"email": email})
}

// AdminCreated logs a superadmin creating another admin.
func (l *Logger) AdminCreated(ctx context.Context, r *http.Request, actorID, adminID primitive.ObjectID, role string) {
	l.adminEvent(ctx, r, audit.EventAdminCreated, actorID, "admin", adminID, nil, map[string]string{"role": role})
}

// AdminUpdated logs changes to an admin's role or permissions.
func (l *Logger) AdminUpdated(ctx context.Context, r *http.Request, actorID, adminID primitive.ObjectID, fieldsChanged string) {
	l.adminEvent(ctx, r, audit.EventAdminUpdated, actorID, "admin", adminID, nil, map[string]string{"fields_changed": fieldsChanged})
}

// AdminDeleted logs removal of an admin.
func (l *Logger) AdminDeleted(ctx context.Context, r *http.Request, actorID, adminID primitive.ObjectID, email string) {
	l.adminEvent(ctx, r, audit.EventAdminDeleted, actorID, "admin", adminID, nil, map[string]string{"email": email})
}

// TransportUpdated logs driver assignment or a status change.
func (l *Logger) TransportUpdated(ctx context.Context, r *http.Request, adminID, transportID, userID primitive.ObjectID, fromStatus, toStatus string) {
	l.adminEvent(ctx, r, audit.EventTransportUpdated, adminID, "transportation_request", transportID, &userID, map[string]string{
		"from_status": fromStatus,
		"to_status":   toStatus,
	})
}

// BloodRequestUpdated logs an admin status or verification change.
func (l *Logger) BloodRequestUpdated(ctx context.Context, r *http.Request, adminID, requestID primitive.ObjectID, status string, verified bool) {
	l.adminEvent(ctx, r, audit.EventBloodRequestUpdated, adminID, "blood_request", requestID, nil, map[string]string{
		"status":   status,
		"verified": boolToString(verified),
	})
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func intToString(i int) string {
	return strconv.Itoa(i)
}
