// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	adminaccountsfeature "github.com/dalemusser/bloodlink/internal/app/features/adminaccounts"
	adminauthfeature "github.com/dalemusser/bloodlink/internal/app/features/adminauth"
	auditlogfeature "github.com/dalemusser/bloodlink/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/bloodlink/internal/app/features/authgoogle"
	authuserfeature "github.com/dalemusser/bloodlink/internal/app/features/authuser"
	bloodhistoryfeature "github.com/dalemusser/bloodlink/internal/app/features/bloodhistory"
	bloodrequestsfeature "github.com/dalemusser/bloodlink/internal/app/features/bloodrequests"
	certificatesfeature "github.com/dalemusser/bloodlink/internal/app/features/certificates"
	donationimagesfeature "github.com/dalemusser/bloodlink/internal/app/features/donationimages"
	eventregsfeature "github.com/dalemusser/bloodlink/internal/app/features/eventregistrations"
	eventsfeature "github.com/dalemusser/bloodlink/internal/app/features/events"
	healthfeature "github.com/dalemusser/bloodlink/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/bloodlink/internal/app/features/notifications"
	paymentsfeature "github.com/dalemusser/bloodlink/internal/app/features/payments"
	profilefeature "github.com/dalemusser/bloodlink/internal/app/features/profile"
	transportationfeature "github.com/dalemusser/bloodlink/internal/app/features/transportation"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/metrics"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. BloodLink is a JSON API: every feature
// router is mounted under /api, with admin tools under /api/admin.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := currentServices()
	if s == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}
	return newRouter(coreCfg.Env == "prod", appCfg, deps, s, logger)
}

func newRouter(secure bool, appCfg AppConfig, deps DBDeps, s *services, logger *zap.Logger) (http.Handler, error) {
	client, db := deps.MongoClient, deps.MongoDatabase
	mw := auth.NewMiddleware(s.Tokens, logger)

	stateCookies, err := authgooglefeature.NewStateCookies(appCfg.SessionKey, secure, logger)
	if err != nil {
		logger.Error("oauth state cookie store init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check and metrics for load balancers and scrapers
	healthHandler := healthfeature.NewHandler(client, db, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		// Donor authentication
		userAuth := authuserfeature.NewHandler(db, s.Tokens, s.UserLogin, s.AuditLog, logger)
		api.Mount("/auth", authuserfeature.Routes(userAuth))

		googleAuth := authgooglefeature.NewHandler(db, s.Tokens, stateCookies, s.AuditLog,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, secure, logger)
		api.Mount("/auth/google", authgooglefeature.Routes(googleAuth))

		// Donor account
		profileHandler := profilefeature.NewHandler(client, db, s.AuditLog, appCfg.DonationIntervalDays, logger)
		api.Mount("/users/me", profilefeature.Routes(profileHandler, mw))

		// Events and registrations
		eventsHandler := eventsfeature.NewHandler(client, db, s.AuditLog, logger)
		api.Mount("/events", eventsfeature.Routes(eventsHandler))

		regsHandler := eventregsfeature.NewHandler(client, db, s.Outbox, s.AuditLog, logger)
		regsHandler.VerifyLimiter = s.VerifyLimiter
		api.Mount("/event-registrations", eventregsfeature.Routes(regsHandler, mw))

		// Blood requests, transport, and donation evidence
		requestsHandler := bloodrequestsfeature.NewHandler(client, db, s.Outbox, s.AuditLog, bloodrequestsfeature.Config{
			IntervalDays:  appCfg.DonationIntervalDays,
			MaxImageBytes: appCfg.MaxImageBytes,
			BaseURL:       appCfg.BaseURL,
		}, logger)
		api.Mount("/blood-request", bloodrequestsfeature.Routes(requestsHandler, mw))

		transportHandler := transportationfeature.NewHandler(db, s.Outbox, s.AuditLog, logger)
		api.Mount("/transportation-request", transportationfeature.Routes(transportHandler, mw))

		imagesHandler := donationimagesfeature.NewHandler(client, db, appCfg.MaxImageBytes, logger)
		api.Mount("/donation-images", donationimagesfeature.Routes(imagesHandler, mw))

		certsHandler := certificatesfeature.NewHandler(db, appCfg.BaseURL, logger)
		api.Mount("/certificates", certificatesfeature.Routes(certsHandler, mw))

		// Inbox and payments
		notesHandler := notificationsfeature.NewHandler(db, logger)
		api.Mount("/notifications", notificationsfeature.Routes(notesHandler, mw))

		paymentsHandler := paymentsfeature.NewHandler(db, paymentsfeature.Config{
			KeyID:     appCfg.PaymentKeyID,
			KeySecret: appCfg.PaymentKeySecret,
			BaseURL:   appCfg.PaymentBaseURL,
			Currency:  appCfg.PaymentCurrency,
		}, logger)
		api.Mount("/payments", paymentsfeature.Routes(paymentsHandler, mw))

		// Back office
		adminAuth := adminauthfeature.NewHandler(db, s.Tokens, s.AdminLogin, s.AuditLog, logger)
		api.Route("/admin", func(admin chi.Router) {
			admin.Mount("/", adminauthfeature.LoginRoutes(adminAuth, mw))
			admin.Mount("/admins", adminauthfeature.AdminRoutes(adminAuth, mw))
			admin.Mount("/events", eventsfeature.AdminRoutes(eventsHandler, mw))
			admin.Mount("/event-registrations", eventregsfeature.AdminRoutes(regsHandler, mw))
			admin.Mount("/accounts", adminaccountsfeature.Routes(adminaccountsfeature.NewHandler(client, db, s.AuditLog, logger), mw))
			admin.Mount("/blood-history", bloodhistoryfeature.Routes(bloodhistoryfeature.NewHandler(db, logger), mw))
			admin.Mount("/notifications", notificationsfeature.AdminRoutes(notesHandler, mw))
			admin.Mount("/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(db, logger), mw))
		})

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respond.NotFound(w, "Not found")
		})
	})

	return r, nil
}
