// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"
	"time"

	auditstore "github.com/dalemusser/bloodlink/internal/app/store/audit"
	notificationstore "github.com/dalemusser/bloodlink/internal/app/store/notifications"
	"github.com/dalemusser/bloodlink/internal/app/store/oauthstate"
	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/ratelimit"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/app/system/whatsapp"
	"github.com/dalemusser/bloodlink/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const maintenanceInterval = 10 * time.Minute

// services holds the long-lived pieces built in Startup and shared by
// BuildHandler and Shutdown.
type services struct {
	Tokens        *auth.TokenManager
	AuditLog      *auditlog.Logger
	Outbox        *outbox.Queue
	UserLogin     *ratelimit.LoginLimiter
	AdminLogin    *ratelimit.LoginLimiter
	VerifyLimiter *ratelimit.Limiter

	outboxWorker *workers.OutboxWorker
	maintenance  *workers.Maintenance
}

var (
	svcMu sync.Mutex
	svc   *services
)

func currentServices() *services {
	svcMu.Lock()
	defer svcMu.Unlock()
	return svc
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It
// configures timeouts, builds the token manager and limiters, and starts
// the outbox and maintenance workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	respond.SetDetailedErrors(coreCfg.Env == "dev")

	s := buildServices(appCfg, deps, logger)
	s.outboxWorker.Start()
	s.maintenance.Start()

	svcMu.Lock()
	svc = s
	svcMu.Unlock()
	return nil
}

// buildServices wires the shared services without starting any goroutines
// other than the limiter janitors.
func buildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *services {
	db := deps.MongoDatabase

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	if !mail.Enabled() {
		logger.Warn("SMTP not configured; emails will be dropped")
	}
	chat := whatsapp.New(whatsapp.Config{
		AccountSID: appCfg.TwilioAccountSID,
		AuthToken:  appCfg.TwilioAuthToken,
		From:       appCfg.TwilioFrom,
	}, logger)
	if !chat.Enabled() {
		logger.Warn("WhatsApp not configured; messages will be dropped")
	}

	tasks := outboxstore.New(db)
	proc := outbox.NewProcessor(tasks, notificationstore.New(db), userstore.New(db), mail, chat, outbox.Config{
		MaxAttempts: appCfg.OutboxMaxAttempts,
		BatchSize:   appCfg.OutboxBatchSize,
	}, logger)
	worker := workers.NewOutboxWorker(proc, logger, appCfg.OutboxInterval)
	queue := outbox.NewQueue(tasks)
	queue.SetWaker(worker.Wake)

	verifyLimit := appCfg.VerifyRateLimit
	if verifyLimit <= 0 {
		verifyLimit = 60
	}

	return &services{
		Tokens: auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.UserTokenTTL, appCfg.AdminTokenTTL),
		AuditLog: auditlog.New(auditstore.New(db), logger, auditlog.Config{
			Auth:  appCfg.AuditLogAuth,
			Admin: appCfg.AuditLogAdmin,
		}),
		Outbox:        queue,
		UserLogin:     ratelimit.NewLoginLimiter(appCfg.LoginIPLimit, appCfg.LoginIPWindow, appCfg.LoginEmailLimit, appCfg.LoginEmailWindow),
		AdminLogin:    ratelimit.NewLoginLimiter(appCfg.LoginIPLimit, appCfg.LoginIPWindow, appCfg.LoginEmailLimit, appCfg.LoginEmailWindow),
		VerifyLimiter: ratelimit.New(verifyLimit, time.Minute),
		outboxWorker:  worker,
		maintenance:   workers.NewMaintenance(proc, oauthstate.New(db), logger, maintenanceInterval, appCfg.OutboxRetention),
	}
}

// stop halts the workers and limiter janitors. Safe to call more than once.
func (s *services) stop() {
	if s == nil {
		return
	}
	s.Outbox.SetWaker(nil)
	s.outboxWorker.Stop()
	s.maintenance.Stop()
	s.UserLogin.Stop()
	s.AdminLogin.Stop()
	s.VerifyLimiter.Stop()
}
