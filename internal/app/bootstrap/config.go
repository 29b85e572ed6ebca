// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minJWTSecretLen applies outside dev.
const minJWTSecretLen = 32

// appConfigKeys defines the configuration keys for BloodLink.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: BLOODLINK_MONGO_URI, BLOODLINK_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "bloodlink", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "JWT signing secret (at least 32 characters in production)"},
	{Name: "jwt_issuer", Default: "bloodlink", Desc: "JWT issuer claim"},
	{Name: "user_token_ttl", Default: "168h", Desc: "Donor token lifetime (e.g., 168h)"},
	{Name: "admin_token_ttl", Default: "12h", Desc: "Admin token lifetime (e.g., 12h)"},
	{Name: "session_key", Default: "", Desc: "Key for signing the OAuth state cookie (blank generates one per process)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank disables email)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@bloodlink.org", Desc: "From email address"},
	{Name: "mail_from_name", Default: "BloodLink", Desc: "From display name"},

	// WhatsApp (Twilio)
	{Name: "twilio_account_sid", Default: "", Desc: "Twilio account SID"},
	{Name: "twilio_auth_token", Default: "", Desc: "Twilio auth token"},
	{Name: "twilio_whatsapp_from", Default: "", Desc: "WhatsApp sender number (e.g., +14155238886)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Payment gateway
	{Name: "payment_key_id", Default: "", Desc: "Payment gateway key id"},
	{Name: "payment_key_secret", Default: "", Desc: "Payment gateway key secret"},
	{Name: "payment_base_url", Default: "https://api.razorpay.com", Desc: "Payment gateway API base URL"},
	{Name: "payment_currency", Default: "INR", Desc: "Payment currency code"},

	// Base URL for links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for links and OAuth callbacks"},

	// Domain rules
	{Name: "donation_interval_days", Default: 90, Desc: "Minimum days between donations"},
	{Name: "max_image_bytes", Default: 5 << 20, Desc: "Maximum decoded size of uploaded images"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin (created on startup if missing)"},
	{Name: "superadmin_password", Default: "", Desc: "Initial superadmin password"},

	// Outbox worker
	{Name: "outbox_interval", Default: "5s", Desc: "How often the outbox worker polls for due tasks"},
	{Name: "outbox_batch_size", Default: 50, Desc: "Tasks claimed per outbox pass"},
	{Name: "outbox_max_attempts", Default: 5, Desc: "Attempts before an outbox task is parked as failed"},
	{Name: "outbox_retention", Default: "168h", Desc: "How long completed outbox tasks are kept"},

	// CORS
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated list of allowed origins"},

	// Rate limits
	{Name: "login_ip_limit", Default: 20, Desc: "Login attempts per IP per window"},
	{Name: "login_ip_window", Default: "1m", Desc: "Login IP window"},
	{Name: "login_email_limit", Default: 5, Desc: "Login attempts per account per window"},
	{Name: "login_email_window", Default: "5m", Desc: "Login account window"},
	{Name: "verify_rate_limit", Default: 60, Desc: "Token verifications per admin per minute"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for multi-step operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for bulk operations"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, BLOODLINK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "BLOODLINK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Tokens
		JWTSecret:     appValues.String("jwt_secret"),
		JWTIssuer:     appValues.String("jwt_issuer"),
		UserTokenTTL:  appValues.Duration("user_token_ttl", 7*24*time.Hour),
		AdminTokenTTL: appValues.Duration("admin_token_ttl", 12*time.Hour),
		SessionKey:    appValues.String("session_key"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		// WhatsApp
		TwilioAccountSID: appValues.String("twilio_account_sid"),
		TwilioAuthToken:  appValues.String("twilio_auth_token"),
		TwilioFrom:       appValues.String("twilio_whatsapp_from"),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		// Payments
		PaymentKeyID:     appValues.String("payment_key_id"),
		PaymentKeySecret: appValues.String("payment_key_secret"),
		PaymentBaseURL:   appValues.String("payment_base_url"),
		PaymentCurrency:  appValues.String("payment_currency"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		DonationIntervalDays: appValues.Int("donation_interval_days"),
		MaxImageBytes:        appValues.Int("max_image_bytes"),

		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),

		OutboxInterval:    appValues.Duration("outbox_interval", 5*time.Second),
		OutboxBatchSize:   appValues.Int("outbox_batch_size"),
		OutboxMaxAttempts: appValues.Int("outbox_max_attempts"),
		OutboxRetention:   appValues.Duration("outbox_retention", 7*24*time.Hour),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		LoginIPLimit:     appValues.Int("login_ip_limit"),
		LoginIPWindow:    appValues.Duration("login_ip_window", time.Minute),
		LoginEmailLimit:  appValues.Int("login_email_limit"),
		LoginEmailWindow: appValues.Duration("login_email_window", 5*time.Minute),
		VerifyRateLimit:  appValues.Int("verify_rate_limit"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// BloodLink validates the MongoDB URI format to catch configuration errors
// before attempting to connect, and refuses to start outside dev with a
// weak token secret.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(coreCfg.Env, appCfg)
}

func validateAppConfig(env string, appCfg AppConfig) error {
	if appCfg.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if env != "dev" && len(appCfg.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters outside dev", minJWTSecretLen)
	}
	if appCfg.DonationIntervalDays <= 0 {
		return errors.New("donation_interval_days must be positive")
	}
	if appCfg.MaxImageBytes <= 0 {
		return errors.New("max_image_bytes must be positive")
	}
	if appCfg.SuperAdminEmail != "" && appCfg.SuperAdminPassword == "" {
		return errors.New("superadmin_password is required when superadmin_email is set")
	}
	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		return errors.New("google_client_id and google_client_secret must be set together")
	}
	return nil
}
