// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, and the environment name. Everything specific
// to BloodLink lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Token signing
	JWTSecret     string        // HS256 secret (at least 32 chars outside dev)
	JWTIssuer     string        // iss claim
	UserTokenTTL  time.Duration // donor token lifetime
	AdminTokenTTL time.Duration // admin token lifetime

	// SessionKey signs the short-lived OAuth state cookie. Blank generates a
	// per-process key.
	SessionKey string

	// Email/SMTP configuration. An empty host disables email.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// WhatsApp via Twilio. Missing values disable WhatsApp.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Payment gateway
	PaymentKeyID     string
	PaymentKeySecret string
	PaymentBaseURL   string
	PaymentCurrency  string

	// Base URL for links in emails, certificates, and OAuth callbacks
	BaseURL string

	// Domain rules
	DonationIntervalDays int // minimum days between donations
	MaxImageBytes        int // cap on decoded uploaded images

	// SuperAdmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string

	// Outbox worker
	OutboxInterval    time.Duration
	OutboxBatchSize   int
	OutboxMaxAttempts int
	OutboxRetention   time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Rate limits
	LoginIPLimit     int
	LoginEmailLimit  int
	VerifyRateLimit  int // verifications per admin per minute
	LoginIPWindow    time.Duration
	LoginEmailWindow time.Duration

	// Audit logging: "all", "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Timeouts (zero keeps the defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
