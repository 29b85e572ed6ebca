// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is a single outbound message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email. The outbox dispatches through this interface.
type Sender interface {
	Send(ctx context.Context, e Email) error
	Enabled() bool
}

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// ErrNoRecipient is returned for messages without a To address.
var ErrNoRecipient = errors.New("mailer: no recipient")

// Mailer sends email over SMTP using go-mail.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

// New returns a Mailer. It does not dial until Send.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Mailer{cfg: cfg, log: logger}
}

// Enabled reports whether SMTP is configured.
func (m *Mailer) Enabled() bool { return m != nil && m.cfg.Host != "" }

// Send delivers e. When SMTP is not configured the message is logged and
// dropped.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	if !m.Enabled() {
		m.log.Debug("smtp not configured; email dropped",
			zap.String("to", e.To), zap.String("subject", e.Subject))
		return nil
	}

	msg := mail.NewMsg()
	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return fmt.Errorf("mailer from: %w", err)
		}
	} else if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mailer from: %w", err)
	}
	if err := msg.To(e.To); err != nil {
		return fmt.Errorf("mailer to: %w", err)
	}
	msg.Subject(e.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, e.TextBody)
	if e.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer send: %w", err)
	}
	return nil
}
