// internal/app/system/whatsapp/whatsapp.go
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// ErrInvalidPhone is returned when a number has no usable digits.
var ErrInvalidPhone = errors.New("whatsapp: invalid phone number")

// Config holds the messaging-provider credentials. Missing values disable
// sending.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string // e.g. +14155238886
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Sender delivers WhatsApp messages through Twilio.
type Sender struct {
	api  messageCreator
	from string
	log  *zap.Logger
}

// New returns a Sender. It is a no-op when cfg is incomplete.
func New(cfg Config, logger *zap.Logger) *Sender {
	s := &Sender{log: logger}
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return s
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	s.api = client.Api
	s.from = cfg.From
	return s
}

// Enabled reports whether credentials are configured.
func (s *Sender) Enabled() bool { return s != nil && s.api != nil }

// Send delivers body to phone. The Twilio client has no context support;
// ctx is checked before the call only.
func (s *Sender) Send(ctx context.Context, phone, body string) error {
	to, err := Address(phone)
	if err != nil {
		return err
	}
	if !s.Enabled() {
		s.log.Debug("whatsapp not configured; message dropped", zap.String("to", to))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := Address(s.from)
	if err != nil {
		return fmt.Errorf("whatsapp from: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)
	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		s.log.Debug("whatsapp sent", zap.String("sid", *resp.Sid))
	}
	return nil
}

// Address normalizes a phone number into "whatsapp:+<digits>".
func Address(phone string) (string, error) {
	p := strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 7 {
		return "", ErrInvalidPhone
	}
	return "whatsapp:+" + digits, nil
}
