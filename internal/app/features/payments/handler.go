// internal/app/features/payments/handler.go
package payments

import (
	"net/http"
	"strings"
	"time"

	paymentstore "github.com/dalemusser/bloodlink/internal/app/store/payments"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultCurrency is used when the gateway currency is not configured.
const DefaultCurrency = "INR"

// Config holds the payment gateway key pair and endpoint.
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
}

// Handler creates gateway orders and verifies the signed result the
// client returns after checkout.
type Handler struct {
	Payments *paymentstore.Store
	Gateway  *Gateway
	Currency string
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, cfg Config, logger *zap.Logger) *Handler {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Handler{
		Payments: paymentstore.New(db),
		Gateway: &Gateway{
			KeyID:     cfg.KeyID,
			KeySecret: cfg.KeySecret,
			BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
			HTTP:      &http.Client{Timeout: 15 * time.Second},
		},
		Currency: currency,
		Log:      logger,
	}
}

// IsConfigured reports whether a key pair is present.
func (h *Handler) IsConfigured() bool {
	return h.Gateway != nil && h.Gateway.KeyID != "" && h.Gateway.KeySecret != "" && h.Gateway.BaseURL != ""
}
