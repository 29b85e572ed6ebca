// internal/app/features/payments/gateway.go
package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

var errNoOrderID = errors.New("gateway response missing order id")

// Gateway talks to the hosted checkout provider's orders API.
type Gateway struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder registers an order for amount (major units) and returns the
// gateway's order id. The gateway takes amounts in minor units.
func (g *Gateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error) {
	payload, err := json.Marshal(orderRequest{
		Amount:   amount.Shift(2).IntPart(),
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.KeyID, g.KeySecret)

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("create order: gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out orderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode order: %w", err)
	}
	if out.ID == "" {
		return "", errNoOrderID
	}
	return out.ID, nil
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under the key
// secret.
func (g *Gateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against Sign in constant time.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) bool {
	want, err := hex.DecodeString(g.Sign(orderID, paymentID))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
