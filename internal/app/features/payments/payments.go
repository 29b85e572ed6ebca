// internal/app/features/payments/payments.go
package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	paymentstore "github.com/dalemusser/bloodlink/internal/app/store/payments"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBody = 4 << 10

var maxAmount = decimal.NewFromInt(1_000_000)

// parseAmount accepts a positive amount with at most two decimal places.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("Amount must be a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("Amount must be greater than zero")
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, errors.New("Amount may have at most two decimal places")
	}
	if d.GreaterThan(maxAmount) {
		return decimal.Zero, errors.New("Amount is too large")
	}
	return d, nil
}

type createOrderBody struct {
	// Amount is a string or number in major units.
	Amount json.Number `json:"amount"`
}

type orderResponseBody struct {
	OrderID  string `json:"orderId"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/payments/order                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)
	if !h.IsConfigured() {
		respond.Error(w, http.StatusServiceUnavailable, "Payments are not available")
		return
	}

	var req createOrderBody
	if err := respond.DecodeJSON(w, r, &req, maxBody); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount.String())
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create payment order")
	defer cancel()

	receipt := "rcpt_" + ulid.Make().String()
	orderID, err := h.Gateway.CreateOrder(ctx, amount, h.Currency, receipt)
	if err != nil {
		h.Log.Error("payment gateway order failed", zap.Error(err), zap.String("user_id", who.ID.Hex()))
		respond.Error(w, http.StatusBadGateway, "Could not create payment order")
		return
	}

	p, err := h.Payments.Create(ctx, models.Payment{
		OrderID:  orderID,
		UserID:   who.ID,
		Amount:   amount.StringFixed(2),
		Currency: h.Currency,
	})
	if err != nil {
		respond.Internal(w, h.Log, "record payment order", err)
		return
	}

	respond.Created(w, orderResponseBody{
		OrderID:  p.OrderID,
		Amount:   p.Amount,
		Currency: p.Currency,
		KeyID:    h.Gateway.KeyID,
	})
}

type verifyRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/payments/verify                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleVerify checks the checkout signature. A bad signature marks the
// payment failed and fails the request.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)
	if !h.IsConfigured() {
		respond.Error(w, http.StatusServiceUnavailable, "Payments are not available")
		return
	}

	var req verifyRequest
	if err := respond.DecodeJSON(w, r, &req, maxBody); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Signature = strings.TrimSpace(req.Signature)
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		respond.BadRequest(w, "orderId, paymentId and signature are required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify payment")
	defer cancel()

	valid := h.Gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature)
	status := models.PaymentVerified
	if !valid {
		status = models.PaymentFailed
	}

	p, err := h.Payments.Resolve(ctx, req.OrderID, who.ID, req.PaymentID, status)
	switch {
	case errors.Is(err, paymentstore.ErrNotFound):
		respond.NotFound(w, "Payment order not found")
		return
	case errors.Is(err, paymentstore.ErrNotPending):
		respond.BadRequest(w, "Payment has already been processed")
		return
	case err != nil:
		respond.Internal(w, h.Log, "resolve payment", err)
		return
	}

	if !valid {
		h.Log.Warn("payment signature mismatch",
			zap.String("order_id", req.OrderID),
			zap.String("user_id", who.ID.Hex()))
		respond.BadRequest(w, "Payment verification failed")
		return
	}

	h.Log.Info("payment verified",
		zap.String("order_id", p.OrderID),
		zap.String("payment_id", p.PaymentID),
		zap.String("amount", p.Amount))
	respond.OK(w, map[string]any{"message": "Payment verified", "payment": p})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/payments                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list payments")
	defer cancel()

	out, err := h.Payments.ListByUser(ctx, who.ID)
	if err != nil {
		respond.Internal(w, h.Log, "list payments", err)
		return
	}
	respond.OK(w, map[string]any{"payments": out, "count": len(out)})
}
