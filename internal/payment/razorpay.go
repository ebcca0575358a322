package payment

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
	"strings"

	"github.com/my-little-thingz/backend-gifts/internal/resilience"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// Razorpay implements Provider against the Razorpay Orders API.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      resilience.HTTPClient
}

// Name implements Provider.
func (r Razorpay) Name() string { return "razorpay" }

// CreateOrder opens an order with the gateway. Amounts are in paise.
func (r Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if strings.TrimSpace(r.KeyID) == "" || strings.TrimSpace(r.KeySecret) == "" {
		return OrderResponse{}, errors.New("razorpay: credentials not configured")
	}
	if req.AmountPaise <= 0 {
		return OrderResponse{}, errors.New("razorpay: amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	body, err := json.Marshal(map[string]any{
		"amount":   req.AmountPaise,
		"currency": currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	})
	if err != nil {
		return OrderResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL()+"/orders", bytes.NewReader(body))
	if err != nil {
		return OrderResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.KeyID, r.KeySecret)

	resp, err := r.HTTP.Do(ctx, httpReq)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return OrderResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return OrderResponse{}, fmt.Errorf("razorpay: create order status %d: %s", resp.StatusCode, truncate(payload))
	}
	var decoded struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return OrderResponse{}, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if decoded.ID == "" {
		return OrderResponse{}, errors.New("razorpay: response missing order id")
	}
	return OrderResponse{
		Provider:       r.Name(),
		GatewayOrderID: decoded.ID,
		AmountPaise:    decoded.Amount,
		Currency:       decoded.Currency,
		KeyID:          r.KeyID,
	}, nil
}

// VerifyPayment checks the checkout callback signature:
// HMAC-SHA256(orderId + "|" + paymentId) keyed with the secret.
func (r Razorpay) VerifyPayment(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(r.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func (r Razorpay) baseURL() string {
	if strings.TrimSpace(r.BaseURL) != "" {
		return strings.TrimRight(r.BaseURL, "/")
	}
	return razorpayBaseURL
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
