package payment

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockProvider is a deterministic in-process gateway for development and tests.
type MockProvider struct {
	Accept bool
	seq    atomic.Int64
}

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// CreateOrder synthesises a gateway order without a network call.
func (m *MockProvider) CreateOrder(_ context.Context, req OrderRequest) (OrderResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	return OrderResponse{
		Provider:       m.Name(),
		GatewayOrderID: fmt.Sprintf("order_mock_%d", m.seq.Add(1)),
		AmountPaise:    req.AmountPaise,
		Currency:       currency,
		KeyID:          "rzp_test_mock",
	}, nil
}

// VerifyPayment reports the configured outcome.
func (m *MockProvider) VerifyPayment(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return m.Accept
}
