package payment

import "context"

// OrderRequest captures the information required to open a gateway order.
type OrderRequest struct {
	Receipt     string
	AmountPaise int64
	Currency    string
	Notes       map[string]string
}

// OrderResponse is the minimal gateway response needed to drive client-side
// checkout.
type OrderResponse struct {
	Provider       string
	GatewayOrderID string
	AmountPaise    int64
	Currency       string
	KeyID          string
}

// Provider abstracts the upstream payment gateway.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	VerifyPayment(gatewayOrderID, paymentID, signature string) bool
}
