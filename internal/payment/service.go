package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/cart"
	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/obs"
	"github.com/my-little-thingz/backend-gifts/internal/pricing"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
	"github.com/my-little-thingz/backend-gifts/internal/shipping"
)

type queryProvider interface {
	GetOrder(ctx context.Context, userID, orderID pgtype.UUID) (repo.Order, error)
	GetOrderByRazorpayID(ctx context.Context, razorpayOrderID string) (repo.Order, error)
	AttachRazorpayOrder(ctx context.Context, orderID pgtype.UUID, razorpayOrderID string) error
	MarkOrderPaid(ctx context.Context, orderID pgtype.UUID, method string) error
	ListCartLines(ctx context.Context, userID pgtype.UUID) ([]repo.CartLine, error)
	HasCompletedCustomRequest(ctx context.Context, userID pgtype.UUID) (bool, error)
}

// Service prepares gateway payment orders and settles them after signature
// verification. Amounts are always re-derived server side; client supplied
// totals are never trusted except the explicit addon amount.
type Service struct {
	Q             queryProvider
	Provider      Provider
	Shipping      *shipping.Service
	Events        *events.Bus
	Currency      string
	WebhookSecret string
	Now           func() time.Time
}

// OrderInput starts a gateway payment. With an orderId the stored order total
// is charged; without one the user's cart is quoted on the fly.
type OrderInput struct {
	OrderID    string `json:"orderId"`
	AddonTotal string `json:"addonTotal"`
}

// OrderOutput is handed to the client to open the gateway checkout.
type OrderOutput struct {
	Provider       string          `json:"provider"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	KeyID          string          `json:"keyId"`
	AmountPaise    int64           `json:"amountPaise"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	AddonTotal     decimal.Decimal `json:"addonTotal"`
	Total          decimal.Decimal `json:"total"`
	OrderNumber    string          `json:"orderNumber,omitempty"`
}

// VerifyInput carries the gateway callback fields for signature verification.
type VerifyInput struct {
	GatewayOrderID string `json:"razorpayOrderId"`
	PaymentID      string `json:"razorpayPaymentId"`
	Signature      string `json:"razorpaySignature"`
}

// VerifyOutput reports the settled order, when one is bound to the payment.
type VerifyOutput struct {
	Verified    bool   `json:"verified"`
	OrderID     string `json:"orderId,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CreateOrder opens a gateway order for either a stored order or the live
// cart quote.
func (s *Service) CreateOrder(ctx context.Context, userID string, in OrderInput) (OrderOutput, error) {
	if s == nil || s.Provider == nil {
		return OrderOutput{}, paymentUnavailable(nil)
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return OrderOutput{}, common.BadRequest("userId", "invalid user id", err)
	}

	var out OrderOutput
	if strings.TrimSpace(in.OrderID) != "" {
		out, err = s.quoteStoredOrder(ctx, uid, in.OrderID)
	} else {
		out, err = s.quoteCart(ctx, uid, in.AddonTotal)
	}
	if err != nil {
		return OrderOutput{}, err
	}

	resp, err := s.Provider.CreateOrder(ctx, OrderRequest{
		Receipt:     receiptFor(out.OrderNumber, userID, s.now()),
		AmountPaise: out.AmountPaise,
		Currency:    s.currency(),
		Notes:       map[string]string{"userId": userID},
	})
	if err != nil {
		s.countOrder("error")
		return OrderOutput{}, paymentUnavailable(err)
	}

	if strings.TrimSpace(in.OrderID) != "" {
		oid, _ := repo.UUIDValue(in.OrderID)
		if err := s.Q.AttachRazorpayOrder(ctx, oid, resp.GatewayOrderID); err != nil {
			s.countOrder("error")
			return OrderOutput{}, fmt.Errorf("attach gateway order: %w", err)
		}
	}

	out.Provider = resp.Provider
	out.GatewayOrderID = resp.GatewayOrderID
	out.KeyID = resp.KeyID
	out.Currency = resp.Currency
	s.countOrder("ok")
	return out, nil
}

// VerifyPayment checks the gateway signature and, when the payment maps to a
// stored order, marks it paid and emits an order paid event.
func (s *Service) VerifyPayment(ctx context.Context, userID string, in VerifyInput) (VerifyOutput, error) {
	if s == nil || s.Provider == nil {
		return VerifyOutput{}, paymentUnavailable(nil)
	}
	if in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return VerifyOutput{}, common.BadRequest("signature", "gateway order, payment and signature are required", nil)
	}
	if !s.Provider.VerifyPayment(in.GatewayOrderID, in.PaymentID, in.Signature) {
		s.countVerify("invalid")
		return VerifyOutput{}, &common.AppError{
			Code:       "PAYMENT_ERROR",
			Message:    "payment signature verification failed",
			HTTPStatus: http.StatusBadRequest,
		}
	}

	order, err := s.Q.GetOrderByRazorpayID(ctx, in.GatewayOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.countVerify("ok")
			return VerifyOutput{Verified: true}, nil
		}
		s.countVerify("error")
		return VerifyOutput{}, fmt.Errorf("load order by gateway id: %w", err)
	}
	if repo.UUIDString(order.UserID) != userID {
		s.countVerify("invalid")
		return VerifyOutput{}, common.NotFound("order not found", nil)
	}
	if err := s.Q.MarkOrderPaid(ctx, order.ID, s.Provider.Name()); err != nil {
		s.countVerify("error")
		return VerifyOutput{}, fmt.Errorf("mark order paid: %w", err)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderPaid, repo.UUIDString(order.ID), map[string]any{
			"orderId":     repo.UUIDString(order.ID),
			"orderNumber": order.OrderNumber,
			"userId":      userID,
			"paymentId":   in.PaymentID,
		})
	}
	s.countVerify("ok")
	return VerifyOutput{
		Verified:    true,
		OrderID:     repo.UUIDString(order.ID),
		OrderNumber: order.OrderNumber,
		Status:      "processing",
	}, nil
}

func (s *Service) quoteStoredOrder(ctx context.Context, uid pgtype.UUID, orderID string) (OrderOutput, error) {
	oid, err := repo.UUIDValue(orderID)
	if err != nil {
		return OrderOutput{}, common.BadRequest("orderId", "invalid order id", err)
	}
	order, err := s.Q.GetOrder(ctx, uid, oid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderOutput{}, common.NotFound("order not found", nil)
		}
		return OrderOutput{}, fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus == "paid" {
		return OrderOutput{}, &common.AppError{
			Code:       "PAYMENT_ERROR",
			Message:    "order is already paid",
			HTTPStatus: http.StatusConflict,
		}
	}
	total := repo.DecimalFromNumeric(order.TotalAmount)
	return OrderOutput{
		AmountPaise: paise(total),
		Subtotal:    repo.DecimalFromNumeric(order.Subtotal),
		Shipping:    repo.DecimalFromNumeric(order.ShippingCost),
		TaxAmount:   repo.DecimalFromNumeric(order.TaxAmount),
		AddonTotal:  repo.DecimalFromNumeric(order.AddonTotal),
		Total:       total,
		OrderNumber: order.OrderNumber,
	}, nil
}

func (s *Service) quoteCart(ctx context.Context, uid pgtype.UUID, addonRaw string) (OrderOutput, error) {
	rows, err := s.Q.ListCartLines(ctx, uid)
	if err != nil {
		return OrderOutput{}, fmt.Errorf("list cart lines: %w", err)
	}
	if len(rows) == 0 {
		return OrderOutput{}, common.BadRequest("cart", "cart is empty", nil)
	}
	for _, row := range rows {
		if !row.Artwork.RequiresCustomization {
			continue
		}
		approved, err := s.Q.HasCompletedCustomRequest(ctx, uid)
		if err != nil {
			return OrderOutput{}, fmt.Errorf("check customization approval: %w", err)
		}
		if !approved {
			return OrderOutput{}, &common.AppError{
				Code:       "CUSTOMIZATION_NOT_APPROVED",
				Message:    "customization request must be approved before ordering",
				HTTPStatus: http.StatusConflict,
			}
		}
		break
	}

	addon, err := parseAddon(addonRaw)
	if err != nil {
		return OrderOutput{}, common.BadRequest("addonTotal", "addonTotal must be a non-negative amount", err)
	}
	priced := pricing.Valuate(cart.Lines(rows), s.now())
	var shippingCost decimal.Decimal
	if s.Shipping != nil {
		_, shippingCost = s.Shipping.FlatCostForCart(rows)
	}
	total := priced.Subtotal.Add(shippingCost).Add(addon).Round(2)
	return OrderOutput{
		AmountPaise: paise(total),
		Subtotal:    priced.Subtotal,
		Shipping:    shippingCost,
		TaxAmount:   decimal.Zero,
		AddonTotal:  addon,
		Total:       total,
	}, nil
}

func (s *Service) countOrder(result string) {
	if obs.PaymentOrderTotal != nil {
		obs.PaymentOrderTotal.WithLabelValues(s.providerName(), result).Inc()
	}
}

func (s *Service) countVerify(result string) {
	if obs.PaymentVerifyTotal != nil {
		obs.PaymentVerifyTotal.WithLabelValues(s.providerName(), result).Inc()
	}
}

func (s *Service) providerName() string {
	if s.Provider != nil {
		return s.Provider.Name()
	}
	return "none"
}

func (s *Service) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "INR"
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// paise converts a rupee amount to the integer paise the gateway expects.
func paise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func parseAddon(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative amount")
	}
	return d.Round(2), nil
}

func receiptFor(orderNumber, userID string, now time.Time) string {
	if orderNumber != "" {
		return orderNumber
	}
	suffix := userID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "quote-" + now.Format("20060102150405") + "-" + suffix
}

func paymentUnavailable(err error) *common.AppError {
	return &common.AppError{
		Code:       "PAYMENT_ERROR",
		Message:    "payment gateway is not available",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}
