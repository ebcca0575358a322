package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/cart"
	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/lock"
	"github.com/my-little-thingz/backend-gifts/internal/obs"
	"github.com/my-little-thingz/backend-gifts/internal/pricing"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	ListCartLines(ctx context.Context, userID pgtype.UUID) ([]repo.CartLine, error)
	HasCompletedCustomRequest(ctx context.Context, userID pgtype.UUID) (bool, error)
	InsertOrder(ctx context.Context, p repo.InsertOrderParams) (repo.Order, error)
	InsertOrderItem(ctx context.Context, p repo.InsertOrderItemParams) error
	ClearCart(ctx context.Context, userID pgtype.UUID) error
}

// Input is the checkout commit payload.
type Input struct {
	Address       Address `json:"address"`
	PaymentMethod string  `json:"paymentMethod"`
	AddonTotal    string  `json:"addonTotal"`
	Notes         string  `json:"notes"`
}

// Output reports the materialized order.
type Output struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	AddonTotal  decimal.Decimal `json:"addonTotal"`
	Total       decimal.Decimal `json:"total"`
}

// Service materializes orders from carts inside a transaction, guarded by a
// per-user lock so a double-submitted checkout cannot clear the cart twice.
type Service struct {
	Pool    *pgxpool.Pool
	Q       *repo.Queries
	Locker  lock.Locker
	LockTTL time.Duration
	Events  *events.Bus
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create reprices the user's cart, freezes it into an order, and clears the
// cart, all atomically.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Q == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return Output{}, common.BadRequest("userId", "invalid user id", err)
	}
	addon, err := parseAddonTotal(in.AddonTotal)
	if err != nil {
		return Output{}, common.BadRequest("addonTotal", "addonTotal must be a non-negative amount", err)
	}

	var out Output
	lockErr := s.Locker.Try(ctx, lock.CheckoutKey(userID), s.LockTTL, func(ctx context.Context) error {
		out, err = s.materialize(ctx, userID, uid, in, addon)
		return err
	})
	if errors.Is(lockErr, lock.ErrHeld) {
		if obs.CheckoutLockRejections != nil {
			obs.CheckoutLockRejections.Inc()
		}
		return Output{}, &common.AppError{
			Code:       "ORDER_FAILED",
			Message:    "another checkout is already in progress",
			HTTPStatus: http.StatusConflict,
			Err:        lockErr,
		}
	}
	if lockErr != nil {
		s.countCheckout("error")
		return Output{}, lockErr
	}
	s.countCheckout("ok")
	return out, nil
}

func (s *Service) materialize(ctx context.Context, userID string, uid pgtype.UUID, in Input, addon decimal.Decimal) (Output, error) {
	if s.Pool == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	out, err := s.createOrder(ctx, s.Q.WithTx(tx), uid, in, addon)
	if err != nil {
		return Output{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, fmt.Errorf("commit checkout: %w", err)
	}

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, out.OrderID, map[string]any{
			"orderId":     out.OrderID,
			"orderNumber": out.OrderNumber,
			"userId":      userID,
			"total":       out.Total.String(),
		})
	}
	return out, nil
}

func (s *Service) createOrder(ctx context.Context, q queryProvider, uid pgtype.UUID, in Input, addon decimal.Decimal) (Output, error) {
	rows, err := q.ListCartLines(ctx, uid)
	if err != nil {
		return Output{}, fmt.Errorf("list cart lines: %w", err)
	}
	if len(rows) == 0 {
		return Output{}, &common.AppError{Code: "CART_EMPTY", Message: "cart is empty", HTTPStatus: http.StatusBadRequest}
	}
	for _, row := range rows {
		if !row.Artwork.RequiresCustomization {
			continue
		}
		approved, err := q.HasCompletedCustomRequest(ctx, uid)
		if err != nil {
			return Output{}, fmt.Errorf("check customization approval: %w", err)
		}
		s.countGate(approved)
		if !approved {
			return Output{}, &common.AppError{
				Code:       "CUSTOMIZATION_NOT_APPROVED",
				Message:    "customization request must be approved before ordering",
				HTTPStatus: http.StatusConflict,
			}
		}
		break
	}

	now := s.now()
	priced := pricing.Valuate(cart.Lines(rows), now)
	draft := BuildDraft(rows, priced, addon, now)

	address, err := json.Marshal(in.Address)
	if err != nil {
		return Output{}, fmt.Errorf("encode address: %w", err)
	}
	order, err := q.InsertOrder(ctx, repo.InsertOrderParams{
		UserID:          uid,
		OrderNumber:     draft.OrderNumber,
		Status:          "pending",
		PaymentMethod:   repo.TextOrNull(in.PaymentMethod),
		PaymentStatus:   "pending",
		Subtotal:        repo.NumericFromDecimal(draft.Subtotal),
		TaxAmount:       repo.NumericFromDecimal(draft.TaxAmount),
		ShippingCost:    repo.NumericFromDecimal(draft.Shipping),
		AddonTotal:      repo.NumericFromDecimal(draft.AddonTotal),
		TotalAmount:     repo.NumericFromDecimal(draft.Total),
		ShippingAddress: address,
	})
	if err != nil {
		return Output{}, fmt.Errorf("insert order: %w", err)
	}
	for _, item := range draft.Items {
		aid, err := repo.UUIDValue(item.ArtworkID)
		if err != nil {
			return Output{}, fmt.Errorf("order item artwork id: %w", err)
		}
		if err := q.InsertOrderItem(ctx, repo.InsertOrderItemParams{
			OrderID:         order.ID,
			ArtworkID:       aid,
			Title:           item.Title,
			Quantity:        int32(item.Quantity),
			UnitPrice:       repo.NumericFromDecimal(item.UnitPrice),
			LineTotal:       repo.NumericFromDecimal(item.LineTotal),
			SelectedOptions: item.SelectedOptions,
		}); err != nil {
			return Output{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := q.ClearCart(ctx, uid); err != nil {
		return Output{}, fmt.Errorf("clear cart: %w", err)
	}

	return Output{
		OrderID:     repo.UUIDString(order.ID),
		OrderNumber: draft.OrderNumber,
		Status:      order.Status,
		Subtotal:    draft.Subtotal,
		AddonTotal:  draft.AddonTotal,
		Total:       draft.Total,
	}, nil
}

func (s *Service) countCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countGate(approved bool) {
	if obs.CustomizationGateTotal == nil {
		return
	}
	if approved {
		obs.CustomizationGateTotal.WithLabelValues("approved").Inc()
	} else {
		obs.CustomizationGateTotal.WithLabelValues("blocked").Inc()
	}
}

func parseAddonTotal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative addon total")
	}
	return d.Round(2), nil
}
