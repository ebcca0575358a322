package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/obs"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

// webhookEnvelope is the subset of the gateway webhook body we act on.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies the webhook signature against the configured secret
// and applies captured / failed payment transitions. The raw body must be
// passed unmodified since the signature covers the exact bytes.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s == nil || s.WebhookSecret == "" {
		return paymentUnavailable(errors.New("webhook secret not configured"))
	}
	if !verifyWebhookSignature(body, signature, s.WebhookSecret) {
		s.countWebhook("invalid")
		return &common.AppError{
			Code:       "PAYMENT_ERROR",
			Message:    "webhook signature verification failed",
			HTTPStatus: http.StatusBadRequest,
		}
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.countWebhook("invalid")
		return common.BadRequest("body", "malformed webhook payload", err)
	}

	switch env.Event {
	case "payment.captured":
		return s.webhookCaptured(ctx, env)
	case "payment.failed":
		return s.webhookFailed(ctx, env)
	default:
		s.countWebhook("ignored")
		return nil
	}
}

func (s *Service) webhookCaptured(ctx context.Context, env webhookEnvelope) error {
	order, err := s.Q.GetOrderByRazorpayID(ctx, env.Payload.Payment.Entity.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.countWebhook("ignored")
			return nil
		}
		s.countWebhook("error")
		return fmt.Errorf("load order by gateway id: %w", err)
	}
	if err := s.Q.MarkOrderPaid(ctx, order.ID, s.providerName()); err != nil {
		s.countWebhook("error")
		return fmt.Errorf("mark order paid: %w", err)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderPaid, repo.UUIDString(order.ID), map[string]any{
			"orderId":     repo.UUIDString(order.ID),
			"orderNumber": order.OrderNumber,
			"paymentId":   env.Payload.Payment.Entity.ID,
			"source":      "webhook",
		})
	}
	s.countWebhook("ok")
	return nil
}

func (s *Service) webhookFailed(ctx context.Context, env webhookEnvelope) error {
	aggregate := env.Payload.Payment.Entity.OrderID
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicPaymentFailed, aggregate, map[string]any{
			"gatewayOrderId": aggregate,
			"paymentId":      env.Payload.Payment.Entity.ID,
		})
	}
	s.countWebhook("ok")
	return nil
}

func (s *Service) countWebhook(result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(s.providerName(), result).Inc()
	}
}

func verifyWebhookSignature(body []byte, signature, secret string) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
