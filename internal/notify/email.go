package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
)

// EmailWorker turns queued notification tasks into outbound emails.
type EmailWorker struct {
	Mail common.EmailSender
	From string
	Log  zerolog.Logger
}

// ProcessTask implements asynq.Handler for TaskTypeEmail.
func (w *EmailWorker) ProcessTask(_ context.Context, task *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("notify: decode email task: %w", err)
	}
	fields := map[string]any{}
	if len(payload.Payload) > 0 {
		if err := json.Unmarshal(payload.Payload, &fields); err != nil {
			return fmt.Errorf("notify: decode event payload: %w", err)
		}
	}
	to := recipientOf(fields)
	if to == "" {
		w.Log.Debug().Str("topic", payload.Topic).Msg("notification has no recipient, skipping")
		return nil
	}
	if w.Mail == nil {
		return nil
	}
	return w.Mail.Send(to, subjectFor(payload.Topic), bodyFor(payload.Topic, fields))
}

// Mux returns an asynq mux with all notification handlers registered.
func (w *EmailWorker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeEmail, w)
	return mux
}

func recipientOf(fields map[string]any) string {
	for _, key := range []string{"email", "recipient", "userEmail", "customerEmail"} {
		if s, ok := fields[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return "We received your order"
	case events.TopicOrderPaid:
		return "Payment confirmed"
	case events.TopicOrderCanceled:
		return "Your order was cancelled"
	case events.TopicPaymentFailed:
		return "Payment failed"
	case events.TopicCustomRequestCreated:
		return "Customization request received"
	case events.TopicCustomRequestResolved:
		return "Customization request update"
	case events.TopicSubscriptionActivated:
		return "Welcome aboard"
	default:
		return "Notification: " + topic
	}
}

func bodyFor(topic string, fields map[string]any) string {
	var b strings.Builder
	switch topic {
	case events.TopicOrderCreated:
		b.WriteString("<p>Thanks for your order! We are getting it ready.</p>")
	case events.TopicOrderPaid:
		b.WriteString("<p>Your payment went through and your order is now being prepared.</p>")
	case events.TopicOrderCanceled:
		b.WriteString("<p>Your order has been cancelled.</p>")
	case events.TopicPaymentFailed:
		b.WriteString("<p>We could not process your payment. Please try again.</p>")
	case events.TopicCustomRequestCreated:
		b.WriteString("<p>We received your customization request and will review it shortly.</p>")
	case events.TopicCustomRequestResolved:
		b.WriteString("<p>There is an update on your customization request.</p>")
	case events.TopicSubscriptionActivated:
		b.WriteString("<p>Your membership is active. Enjoy the perks!</p>")
	default:
		b.WriteString("<p>There is news on your account.</p>")
	}
	if orderNumber, ok := fields["orderNumber"].(string); ok && orderNumber != "" {
		fmt.Fprintf(&b, "<p>Order number: %s</p>", orderNumber)
	}
	if status, ok := fields["status"].(string); ok && status != "" {
		fmt.Fprintf(&b, "<p>Status: %s</p>", status)
	}
	if total, ok := fields["total"].(string); ok && total != "" {
		fmt.Fprintf(&b, "<p>Total: %s</p>", total)
	}
	return b.String()
}
