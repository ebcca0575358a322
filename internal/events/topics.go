package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated          = "order.created"
	TopicOrderPaid             = "order.paid"
	TopicOrderCanceled         = "order.canceled"
	TopicPaymentFailed         = "payment.failed"
	TopicCustomRequestCreated  = "custom_request.created"
	TopicCustomRequestResolved = "custom_request.resolved"
	TopicSubscriptionActivated = "subscription.activated"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderCanceled,
		TopicPaymentFailed,
		TopicCustomRequestCreated,
		TopicCustomRequestResolved,
		TopicSubscriptionActivated,
	}
}
