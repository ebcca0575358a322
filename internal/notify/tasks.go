package notify

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/my-little-thingz/backend-gifts/internal/events"
)

// TaskTypeEmail is the asynq task kind for transactional email delivery.
const TaskTypeEmail = "notify:email"

// QueueNotifications is the asynq queue notification tasks land on.
const QueueNotifications = "notifications"

// EmailTaskPayload is the serialized form of a notification task.
type EmailTaskPayload struct {
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEmailTask wraps a domain event into an asynq task.
func NewEmailTask(event events.Event) (*asynq.Task, error) {
	data, err := json.Marshal(EmailTaskPayload{
		Topic:       event.Topic,
		AggregateID: event.AggregateID,
		Payload:     json.RawMessage(event.Payload),
	})
	if err != nil {
		return nil, fmt.Errorf("notify: encode email task: %w", err)
	}
	return asynq.NewTask(TaskTypeEmail, data,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
	), nil
}
