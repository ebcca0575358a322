package notify

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/my-little-thingz/backend-gifts/internal/events"
)

// taskEnqueuer is the slice of asynq.Client used by the notifier.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier forwards emitted domain events onto the task queue so the
// worker can deliver emails out of the request path.
type AsynqNotifier struct {
	Client taskEnqueuer
	Topics map[string]bool
	Log    zerolog.Logger
}

// NewAsynqNotifier subscribes the default notification topics.
func NewAsynqNotifier(client *asynq.Client, log zerolog.Logger) *AsynqNotifier {
	topics := make(map[string]bool)
	for _, t := range events.DefaultTopics() {
		topics[t] = true
	}
	return &AsynqNotifier{Client: client, Topics: topics, Log: log}
}

// Notify implements events.Notifier.
func (n *AsynqNotifier) Notify(ctx context.Context, event events.Event) error {
	if n == nil || n.Client == nil {
		return nil
	}
	if n.Topics != nil && !n.Topics[event.Topic] {
		return nil
	}
	task, err := NewEmailTask(event)
	if err != nil {
		return err
	}
	info, err := n.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", event.Topic, err)
	}
	n.Log.Debug().Str("topic", event.Topic).Str("task_id", info.ID).Msg("notification enqueued")
	return nil
}
