package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
)

func emailTask(t *testing.T, topic string, fields map[string]any) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(fields)
	require.NoError(t, err)
	task, err := NewEmailTask(events.Event{Topic: topic, AggregateID: "agg-1", Payload: payload})
	require.NoError(t, err)
	return task
}

func TestEmailTaskRoundtrip(t *testing.T) {
	task := emailTask(t, events.TopicOrderPaid, map[string]any{"orderNumber": "ORD-1"})
	require.Equal(t, TaskTypeEmail, task.Type())

	var decoded EmailTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, events.TopicOrderPaid, decoded.Topic)
	require.Equal(t, "agg-1", decoded.AggregateID)
}

func TestProcessTaskSendsEmail(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := &EmailWorker{Mail: mail, From: "store@example.com", Log: zerolog.Nop()}

	task := emailTask(t, events.TopicOrderPaid, map[string]any{
		"email":       "buyer@example.com",
		"orderNumber": "ORD-20250615-120000-abc123",
		"total":       "2150",
	})
	require.NoError(t, w.ProcessTask(context.Background(), task))

	outbox := mail.Outbox
	require.Len(t, outbox, 1)
	require.Equal(t, "buyer@example.com", outbox[0].To)
	require.Equal(t, "Payment confirmed", outbox[0].Subject)
	require.Contains(t, outbox[0].HTML, "ORD-20250615-120000-abc123")
	require.Contains(t, outbox[0].HTML, "2150")
}

func TestProcessTaskSkipsWithoutRecipient(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := &EmailWorker{Mail: mail, Log: zerolog.Nop()}

	task := emailTask(t, events.TopicOrderCreated, map[string]any{"orderNumber": "ORD-2"})
	require.NoError(t, w.ProcessTask(context.Background(), task))
	require.Empty(t, mail.Outbox)
}

func TestNotifierFiltersTopics(t *testing.T) {
	n := &AsynqNotifier{Topics: map[string]bool{events.TopicOrderPaid: true}, Log: zerolog.Nop()}
	require.NoError(t, n.Notify(context.Background(), events.Event{Topic: "unrelated.topic", Payload: []byte(`{}`)}))
}
