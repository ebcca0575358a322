package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/events"
)

type memStore struct {
	topic       string
	aggregateID string
	payload     []byte
	err         error
}

func (s *memStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.topic = topic
	s.aggregateID = aggregateID
	s.payload = payload
	return nil
}

type recordingNotifier struct {
	events []events.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.events = append(n.events, ev)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", map[string]any{"total": "2550"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, store.topic)
	require.Equal(t, "order-1", store.aggregateID)
	require.Len(t, notifier.events, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.Equal(t, "2550", payload["total"])
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}
	_, err := bus.Emit(context.Background(), "  ", "x", nil)
	require.Error(t, err)
}

func TestEmitSurfacesStoreError(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	bus := &events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, "o", nil)
	require.Error(t, err)
}

func TestEmitCollectsNotifierErrors(t *testing.T) {
	store := &memStore{}
	bad := &recordingNotifier{err: errors.New("smtp down")}
	good := &recordingNotifier{}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{bad, good}}

	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, "o", []byte(`{"k":"v"}`))
	require.Error(t, err)
	require.Len(t, good.events, 1)
}

func TestEmitRejectsMalformedRawPayload(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}
	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, "o", []byte(`{not-json`))
	require.Error(t, err)
}
