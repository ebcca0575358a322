package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type eventReader interface {
	ListRecentDomainEvents(ctx context.Context, limit int32) ([]repo.DomainEvent, error)
}

// Replayer re-dispatches recent outbox events through a notifier. Used by the
// ops tooling after a queue outage.
type Replayer struct {
	Q        eventReader
	Notifier events.Notifier
}

// Replay re-notifies up to limit recent events, newest first. It keeps going
// on individual failures and reports them joined.
func (r *Replayer) Replay(ctx context.Context, limit int32) (int, error) {
	if r == nil || r.Q == nil || r.Notifier == nil {
		return 0, errors.New("notify: replayer not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.Q.ListRecentDomainEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("notify: load events: %w", err)
	}
	var joined error
	replayed := 0
	for _, row := range rows {
		ev := events.Event{
			Topic:       row.Topic,
			AggregateID: textValue(row.AggregateID),
			Payload:     row.Payload,
		}
		if err := r.Notifier.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("replay %s: %w", row.Topic, err))
			continue
		}
		replayed++
	}
	return replayed, joined
}

func textValue(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
