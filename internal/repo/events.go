package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// DomainEvent mirrors a row of the domain_events outbox table.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.Text
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

// InsertDomainEvent appends an event to the outbox.
func (q *Queries) InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) error {
	const query = `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, now())`
	_, err := q.db.Exec(ctx, query, NewUUID(), topic, TextOrNull(aggregateID), payload)
	return err
}

// ListRecentDomainEvents returns the newest outbox entries, mainly for
// inspection endpoints and tests.
func (q *Queries) ListRecentDomainEvents(ctx context.Context, limit int32) ([]DomainEvent, error) {
	const query = `SELECT id, topic, aggregate_id, payload, occurred_at
		FROM domain_events ORDER BY occurred_at DESC LIMIT $1`
	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DomainEvent
	for rows.Next() {
		var ev DomainEvent
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
