package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Subscription mirrors a row of the subscriptions table.
type Subscription struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	Plan      string
	Status    string
	ExpiresAt pgtype.Timestamptz
	CreatedAt pgtype.Timestamptz
}

// UpsertSubscription activates or extends a plan for the user.
func (q *Queries) UpsertSubscription(ctx context.Context, userID pgtype.UUID, plan string, expiresAt time.Time) (Subscription, error) {
	const query = `INSERT INTO subscriptions (id, user_id, plan, status, expires_at, created_at)
		VALUES ($1, $2, $3, 'active', $4, now())
		ON CONFLICT (user_id)
		DO UPDATE SET plan = EXCLUDED.plan, status = 'active', expires_at = EXCLUDED.expires_at
		RETURNING id, user_id, plan, status, expires_at, created_at`
	var s Subscription
	err := q.db.QueryRow(ctx, query, NewUUID(), userID, plan,
		pgtype.Timestamptz{Time: expiresAt, Valid: true},
	).Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

// GetSubscription loads the user's current subscription if any.
func (q *Queries) GetSubscription(ctx context.Context, userID pgtype.UUID) (Subscription, error) {
	const query = `SELECT id, user_id, plan, status, expires_at, created_at
		FROM subscriptions WHERE user_id = $1`
	var s Subscription
	err := q.db.QueryRow(ctx, query, userID).
		Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}
