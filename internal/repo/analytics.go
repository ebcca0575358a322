package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// SalesDay is one day of paid order totals.
type SalesDay struct {
	Day     pgtype.Date
	Orders  int64
	Revenue pgtype.Numeric
}

// GetSalesDaily aggregates paid orders per day, from inclusive, to exclusive.
func (q *Queries) GetSalesDaily(ctx context.Context, from, to pgtype.Timestamptz) ([]SalesDay, error) {
	const query = `SELECT date_trunc('day', created_at)::date AS day,
			count(*), COALESCE(sum(total_amount), 0)
		FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2
		GROUP BY day ORDER BY day`
	rows, err := q.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesDay
	for rows.Next() {
		var d SalesDay
		if err := rows.Scan(&d.Day, &d.Orders, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopArtwork is an aggregate of units sold per catalog item.
type TopArtwork struct {
	ArtworkID pgtype.UUID
	Title     string
	UnitsSold int64
	Revenue   pgtype.Numeric
}

// GetTopArtworks returns best sellers across paid orders.
func (q *Queries) GetTopArtworks(ctx context.Context, limit int32) ([]TopArtwork, error) {
	const query = `SELECT oi.artwork_id, oi.title,
			COALESCE(sum(oi.quantity), 0), COALESCE(sum(oi.line_total), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.payment_status = 'paid'
		GROUP BY oi.artwork_id, oi.title
		ORDER BY sum(oi.quantity) DESC
		LIMIT $1`
	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopArtwork
	for rows.Next() {
		var t TopArtwork
		if err := rows.Scan(&t.ArtworkID, &t.Title, &t.UnitsSold, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
