package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Review mirrors a row of the reviews table.
type Review struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	ArtworkID pgtype.UUID
	OrderID   pgtype.UUID
	Rating    int16
	Comment   pgtype.Text
	CreatedAt pgtype.Timestamptz
}

// InsertReviewParams describes a new product review.
type InsertReviewParams struct {
	UserID    pgtype.UUID
	ArtworkID pgtype.UUID
	OrderID   pgtype.UUID
	Rating    int16
	Comment   pgtype.Text
}

// InsertReview stores a review; one per user/artwork/order combination.
func (q *Queries) InsertReview(ctx context.Context, arg InsertReviewParams) (Review, error) {
	const query = `INSERT INTO reviews (id, user_id, artwork_id, order_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, artwork_id, order_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		RETURNING id, user_id, artwork_id, order_id, rating, comment, created_at`
	var rv Review
	err := q.db.QueryRow(ctx, query,
		NewUUID(), arg.UserID, arg.ArtworkID, arg.OrderID, arg.Rating, arg.Comment,
	).Scan(&rv.ID, &rv.UserID, &rv.ArtworkID, &rv.OrderID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}

// ListReviewsByArtwork returns reviews for a catalog item newest first.
func (q *Queries) ListReviewsByArtwork(ctx context.Context, artworkID pgtype.UUID, limit, offset int32) ([]Review, error) {
	const query = `SELECT id, user_id, artwork_id, order_id, rating, comment, created_at
		FROM reviews WHERE artwork_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, artworkID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		var rv Review
		err := rows.Scan(&rv.ID, &rv.UserID, &rv.ArtworkID, &rv.OrderID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// HasPurchasedArtwork reports whether the artwork sits on one of the user's
// paid orders. Reviews are limited to verified purchases.
func (q *Queries) HasPurchasedArtwork(ctx context.Context, userID, orderID, artworkID pgtype.UUID) (bool, error) {
	const query = `SELECT EXISTS(
		SELECT 1 FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1 AND o.id = $2 AND o.payment_status = 'paid'
		  AND oi.artwork_id = $3)`
	var ok bool
	err := q.db.QueryRow(ctx, query, userID, orderID, artworkID).Scan(&ok)
	return ok, err
}

// RatingSummary aggregates review counts and average rating for an artwork.
type RatingSummary struct {
	Count   int64
	Average pgtype.Numeric
}

// GetRatingSummary returns the aggregate rating for an artwork.
func (q *Queries) GetRatingSummary(ctx context.Context, artworkID pgtype.UUID) (RatingSummary, error) {
	const query = `SELECT COUNT(*), COALESCE(ROUND(AVG(rating), 2), 0)
		FROM reviews WHERE artwork_id = $1`
	var s RatingSummary
	err := q.db.QueryRow(ctx, query, artworkID).Scan(&s.Count, &s.Average)
	return s, err
}

// RateableItem is a delivered order line the user has not reviewed yet.
type RateableItem struct {
	OrderID   pgtype.UUID
	ArtworkID pgtype.UUID
	Title     string
}

// ListRateableItems returns paid order lines still awaiting a review.
func (q *Queries) ListRateableItems(ctx context.Context, userID pgtype.UUID) ([]RateableItem, error) {
	const query = `SELECT oi.order_id, oi.artwork_id, oi.title
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1 AND o.payment_status = 'paid'
		  AND NOT EXISTS (
			SELECT 1 FROM reviews r
			WHERE r.user_id = $1 AND r.artwork_id = oi.artwork_id AND r.order_id = oi.order_id)
		ORDER BY o.created_at DESC`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RateableItem
	for rows.Next() {
		var it RateableItem
		if err := rows.Scan(&it.OrderID, &it.ArtworkID, &it.Title); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
