package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// WishlistEntry joins a wishlist row with its catalog item.
type WishlistEntry struct {
	AddedAt pgtype.Timestamptz
	Artwork Artwork
}

// AddWishlistItem stores an artwork on the user's wishlist, idempotently.
func (q *Queries) AddWishlistItem(ctx context.Context, userID, artworkID pgtype.UUID) error {
	const query = `INSERT INTO wishlist (user_id, artwork_id, added_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, artwork_id) DO NOTHING`
	_, err := q.db.Exec(ctx, query, userID, artworkID)
	return err
}

// RemoveWishlistItem deletes a wishlist row; returns affected count.
func (q *Queries) RemoveWishlistItem(ctx context.Context, userID, artworkID pgtype.UUID) (int64, error) {
	const query = `DELETE FROM wishlist WHERE user_id = $1 AND artwork_id = $2`
	tag, err := q.db.Exec(ctx, query, userID, artworkID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// HasWishlistItem reports whether the artwork is already saved.
func (q *Queries) HasWishlistItem(ctx context.Context, userID, artworkID pgtype.UUID) (bool, error) {
	const query = `SELECT EXISTS(
		SELECT 1 FROM wishlist WHERE user_id = $1 AND artwork_id = $2)`
	var ok bool
	err := q.db.QueryRow(ctx, query, userID, artworkID).Scan(&ok)
	return ok, err
}

// ListWishlist returns the user's saved artworks newest first.
func (q *Queries) ListWishlist(ctx context.Context, userID pgtype.UUID) ([]WishlistEntry, error) {
	const query = `SELECT w.added_at,
		a.id, a.title, a.slug, a.description, a.price, a.category_id, a.image_url,
		a.availability, a.status, a.weight_kg, a.requires_customization,
		a.offer_price, a.offer_percent, a.offer_starts_at, a.offer_ends_at,
		a.force_offer_badge, a.pricing_schema, a.created_at
		FROM wishlist w
		JOIN artworks a ON a.id = w.artwork_id
		WHERE w.user_id = $1
		ORDER BY w.added_at DESC`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []WishlistEntry
	for rows.Next() {
		var e WishlistEntry
		err := rows.Scan(&e.AddedAt,
			&e.Artwork.ID, &e.Artwork.Title, &e.Artwork.Slug, &e.Artwork.Description,
			&e.Artwork.Price, &e.Artwork.CategoryID, &e.Artwork.ImageURL,
			&e.Artwork.Availability, &e.Artwork.Status, &e.Artwork.WeightKg,
			&e.Artwork.RequiresCustomization,
			&e.Artwork.OfferPrice, &e.Artwork.OfferPercent, &e.Artwork.OfferStartsAt,
			&e.Artwork.OfferEndsAt, &e.Artwork.ForceOfferBadge, &e.Artwork.PricingSchema,
			&e.Artwork.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
