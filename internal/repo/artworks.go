package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Artwork mirrors a row of the artworks table.
type Artwork struct {
	ID                    pgtype.UUID
	Title                 string
	Slug                  string
	Description           pgtype.Text
	Price                 pgtype.Numeric
	CategoryID            pgtype.UUID
	ImageURL              pgtype.Text
	Availability          string
	Status                string
	WeightKg              pgtype.Numeric
	RequiresCustomization bool
	OfferPrice            pgtype.Numeric
	OfferPercent          pgtype.Numeric
	OfferStartsAt         pgtype.Timestamptz
	OfferEndsAt           pgtype.Timestamptz
	ForceOfferBadge       bool
	PricingSchema         []byte
	CreatedAt             pgtype.Timestamptz
}

const artworkColumns = `id, title, slug, description, price, category_id, image_url,
	availability, status, weight_kg, requires_customization,
	offer_price, offer_percent, offer_starts_at, offer_ends_at,
	force_offer_badge, pricing_schema, created_at`

func scanArtwork(row pgx.Row) (Artwork, error) {
	var a Artwork
	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Description, &a.Price, &a.CategoryID, &a.ImageURL,
		&a.Availability, &a.Status, &a.WeightKg, &a.RequiresCustomization,
		&a.OfferPrice, &a.OfferPercent, &a.OfferStartsAt, &a.OfferEndsAt,
		&a.ForceOfferBadge, &a.PricingSchema, &a.CreatedAt,
	)
	return a, err
}

// ListArtworksParams filters the catalog listing.
type ListArtworksParams struct {
	CategoryID pgtype.UUID
	Search     string
	Limit      int32
	Offset     int32
}

// ListArtworks returns active catalog rows ordered by recency.
func (q *Queries) ListArtworks(ctx context.Context, arg ListArtworksParams) ([]Artwork, error) {
	const query = `SELECT ` + artworkColumns + `
		FROM artworks
		WHERE status = 'active'
		  AND ($1::uuid IS NULL OR category_id = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := q.db.Query(ctx, query, arg.CategoryID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// CountArtworks returns the total row count for the same filters as ListArtworks.
func (q *Queries) CountArtworks(ctx context.Context, arg ListArtworksParams) (int64, error) {
	const query = `SELECT COUNT(*) FROM artworks
		WHERE status = 'active'
		  AND ($1::uuid IS NULL OR category_id = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%')`
	var total int64
	err := q.db.QueryRow(ctx, query, arg.CategoryID, arg.Search).Scan(&total)
	return total, err
}

// GetArtwork loads a single catalog row by id.
func (q *Queries) GetArtwork(ctx context.Context, id pgtype.UUID) (Artwork, error) {
	const query = `SELECT ` + artworkColumns + ` FROM artworks WHERE id = $1`
	return scanArtwork(q.db.QueryRow(ctx, query, id))
}

// ListRelatedArtworks returns other active items sharing a category.
func (q *Queries) ListRelatedArtworks(ctx context.Context, id, categoryID pgtype.UUID, limit int32) ([]Artwork, error) {
	const query = `SELECT ` + artworkColumns + `
		FROM artworks
		WHERE status = 'active' AND id <> $1
		  AND ($2::uuid IS NULL OR category_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := q.db.Query(ctx, query, id, categoryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
