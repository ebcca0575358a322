package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// CartItem mirrors a row of the cart_items table.
type CartItem struct {
	ID                     pgtype.UUID
	UserID                 pgtype.UUID
	ArtworkID              pgtype.UUID
	Quantity               int32
	SelectedOptions        []byte
	CustomizationRequestID pgtype.UUID
	AddedAt                pgtype.Timestamptz
}

// CartLine joins a cart row with the catalog fields needed for pricing.
type CartLine struct {
	CartItem
	Artwork Artwork
}

// ListCartLines returns the user's cart joined with artwork pricing fields.
func (q *Queries) ListCartLines(ctx context.Context, userID pgtype.UUID) ([]CartLine, error) {
	const query = `SELECT
		ci.id, ci.user_id, ci.artwork_id, ci.quantity, ci.selected_options,
		ci.customization_request_id, ci.added_at,
		a.id, a.title, a.slug, a.description, a.price, a.category_id, a.image_url,
		a.availability, a.status, a.weight_kg, a.requires_customization,
		a.offer_price, a.offer_percent, a.offer_starts_at, a.offer_ends_at,
		a.force_offer_badge, a.pricing_schema, a.created_at
		FROM cart_items ci
		JOIN artworks a ON a.id = ci.artwork_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at ASC`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []CartLine
	for rows.Next() {
		var l CartLine
		err := rows.Scan(
			&l.ID, &l.UserID, &l.ArtworkID, &l.Quantity, &l.SelectedOptions,
			&l.CustomizationRequestID, &l.AddedAt,
			&l.Artwork.ID, &l.Artwork.Title, &l.Artwork.Slug, &l.Artwork.Description,
			&l.Artwork.Price, &l.Artwork.CategoryID, &l.Artwork.ImageURL,
			&l.Artwork.Availability, &l.Artwork.Status, &l.Artwork.WeightKg,
			&l.Artwork.RequiresCustomization,
			&l.Artwork.OfferPrice, &l.Artwork.OfferPercent, &l.Artwork.OfferStartsAt,
			&l.Artwork.OfferEndsAt, &l.Artwork.ForceOfferBadge, &l.Artwork.PricingSchema,
			&l.Artwork.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// UpsertCartItemParams describes an add-to-cart mutation.
type UpsertCartItemParams struct {
	UserID                 pgtype.UUID
	ArtworkID              pgtype.UUID
	Quantity               int32
	SelectedOptions        []byte
	CustomizationRequestID pgtype.UUID
}

// UpsertCartItem inserts a cart row or bumps quantity when the same artwork
// with the same selection already sits in the cart.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	const query = `INSERT INTO cart_items
		(id, user_id, artwork_id, quantity, selected_options, customization_request_id, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, artwork_id, selection_hash)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, user_id, artwork_id, quantity, selected_options, customization_request_id, added_at`
	var item CartItem
	err := q.db.QueryRow(ctx, query,
		NewUUID(), arg.UserID, arg.ArtworkID, arg.Quantity, arg.SelectedOptions, arg.CustomizationRequestID,
	).Scan(&item.ID, &item.UserID, &item.ArtworkID, &item.Quantity, &item.SelectedOptions,
		&item.CustomizationRequestID, &item.AddedAt)
	return item, err
}

// UpdateCartItemQuantity sets an absolute quantity on an owned cart row.
func (q *Queries) UpdateCartItemQuantity(ctx context.Context, userID, itemID pgtype.UUID, quantity int32) (int64, error) {
	const query = `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND id = $2`
	tag, err := q.db.Exec(ctx, query, userID, itemID, quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteCartItem removes a single owned cart row.
func (q *Queries) DeleteCartItem(ctx context.Context, userID, itemID pgtype.UUID) (int64, error) {
	const query = `DELETE FROM cart_items WHERE user_id = $1 AND id = $2`
	tag, err := q.db.Exec(ctx, query, userID, itemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClearCart removes every cart row owned by the user.
func (q *Queries) ClearCart(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
