package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/catalog"
	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/pricing"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	ListCartLines(ctx context.Context, userID pgtype.UUID) ([]repo.CartLine, error)
	UpsertCartItem(ctx context.Context, arg repo.UpsertCartItemParams) (repo.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, userID, itemID pgtype.UUID, quantity int32) (int64, error)
	DeleteCartItem(ctx context.Context, userID, itemID pgtype.UUID) (int64, error)
	GetArtwork(ctx context.Context, id pgtype.UUID) (repo.Artwork, error)
	HasCompletedCustomRequest(ctx context.Context, userID pgtype.UUID) (bool, error)
}

// Service encapsulates cart mutations and the valuation projection.
type Service struct {
	Q   queryProvider
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AddItemInput is the payload for adding an artwork to the cart.
type AddItemInput struct {
	ArtworkID              string          `json:"artworkId" validate:"required,uuid4"`
	Quantity               int             `json:"quantity" validate:"omitempty,gte=1,lte=99"`
	SelectedOptions        json.RawMessage `json:"selectedOptions"`
	CustomizationRequestID string          `json:"customizationRequestId" validate:"omitempty,uuid4"`
}

// View is the cart projection with per-line and aggregate pricing. Prices are
// derived on read and never stored on cart rows.
type View struct {
	Items    []ViewItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ViewItem is a single cart line with its current effective price.
type ViewItem struct {
	ID                    string          `json:"id"`
	ArtworkID             string          `json:"artworkId"`
	Title                 string          `json:"title"`
	ImageURL              *string         `json:"imageUrl,omitempty"`
	Quantity              int             `json:"quantity"`
	SelectedOptions       json.RawMessage `json:"selectedOptions,omitempty"`
	UnitPrice             decimal.Decimal `json:"unitPrice"`
	LineTotal             decimal.Decimal `json:"lineTotal"`
	OnOffer               bool            `json:"onOffer"`
	RequiresCustomization bool            `json:"requiresCustomization"`
}

// AddItem validates and stores a cart line. Artworks flagged for
// customization require an approved request before they can enter the cart.
func (s *Service) AddItem(ctx context.Context, userID string, input AddItemInput) (ViewItem, error) {
	if s == nil || s.Q == nil {
		return ViewItem{}, errors.New("cart service not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return ViewItem{}, common.BadRequest("userId", "invalid user id", err)
	}
	aid, err := repo.UUIDValue(input.ArtworkID)
	if err != nil {
		return ViewItem{}, common.BadRequest("artworkId", "invalid artwork id", err)
	}
	artwork, err := s.Q.GetArtwork(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ViewItem{}, &common.AppError{Code: "NOT_FOUND", Message: "artwork not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return ViewItem{}, fmt.Errorf("get artwork: %w", err)
	}
	if artwork.Status != "active" {
		return ViewItem{}, common.BadRequest("artworkId", "artwork is not available", nil)
	}
	if artwork.RequiresCustomization {
		approved, err := s.Q.HasCompletedCustomRequest(ctx, uid)
		if err != nil {
			return ViewItem{}, fmt.Errorf("check customization approval: %w", err)
		}
		if !approved {
			return ViewItem{}, customizationNotApproved()
		}
	}
	qty := input.Quantity
	if qty < 1 {
		qty = 1
	}
	params := repo.UpsertCartItemParams{
		UserID:          uid,
		ArtworkID:       aid,
		Quantity:        int32(qty),
		SelectedOptions: normalizeOptions(input.SelectedOptions),
	}
	if input.CustomizationRequestID != "" {
		rid, err := repo.UUIDValue(input.CustomizationRequestID)
		if err != nil {
			return ViewItem{}, common.BadRequest("customizationRequestId", "invalid request id", err)
		}
		params.CustomizationRequestID = rid
	}
	row, err := s.Q.UpsertCartItem(ctx, params)
	if err != nil {
		return ViewItem{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return s.viewItem(repo.CartLine{CartItem: row, Artwork: artwork}, s.now()), nil
}

// UpdateQuantity sets an absolute quantity on an owned line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if quantity < 1 || quantity > 99 {
		return common.BadRequest("quantity", "quantity must be between 1 and 99", nil)
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return common.BadRequest("userId", "invalid user id", err)
	}
	iid, err := repo.UUIDValue(itemID)
	if err != nil {
		return common.BadRequest("itemId", "invalid item id", err)
	}
	affected, err := s.Q.UpdateCartItemQuantity(ctx, uid, iid, int32(quantity))
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if affected == 0 {
		return &common.AppError{Code: "NOT_FOUND", Message: "cart item not found", HTTPStatus: http.StatusNotFound}
	}
	return nil
}

// RemoveItem deletes an owned line.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return common.BadRequest("userId", "invalid user id", err)
	}
	iid, err := repo.UUIDValue(itemID)
	if err != nil {
		return common.BadRequest("itemId", "invalid item id", err)
	}
	affected, err := s.Q.DeleteCartItem(ctx, uid, iid)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if affected == 0 {
		return &common.AppError{Code: "NOT_FOUND", Message: "cart item not found", HTTPStatus: http.StatusNotFound}
	}
	return nil
}

// GetView returns the priced cart projection for the user.
func (s *Service) GetView(ctx context.Context, userID string) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return View{}, common.BadRequest("userId", "invalid user id", err)
	}
	lines, err := s.Q.ListCartLines(ctx, uid)
	if err != nil {
		return View{}, fmt.Errorf("list cart lines: %w", err)
	}
	now := s.now()
	view := View{Items: make([]ViewItem, 0, len(lines)), Subtotal: decimal.Zero}
	priced := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		view.Items = append(view.Items, s.viewItem(line, now))
		priced = append(priced, pricingLine(line))
	}
	view.Subtotal = pricing.Valuate(priced, now).Subtotal
	return view, nil
}

// QuoteInput asks for a single line price preview.
type QuoteInput struct {
	ArtworkID       string          `json:"artworkId" validate:"required,uuid4"`
	Quantity        int             `json:"quantity" validate:"omitempty,gte=1,lte=99"`
	SelectedOptions json.RawMessage `json:"selectedOptions"`
}

// Quote prices a hypothetical line without touching the cart.
type Quote struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	OnOffer   bool            `json:"onOffer"`
}

// QuoteLine computes the effective unit and line price for a selection.
func (s *Service) QuoteLine(ctx context.Context, input QuoteInput) (Quote, error) {
	if s == nil || s.Q == nil {
		return Quote{}, errors.New("cart service not configured")
	}
	aid, err := repo.UUIDValue(input.ArtworkID)
	if err != nil {
		return Quote{}, common.BadRequest("artworkId", "invalid artwork id", err)
	}
	artwork, err := s.Q.GetArtwork(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, &common.AppError{Code: "NOT_FOUND", Message: "artwork not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return Quote{}, fmt.Errorf("get artwork: %w", err)
	}
	qty := input.Quantity
	if qty < 1 {
		qty = 1
	}
	line := pricing.Line{
		Item:      catalog.PricingItem(artwork),
		Qty:       qty,
		Selection: parseSelection(normalizeOptions(input.SelectedOptions)),
	}
	totals := pricing.Valuate([]pricing.Line{line}, s.now())
	if len(totals.Lines) != 1 {
		return Quote{}, errors.New("quote: unexpected valuation result")
	}
	return Quote{
		UnitPrice: totals.Lines[0].UnitPrice,
		LineTotal: totals.Lines[0].LineTotal,
		OnOffer:   totals.Lines[0].OnOffer,
	}, nil
}

// Lines converts stored cart rows into price engine input. Shared with the
// checkout flow so both price the same way.
func Lines(rows []repo.CartLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricingLine(row))
	}
	return out
}

func pricingLine(row repo.CartLine) pricing.Line {
	return pricing.Line{
		Item:      catalog.PricingItem(row.Artwork),
		Qty:       int(row.Quantity),
		Selection: parseSelection(row.SelectedOptions),
	}
}

func (s *Service) viewItem(line repo.CartLine, now time.Time) ViewItem {
	priced := pricing.Valuate([]pricing.Line{pricingLine(line)}, now)
	item := ViewItem{
		ID:                    repo.UUIDString(line.ID),
		ArtworkID:             repo.UUIDString(line.ArtworkID),
		Title:                 line.Artwork.Title,
		Quantity:              int(line.Quantity),
		RequiresCustomization: line.Artwork.RequiresCustomization,
	}
	if len(line.SelectedOptions) > 0 && string(line.SelectedOptions) != "null" {
		item.SelectedOptions = json.RawMessage(line.SelectedOptions)
	}
	if line.Artwork.ImageURL.Valid {
		u := line.Artwork.ImageURL.String
		item.ImageURL = &u
	}
	if len(priced.Lines) == 1 {
		item.UnitPrice = priced.Lines[0].UnitPrice
		item.LineTotal = priced.Lines[0].LineTotal
		item.OnOffer = priced.Lines[0].OnOffer
	}
	return item
}

func parseSelection(raw []byte) pricing.Selection {
	if len(raw) == 0 {
		return nil
	}
	var sel pricing.Selection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return nil
	}
	return sel
}

func normalizeOptions(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return []byte("{}")
	}
	return raw
}

func customizationNotApproved() *common.AppError {
	return &common.AppError{
		Code:       "CUSTOMIZATION_NOT_APPROVED",
		Message:    "customization request must be approved before ordering this item",
		HTTPStatus: http.StatusConflict,
	}
}
