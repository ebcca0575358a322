package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/pricing"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	ListArtworks(ctx context.Context, arg repo.ListArtworksParams) ([]repo.Artwork, error)
	CountArtworks(ctx context.Context, arg repo.ListArtworksParams) (int64, error)
	GetArtwork(ctx context.Context, id pgtype.UUID) (repo.Artwork, error)
	ListRelatedArtworks(ctx context.Context, id, categoryID pgtype.UUID, limit int32) ([]repo.Artwork, error)
	GetRatingSummary(ctx context.Context, artworkID pgtype.UUID) (repo.RatingSummary, error)
}

// Service orchestrates catalog queries, effective pricing, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	now          func() time.Time
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	Now          func() time.Time
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for artwork listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// ArtworkListItem represents an entry in list/related responses.
type ArtworkListItem struct {
	ID                    string          `json:"id"`
	Title                 string          `json:"title"`
	Slug                  string          `json:"slug"`
	Price                 decimal.Decimal `json:"price"`
	EffectivePrice        decimal.Decimal `json:"effectivePrice"`
	OnOffer               bool            `json:"onOffer"`
	ImageURL              *string         `json:"imageUrl,omitempty"`
	Availability          string          `json:"availability"`
	RequiresCustomization bool            `json:"requiresCustomization"`
}

// ArtworkDetail aggregates the full detail payload.
type ArtworkDetail struct {
	ArtworkListItem
	Description   *string          `json:"description,omitempty"`
	WeightKg      *decimal.Decimal `json:"weightKg,omitempty"`
	HasOptions    bool             `json:"hasOptions"`
	RatingCount   int64            `json:"ratingCount"`
	RatingAverage decimal.Decimal  `json:"ratingAverage"`
}

// PricingRules is the public projection of an artwork's dynamic pricing.
type PricingRules struct {
	BasePrice decimal.Decimal `json:"basePrice"`
	Offer     *OfferInfo      `json:"offer,omitempty"`
	Options   []PricingOption `json:"options"`
	RushFee   decimal.Decimal `json:"rushFee"`
}

// OfferInfo describes the currently configured offer.
type OfferInfo struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Percent  *decimal.Decimal `json:"percent,omitempty"`
	StartsAt *time.Time       `json:"startsAt,omitempty"`
	EndsAt   *time.Time       `json:"endsAt,omitempty"`
	Active   bool             `json:"active"`
}

// PricingOption describes one configurable option and its surcharges.
type PricingOption struct {
	Key    string             `json:"key"`
	Type   string             `json:"type"`
	Values []PricingOptionRow `json:"values,omitempty"`
	Tiers  []PricingTierRow   `json:"tiers,omitempty"`
}

// PricingOptionRow is one selectable value with its price delta.
type PricingOptionRow struct {
	Value string           `json:"value"`
	Delta *decimal.Decimal `json:"delta,omitempty"`
}

// PricingTierRow is one range tier with its price delta.
type PricingTierRow struct {
	Max   decimal.Decimal  `json:"max"`
	Delta *decimal.Decimal `json:"delta,omitempty"`
}

// ArtworkListResult contains list data and pagination metadata.
type ArtworkListResult struct {
	Items []ArtworkListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		now:          now,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, common.BadRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, common.BadRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit
	return params, nil
}

// ListArtworks returns a filtered artwork list with pagination metadata.
func (s *Service) ListArtworks(ctx context.Context, params ListParams) (ArtworkListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ArtworkListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	repoParams := repo.ListArtworksParams{Search: params.Query}
	if params.Category != "" {
		cid, err := repo.UUIDValue(params.Category)
		if err != nil {
			return ArtworkListResult{}, common.BadRequest("category", "category must be a valid id", err)
		}
		repoParams.CategoryID = cid
	}
	total, err := s.queries.CountArtworks(ctx, repoParams)
	if err != nil {
		return ArtworkListResult{}, fmt.Errorf("count artworks: %w", err)
	}
	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	repoParams.Limit = int32(params.Limit)
	repoParams.Offset = offset
	rows, err := s.queries.ListArtworks(ctx, repoParams)
	if err != nil {
		return ArtworkListResult{}, fmt.Errorf("list artworks: %w", err)
	}
	now := s.now()
	items := make([]ArtworkListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.listItem(row, now))
	}
	result := ArtworkListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if shouldUseCache && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetArtworkDetail returns the detail payload with the current effective price.
func (s *Service) GetArtworkDetail(ctx context.Context, id string) (ArtworkDetail, error) {
	aid, err := repo.UUIDValue(strings.TrimSpace(id))
	if err != nil {
		return ArtworkDetail{}, common.BadRequest("id", "id must be a valid artwork id", err)
	}
	row, err := s.queries.GetArtwork(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ArtworkDetail{}, &common.AppError{Code: "NOT_FOUND", Message: "artwork not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return ArtworkDetail{}, fmt.Errorf("get artwork: %w", err)
	}
	detail := ArtworkDetail{ArtworkListItem: s.listItem(row, s.now())}
	if row.Description.Valid {
		d := row.Description.String
		detail.Description = &d
	}
	detail.WeightKg = repo.DecimalPtrFromNumeric(row.WeightKg)
	detail.HasOptions = pricing.ParseSchema(row.PricingSchema) != nil
	if summary, err := s.queries.GetRatingSummary(ctx, aid); err == nil {
		detail.RatingCount = summary.Count
		detail.RatingAverage = repo.DecimalFromNumeric(summary.Average)
	}
	return detail, nil
}

// ListRelatedArtworks fetches other artworks from the same category.
func (s *Service) ListRelatedArtworks(ctx context.Context, id string) ([]ArtworkListItem, error) {
	aid, err := repo.UUIDValue(strings.TrimSpace(id))
	if err != nil {
		return nil, common.BadRequest("id", "id must be a valid artwork id", err)
	}
	row, err := s.queries.GetArtwork(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &common.AppError{Code: "NOT_FOUND", Message: "artwork not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return nil, fmt.Errorf("get artwork: %w", err)
	}
	rows, err := s.queries.ListRelatedArtworks(ctx, row.ID, row.CategoryID, 8)
	if err != nil {
		return nil, fmt.Errorf("list related artworks: %w", err)
	}
	now := s.now()
	items := make([]ArtworkListItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, s.listItem(r, now))
	}
	return items, nil
}

// GetPricingRules exposes the offer descriptor and option surcharges so
// clients can preview prices without another round trip.
func (s *Service) GetPricingRules(ctx context.Context, id string) (PricingRules, error) {
	aid, err := repo.UUIDValue(strings.TrimSpace(id))
	if err != nil {
		return PricingRules{}, common.BadRequest("id", "id must be a valid artwork id", err)
	}
	row, err := s.queries.GetArtwork(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PricingRules{}, &common.AppError{Code: "NOT_FOUND", Message: "artwork not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return PricingRules{}, fmt.Errorf("get artwork: %w", err)
	}
	item := PricingItem(row)
	rules := PricingRules{
		BasePrice: item.BasePrice,
		RushFee:   pricing.RushFee,
		Options:   []PricingOption{},
	}
	if item.Offer != nil {
		effective := pricing.ComputeEffectivePrice(item, nil, s.now())
		rules.Offer = &OfferInfo{
			Price:    item.Offer.Price,
			Percent:  item.Offer.Percent,
			StartsAt: item.Offer.StartsAt,
			EndsAt:   item.Offer.EndsAt,
			Active:   pricing.IsOnOffer(item, s.now(), effective),
		}
	}
	if item.Schema != nil {
		for key, opt := range item.Schema.Options {
			po := PricingOption{Key: key, Type: opt.Type}
			for _, v := range opt.Values {
				row := PricingOptionRow{Value: v.Value}
				if v.Delta != nil {
					d := v.Delta.Value
					row.Delta = &d
				}
				po.Values = append(po.Values, row)
			}
			for _, tier := range opt.Tiers {
				row := PricingTierRow{Max: tier.Max}
				if tier.Delta != nil {
					d := tier.Delta.Value
					row.Delta = &d
				}
				po.Tiers = append(po.Tiers, row)
			}
			rules.Options = append(rules.Options, po)
		}
	}
	return rules, nil
}

// PricingItem converts a catalog row into the price engine's input shape.
func PricingItem(row repo.Artwork) pricing.Item {
	item := pricing.Item{
		BasePrice: repo.DecimalFromNumeric(row.Price),
		Schema:    pricing.ParseSchema(row.PricingSchema),
	}
	offerPrice := repo.DecimalPtrFromNumeric(row.OfferPrice)
	offerPercent := repo.DecimalPtrFromNumeric(row.OfferPercent)
	if offerPrice != nil || offerPercent != nil || row.ForceOfferBadge {
		offer := &pricing.Offer{
			Price:      offerPrice,
			Percent:    offerPercent,
			ForceBadge: row.ForceOfferBadge,
		}
		if row.OfferStartsAt.Valid {
			t := row.OfferStartsAt.Time
			offer.StartsAt = &t
		}
		if row.OfferEndsAt.Valid {
			t := row.OfferEndsAt.Time
			offer.EndsAt = &t
		}
		item.Offer = offer
	}
	return item
}

func (s *Service) listItem(row repo.Artwork, now time.Time) ArtworkListItem {
	item := PricingItem(row)
	effective := pricing.ComputeEffectivePrice(item, nil, now)
	out := ArtworkListItem{
		ID:                    repo.UUIDString(row.ID),
		Title:                 row.Title,
		Slug:                  row.Slug,
		Price:                 item.BasePrice,
		EffectivePrice:        effective,
		OnOffer:               pricing.IsOnOffer(item, now, effective),
		Availability:          row.Availability,
		RequiresCustomization: row.RequiresCustomization,
	}
	if row.ImageURL.Valid {
		u := row.ImageURL.String
		out.ImageURL = &u
	}
	return out
}

type cachedList struct {
	Items []ArtworkListItem `json:"items"`
	Total int64             `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if params.Page != s.defaultPage || params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" {
		return "", false
	}
	return "catalog:artworks:list:recent", true
}
