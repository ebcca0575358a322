package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	GetSalesDaily(ctx context.Context, from, to pgtype.Timestamptz) ([]repo.SalesDay, error)
	GetTopArtworks(ctx context.Context, limit int32) ([]repo.TopArtwork, error)
}

// Service provides cached access to back-office sales aggregates.
type Service struct {
	Q            queryProvider
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

// SalesDay is one aggregated day of paid orders.
type SalesDay struct {
	Day     string          `json:"day"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopArtwork is a best-seller row.
type TopArtwork struct {
	ArtworkID string          `json:"artworkId"`
	Title     string          `json:"title"`
	UnitsSold int64           `json:"unitsSold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns daily sales between the bounds, from inclusive and to
// exclusive. Defaults to the trailing DefaultRange days when bounds are zero.
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if to.IsZero() {
		to = s.now().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	if from.IsZero() {
		days := s.DefaultRange
		if days <= 0 {
			days = 30
		}
		from = to.AddDate(0, 0, -days)
	}
	key := cacheKey("an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []SalesDay
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.GetSalesDaily(ctx,
		pgtype.Timestamptz{Time: from, Valid: true},
		pgtype.Timestamptz{Time: to, Valid: true},
	)
	if err != nil {
		return nil, err
	}
	out := make([]SalesDay, 0, len(rows))
	for _, row := range rows {
		out = append(out, SalesDay{
			Day:     row.Day.Time.Format("2006-01-02"),
			Orders:  row.Orders,
			Revenue: repo.DecimalFromNumeric(row.Revenue),
		})
	}
	s.store(ctx, key, out)
	return out, nil
}

// TopArtworks returns the best sellers ordered by units sold.
func (s *Service) TopArtworks(ctx context.Context, limit int32) ([]TopArtwork, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	key := cacheKey("an", "top", limit)
	var cached []TopArtwork
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.GetTopArtworks(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TopArtwork, 0, len(rows))
	for _, row := range rows {
		out = append(out, TopArtwork{
			ArtworkID: repo.UUIDString(row.ArtworkID),
			Title:     row.Title,
			UnitsSold: row.UnitsSold,
			Revenue:   repo.DecimalFromNumeric(row.Revenue),
		})
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dest any) bool {
	if s.R == nil {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil {
		return
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, ttl).Err()
}
