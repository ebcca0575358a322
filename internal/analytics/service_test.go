package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type fakeAnalyticsQueries struct {
	salesCalls int
	topCalls   int
}

func (f *fakeAnalyticsQueries) GetSalesDaily(_ context.Context, _, _ pgtype.Timestamptz) ([]repo.SalesDay, error) {
	f.salesCalls++
	return []repo.SalesDay{{
		Day:     pgtype.Date{Time: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), Valid: true},
		Orders:  3,
		Revenue: repo.NumericFromDecimal(decimal.RequireFromString("6450")),
	}}, nil
}

func (f *fakeAnalyticsQueries) GetTopArtworks(_ context.Context, _ int32) ([]repo.TopArtwork, error) {
	f.topCalls++
	return []repo.TopArtwork{{
		ArtworkID: repo.NewUUID(),
		Title:     "bouquet",
		UnitsSold: 12,
		Revenue:   repo.NumericFromDecimal(decimal.RequireFromString("9600")),
	}}, nil
}

func TestSalesRangeCachesResults(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := &fakeAnalyticsQueries{}
	svc := &Service{Q: q, R: rdb, TTL: time.Minute, Now: func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}}

	first, err := svc.SalesRange(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "6450", first[0].Revenue.String())

	second, err := svc.SalesRange(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, q.salesCalls)
}

func TestTopArtworksWithoutRedis(t *testing.T) {
	q := &fakeAnalyticsQueries{}
	svc := &Service{Q: q}

	out, err := svc.TopArtworks(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(12), out[0].UnitsSold)

	_, err = svc.TopArtworks(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 2, q.topCalls)
}
