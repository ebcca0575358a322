package wishlist

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type fakeWishlistQueries struct {
	artworks map[string]repo.Artwork
	saved    map[string]bool
}

func key(userID, artworkID pgtype.UUID) string {
	return repo.UUIDString(userID) + "/" + repo.UUIDString(artworkID)
}

func (f *fakeWishlistQueries) AddWishlistItem(_ context.Context, userID, artworkID pgtype.UUID) error {
	f.saved[key(userID, artworkID)] = true
	return nil
}

func (f *fakeWishlistQueries) RemoveWishlistItem(_ context.Context, userID, artworkID pgtype.UUID) (int64, error) {
	k := key(userID, artworkID)
	if !f.saved[k] {
		return 0, nil
	}
	delete(f.saved, k)
	return 1, nil
}

func (f *fakeWishlistQueries) HasWishlistItem(_ context.Context, userID, artworkID pgtype.UUID) (bool, error) {
	return f.saved[key(userID, artworkID)], nil
}

func (f *fakeWishlistQueries) ListWishlist(_ context.Context, userID pgtype.UUID) ([]repo.WishlistEntry, error) {
	var out []repo.WishlistEntry
	for k := range f.saved {
		for _, a := range f.artworks {
			if k == key(userID, a.ID) {
				out = append(out, repo.WishlistEntry{Artwork: a})
			}
		}
	}
	return out, nil
}

var wishNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func wishRouter(q *fakeWishlistQueries) http.Handler {
	h := &Handler{Q: q, Now: func() time.Time { return wishNow }}
	r := chi.NewRouter()
	r.Use(common.IdentityMiddleware)
	r.Get("/api/v1/wishlist", h.List)
	r.Post("/api/v1/wishlist/toggle", h.Toggle)
	r.Get("/api/v1/wishlist/{artworkId}", h.Check)
	r.Delete("/api/v1/wishlist/{artworkId}", h.Remove)
	return r
}

func wishArtwork(title, price, percentOff string) repo.Artwork {
	a := repo.Artwork{
		ID:           repo.NewUUID(),
		Title:        title,
		Slug:         title,
		Price:        repo.NumericFromDecimal(decimal.RequireFromString(price)),
		Availability: "available",
		Status:       "active",
	}
	if percentOff != "" {
		a.OfferPercent = repo.NumericFromDecimal(decimal.RequireFromString(percentOff))
	}
	return a
}

func wishRequest(method, target string, uid pgtype.UUID, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(common.UserIDHeader, repo.UUIDString(uid))
	return req
}

func TestToggleAddsAndRemoves(t *testing.T) {
	a := wishArtwork("bouquet", "1000", "")
	q := &fakeWishlistQueries{artworks: map[string]repo.Artwork{repo.UUIDString(a.ID): a}, saved: map[string]bool{}}
	uid := repo.NewUUID()
	router := wishRouter(q)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, wishRequest(http.MethodPost, "/api/v1/wishlist/toggle", uid, map[string]string{"artworkId": repo.UUIDString(a.ID)}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"saved":true}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, wishRequest(http.MethodPost, "/api/v1/wishlist/toggle", uid, map[string]string{"artworkId": repo.UUIDString(a.ID)}))
	require.JSONEq(t, `{"data":{"saved":false}}`, rr.Body.String())
	require.Empty(t, q.saved)
}

func TestListCarriesEffectivePrice(t *testing.T) {
	a := wishArtwork("bouquet", "1000", "20")
	q := &fakeWishlistQueries{artworks: map[string]repo.Artwork{repo.UUIDString(a.ID): a}, saved: map[string]bool{}}
	uid := repo.NewUUID()
	router := wishRouter(q)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, wishRequest(http.MethodPost, "/api/v1/wishlist/toggle", uid, map[string]string{"artworkId": repo.UUIDString(a.ID)}))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, wishRequest(http.MethodGet, "/api/v1/wishlist", uid, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []struct {
			Price          string `json:"price"`
			EffectivePrice string `json:"effectivePrice"`
			OnOffer        bool   `json:"onOffer"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "1000", body.Data[0].Price)
	require.Equal(t, "800", body.Data[0].EffectivePrice)
	require.True(t, body.Data[0].OnOffer)
}

func TestCheckAnonymousIsFalse(t *testing.T) {
	a := wishArtwork("bouquet", "1000", "")
	q := &fakeWishlistQueries{artworks: map[string]repo.Artwork{}, saved: map[string]bool{}}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist/"+repo.UUIDString(a.ID), nil)
	wishRouter(q).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"saved":false}}`, rr.Body.String())
}

func TestRemoveMissingIs404(t *testing.T) {
	q := &fakeWishlistQueries{artworks: map[string]repo.Artwork{}, saved: map[string]bool{}}
	rr := httptest.NewRecorder()
	router := wishRouter(q)
	router.ServeHTTP(rr, wishRequest(http.MethodDelete, "/api/v1/wishlist/"+repo.UUIDString(repo.NewUUID()), repo.NewUUID(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
