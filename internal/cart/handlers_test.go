package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type fakeQueries struct {
	artworks map[string]repo.Artwork
	lines    []repo.CartLine
	approved bool
}

func (f *fakeQueries) ListCartLines(_ context.Context, _ pgtype.UUID) ([]repo.CartLine, error) {
	return f.lines, nil
}

func (f *fakeQueries) UpsertCartItem(_ context.Context, arg repo.UpsertCartItemParams) (repo.CartItem, error) {
	item := repo.CartItem{
		ID:              repo.NewUUID(),
		UserID:          arg.UserID,
		ArtworkID:       arg.ArtworkID,
		Quantity:        arg.Quantity,
		SelectedOptions: arg.SelectedOptions,
	}
	if a, ok := f.artworks[repo.UUIDString(arg.ArtworkID)]; ok {
		f.lines = append(f.lines, repo.CartLine{CartItem: item, Artwork: a})
	}
	return item, nil
}

func (f *fakeQueries) UpdateCartItemQuantity(_ context.Context, _, itemID pgtype.UUID, quantity int32) (int64, error) {
	for i := range f.lines {
		if f.lines[i].ID.Bytes == itemID.Bytes {
			f.lines[i].Quantity = quantity
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeQueries) DeleteCartItem(_ context.Context, _, itemID pgtype.UUID) (int64, error) {
	for i := range f.lines {
		if f.lines[i].ID.Bytes == itemID.Bytes {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeQueries) GetArtwork(_ context.Context, id pgtype.UUID) (repo.Artwork, error) {
	a, ok := f.artworks[repo.UUIDString(id)]
	if !ok {
		return repo.Artwork{}, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeQueries) HasCompletedCustomRequest(_ context.Context, _ pgtype.UUID) (bool, error) {
	return f.approved, nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testArtwork(title, price, percentOff string, custom bool) repo.Artwork {
	a := repo.Artwork{
		ID:                    repo.NewUUID(),
		Title:                 title,
		Slug:                  title,
		Price:                 repo.NumericFromDecimal(decimal.RequireFromString(price)),
		Availability:          "available",
		Status:                "active",
		RequiresCustomization: custom,
	}
	if percentOff != "" {
		a.OfferPercent = repo.NumericFromDecimal(decimal.RequireFromString(percentOff))
	}
	return a
}

func testRouter(q *fakeQueries) http.Handler {
	h := NewHandler(&Service{Q: q, Now: func() time.Time { return testNow }})
	r := chi.NewRouter()
	r.Use(common.IdentityMiddleware)
	r.Get("/api/v1/cart", h.Get)
	r.Post("/api/v1/cart/items", h.AddItem)
	r.Patch("/api/v1/cart/items/{itemId}", h.UpdateItem)
	r.Delete("/api/v1/cart/items/{itemId}", h.DeleteItem)
	r.Post("/api/v1/cart/quote", h.QuoteHandler)
	return r
}

func userRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(common.UserIDHeader, repo.UUIDString(repo.NewUUID()))
	return req
}

func TestAddItemRequiresIdentity(t *testing.T) {
	q := &fakeQueries{artworks: map[string]repo.Artwork{}}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{}`))
	testRouter(q).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAddItemBlocksUnapprovedCustomization(t *testing.T) {
	q := &fakeQueries{artworks: map[string]repo.Artwork{}}
	a := testArtwork("portrait", "1500", "", true)
	q.artworks[repo.UUIDString(a.ID)] = a

	rr := httptest.NewRecorder()
	req := userRequest(http.MethodPost, "/api/v1/cart/items", map[string]any{"artworkId": repo.UUIDString(a.ID)})
	testRouter(q).ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "CUSTOMIZATION_NOT_APPROVED", body.Error.Code)
	require.Empty(t, q.lines)
}

func TestAddItemAllowsApprovedCustomization(t *testing.T) {
	q := &fakeQueries{artworks: map[string]repo.Artwork{}, approved: true}
	a := testArtwork("portrait", "1500", "", true)
	q.artworks[repo.UUIDString(a.ID)] = a

	rr := httptest.NewRecorder()
	req := userRequest(http.MethodPost, "/api/v1/cart/items", map[string]any{"artworkId": repo.UUIDString(a.ID)})
	testRouter(q).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, q.lines, 1)
}

func TestCartViewValuation(t *testing.T) {
	q := &fakeQueries{artworks: map[string]repo.Artwork{}}
	offered := testArtwork("bouquet", "1000", "20", false)
	box := testArtwork("chocolate-box", "500", "", false)
	box.PricingSchema = []byte(`{"options":{"flavor":{"type":"select","values":[{"value":"dark","delta":{"type":"flat","value":50}}]}}}`)
	q.lines = []repo.CartLine{
		{CartItem: repo.CartItem{ID: repo.NewUUID(), Quantity: 2, SelectedOptions: []byte(`{}`)}, Artwork: offered},
		{CartItem: repo.CartItem{ID: repo.NewUUID(), Quantity: 1, SelectedOptions: []byte(`{"flavor":"dark"}`)}, Artwork: box},
	}

	rr := httptest.NewRecorder()
	req := userRequest(http.MethodGet, "/api/v1/cart", nil)
	testRouter(q).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data struct {
			Items []struct {
				UnitPrice string `json:"unitPrice"`
				LineTotal string `json:"lineTotal"`
				OnOffer   bool   `json:"onOffer"`
			} `json:"items"`
			Subtotal string `json:"subtotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 2)
	require.Equal(t, "800", body.Data.Items[0].UnitPrice)
	require.Equal(t, "1600", body.Data.Items[0].LineTotal)
	require.True(t, body.Data.Items[0].OnOffer)
	require.Equal(t, "550", body.Data.Items[1].UnitPrice)
	require.Equal(t, "2150", body.Data.Subtotal)
}

func TestQuoteEndpoint(t *testing.T) {
	q := &fakeQueries{artworks: map[string]repo.Artwork{}}
	box := testArtwork("chocolate-box", "500", "", false)
	box.PricingSchema = []byte(`{"options":{"flavor":{"type":"select","values":[{"value":"dark","delta":{"type":"flat","value":50}}]}}}`)
	q.artworks[repo.UUIDString(box.ID)] = box

	rr := httptest.NewRecorder()
	req := userRequest(http.MethodPost, "/api/v1/cart/quote", map[string]any{
		"artworkId":       repo.UUIDString(box.ID),
		"quantity":        2,
		"selectedOptions": map[string]any{"flavor": "dark"},
	})
	testRouter(q).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data struct {
			UnitPrice string `json:"unitPrice"`
			LineTotal string `json:"lineTotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "550", body.Data.UnitPrice)
	require.Equal(t, "1100", body.Data.LineTotal)
}

func TestUpdateAndDeleteItem(t *testing.T) {
	q := &fakeQueries{artworks: map[string]repo.Artwork{}}
	a := testArtwork("frame", "300", "", false)
	line := repo.CartLine{CartItem: repo.CartItem{ID: repo.NewUUID(), Quantity: 1, SelectedOptions: []byte(`{}`)}, Artwork: a}
	q.lines = []repo.CartLine{line}
	router := testRouter(q)

	rr := httptest.NewRecorder()
	req := userRequest(http.MethodPatch, "/api/v1/cart/items/"+repo.UUIDString(line.ID), map[string]any{"quantity": 3})
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int32(3), q.lines[0].Quantity)

	rr = httptest.NewRecorder()
	req = userRequest(http.MethodDelete, "/api/v1/cart/items/"+repo.UUIDString(line.ID), nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, q.lines)

	rr = httptest.NewRecorder()
	req = userRequest(http.MethodDelete, "/api/v1/cart/items/"+repo.UUIDString(repo.NewUUID()), nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
