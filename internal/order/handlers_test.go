package order

import (
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
	"github.com/my-little-thingz/backend-gifts/internal/shipping"
)

type fakeOrderQueries struct {
	orders []repo.Order
	items  []repo.OrderItem
}

func (f *fakeOrderQueries) ListOrders(_ context.Context, userID pgtype.UUID, limit, offset int32) ([]repo.Order, error) {
	var out []repo.Order
	for _, o := range f.orders {
		if o.UserID.Bytes == userID.Bytes {
			out = append(out, o)
		}
	}
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOrderQueries) CountOrders(_ context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if o.UserID.Bytes == userID.Bytes {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderQueries) GetOrder(_ context.Context, userID, orderID pgtype.UUID) (repo.Order, error) {
	for _, o := range f.orders {
		if o.UserID.Bytes == userID.Bytes && o.ID.Bytes == orderID.Bytes {
			return o, nil
		}
	}
	return repo.Order{}, pgx.ErrNoRows
}

func (f *fakeOrderQueries) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]repo.OrderItem, error) {
	var out []repo.OrderItem
	for _, it := range f.items {
		if it.OrderID.Bytes == orderID.Bytes {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeOrderQueries) CancelOrder(_ context.Context, userID, orderID pgtype.UUID) (int64, error) {
	for i := range f.orders {
		o := &f.orders[i]
		if o.UserID.Bytes == userID.Bytes && o.ID.Bytes == orderID.Bytes && o.Status == "pending" {
			o.Status = "cancelled"
			return 1, nil
		}
	}
	return 0, nil
}

type fakeTracker struct {
	trail []shipping.TrackEvent
	err   error
}

func (f *fakeTracker) Track(context.Context, string) ([]shipping.TrackEvent, error) {
	return f.trail, f.err
}

func storedOrder(uid pgtype.UUID, number, status string, total string) repo.Order {
	return repo.Order{
		ID:            repo.NewUUID(),
		UserID:        uid,
		OrderNumber:   number,
		Status:        status,
		PaymentStatus: "pending",
		Subtotal:      repo.NumericFromDecimal(decimal.RequireFromString(total)),
		TotalAmount:   repo.NumericFromDecimal(decimal.RequireFromString(total)),
		CreatedAt:     pgtype.Timestamptz{Time: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), Valid: true},
	}
}

func orderRouter(q *fakeOrderQueries, track tracker) http.Handler {
	h := &Handler{Q: q, Shipping: track}
	r := chi.NewRouter()
	r.Use(common.IdentityMiddleware)
	r.Get("/api/v1/orders", h.List)
	r.Get("/api/v1/orders/{orderId}", h.Get)
	r.Post("/api/v1/orders/{orderId}/cancel", h.Cancel)
	r.Get("/api/v1/orders/{orderId}/tracking", h.Tracking)
	return r
}

func orderRequest(method, target string, uid pgtype.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(common.UserIDHeader, repo.UUIDString(uid))
	return req
}

func TestListOrdersScopedToUser(t *testing.T) {
	mine := repo.NewUUID()
	other := repo.NewUUID()
	q := &fakeOrderQueries{orders: []repo.Order{
		storedOrder(mine, "ORD-1", "pending", "500"),
		storedOrder(other, "ORD-2", "pending", "900"),
	}}

	rr := httptest.NewRecorder()
	orderRouter(q, nil).ServeHTTP(rr, orderRequest(http.MethodGet, "/api/v1/orders", mine))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))
	var body struct {
		Data []Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "ORD-1", body.Data[0].OrderNumber)
	require.Equal(t, "500", body.Data[0].Total.String())
}

func TestGetOrderIncludesFrozenItems(t *testing.T) {
	uid := repo.NewUUID()
	ord := storedOrder(uid, "ORD-3", "pending", "2150")
	q := &fakeOrderQueries{
		orders: []repo.Order{ord},
		items: []repo.OrderItem{{
			ID:        repo.NewUUID(),
			OrderID:   ord.ID,
			ArtworkID: repo.NewUUID(),
			Title:     "bouquet",
			Quantity:  2,
			UnitPrice: repo.NumericFromDecimal(decimal.RequireFromString("800")),
			LineTotal: repo.NumericFromDecimal(decimal.RequireFromString("1600")),
		}},
	}

	rr := httptest.NewRecorder()
	orderRouter(q, nil).ServeHTTP(rr, orderRequest(http.MethodGet, "/api/v1/orders/"+repo.UUIDString(ord.ID), uid))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	require.Equal(t, "800", body.Data.Items[0].UnitPrice.String())
	require.Equal(t, "1600", body.Data.Items[0].LineTotal.String())
}

func TestCancelOrderOnlyWhilePending(t *testing.T) {
	uid := repo.NewUUID()
	pending := storedOrder(uid, "ORD-4", "pending", "100")
	shipped := storedOrder(uid, "ORD-5", "shipped", "100")
	q := &fakeOrderQueries{orders: []repo.Order{pending, shipped}}
	router := orderRouter(q, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, orderRequest(http.MethodPost, "/api/v1/orders/"+repo.UUIDString(pending.ID)+"/cancel", uid))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "cancelled", q.orders[0].Status)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, orderRequest(http.MethodPost, "/api/v1/orders/"+repo.UUIDString(shipped.ID)+"/cancel", uid))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, orderRequest(http.MethodPost, "/api/v1/orders/"+repo.UUIDString(repo.NewUUID())+"/cancel", uid))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrackingRequiresBookedShipment(t *testing.T) {
	uid := repo.NewUUID()
	unbooked := storedOrder(uid, "ORD-6", "processing", "100")
	booked := storedOrder(uid, "ORD-7", "shipped", "100")
	booked.ShipmentAwb = pgtype.Text{String: "AWB123", Valid: true}
	q := &fakeOrderQueries{orders: []repo.Order{unbooked, booked}}
	track := &fakeTracker{trail: []shipping.TrackEvent{{Status: "in_transit", Location: "Delhi"}}}
	router := orderRouter(q, track)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, orderRequest(http.MethodGet, "/api/v1/orders/"+repo.UUIDString(unbooked.ID)+"/tracking", uid))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, orderRequest(http.MethodGet, "/api/v1/orders/"+repo.UUIDString(booked.ID)+"/tracking", uid))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data struct {
			Awb    string                `json:"awb"`
			Events []shipping.TrackEvent `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "AWB123", body.Data.Awb)
	require.Len(t, body.Data.Events, 1)
}
