package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
	"github.com/my-little-thingz/backend-gifts/internal/shipping"
)

type queryProvider interface {
	ListOrders(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]repo.Order, error)
	CountOrders(ctx context.Context, userID pgtype.UUID) (int64, error)
	GetOrder(ctx context.Context, userID, orderID pgtype.UUID) (repo.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]repo.OrderItem, error)
	CancelOrder(ctx context.Context, userID, orderID pgtype.UUID) (int64, error)
}

type tracker interface {
	Track(ctx context.Context, awb string) ([]shipping.TrackEvent, error)
}

type Handler struct {
	Q        queryProvider
	Shipping tracker
}

// Summary is the list projection of an order.
type Summary struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Detail is the full order view with frozen lines.
type Detail struct {
	Summary
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	AddonTotal      decimal.Decimal `json:"addonTotal"`
	ShippingAddress json.RawMessage `json:"shippingAddress,omitempty"`
	ShipmentAwb     *string         `json:"shipmentAwb,omitempty"`
	Items           []Item          `json:"items"`
}

// Item is one frozen order line.
type Item struct {
	ID              string          `json:"id"`
	ArtworkID       string          `json:"artworkId"`
	Title           string          `json:"title"`
	Quantity        int32           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
	SelectedOptions json.RawMessage `json:"selectedOptions,omitempty"`
}

func summarize(o repo.Order) Summary {
	return Summary{
		ID:            repo.UUIDString(o.ID),
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         repo.DecimalFromNumeric(o.TotalAmount),
		CreatedAt:     o.CreatedAt.Time,
	}
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	total, err := h.Q.CountOrders(r.Context(), uid)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Q.ListOrders(r.Context(), uid, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]Summary, 0, len(orders))
	for _, o := range orders {
		response = append(response, summarize(o))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get handles GET /orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	ord, ok := h.loadOrder(w, r, uid)
	if !ok {
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), ord.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	detail := Detail{
		Summary:      summarize(ord),
		Subtotal:     repo.DecimalFromNumeric(ord.Subtotal),
		TaxAmount:    repo.DecimalFromNumeric(ord.TaxAmount),
		ShippingCost: repo.DecimalFromNumeric(ord.ShippingCost),
		AddonTotal:   repo.DecimalFromNumeric(ord.AddonTotal),
		Items:        make([]Item, 0, len(items)),
	}
	if len(ord.ShippingAddress) > 0 {
		detail.ShippingAddress = json.RawMessage(ord.ShippingAddress)
	}
	if ord.ShipmentAwb.Valid {
		awb := ord.ShipmentAwb.String
		detail.ShipmentAwb = &awb
	}
	for _, it := range items {
		item := Item{
			ID:        repo.UUIDString(it.ID),
			ArtworkID: repo.UUIDString(it.ArtworkID),
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: repo.DecimalFromNumeric(it.UnitPrice),
			LineTotal: repo.DecimalFromNumeric(it.LineTotal),
		}
		if len(it.SelectedOptions) > 0 {
			item.SelectedOptions = json.RawMessage(it.SelectedOptions)
		}
		detail.Items = append(detail.Items, item)
	}
	common.JSONData(w, http.StatusOK, detail)
}

// Cancel handles POST /orders/{orderId}/cancel. Only pending orders may be
// canceled.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	oid, err := repo.UUIDValue(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	affected, err := h.Q.CancelOrder(r.Context(), uid, oid)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		return
	}
	if affected == 0 {
		if _, err := h.Q.GetOrder(r.Context(), uid, oid); errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "only pending orders can be canceled", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Tracking handles GET /orders/{orderId}/tracking.
func (h *Handler) Tracking(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	ord, ok := h.loadOrder(w, r, uid)
	if !ok {
		return
	}
	if !ord.ShipmentAwb.Valid || ord.ShipmentAwb.String == "" {
		common.JSONError(w, http.StatusNotFound, "TRACKING_UNAVAILABLE", "shipment has not been booked yet", nil)
		return
	}
	if h.Shipping == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "SHIPPING_ERROR", "tracking is not configured", nil)
		return
	}
	trail, err := h.Shipping.Track(r.Context(), ord.ShipmentAwb.String)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"awb":    ord.ShipmentAwb.String,
		"events": trail,
	})
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return pgtype.UUID{}, false
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return pgtype.UUID{}, false
	}
	return uid, true
}

func (h *Handler) loadOrder(w http.ResponseWriter, r *http.Request, uid pgtype.UUID) (repo.Order, bool) {
	oid, err := repo.UUIDValue(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return repo.Order{}, false
	}
	ord, err := h.Q.GetOrder(r.Context(), uid, oid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return repo.Order{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return repo.Order{}, false
	}
	return ord, true
}
