package order

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type adminQueryProvider interface {
	SetOrderAwb(ctx context.Context, orderID pgtype.UUID, awb string) error
}

// AdminHandler exposes the back-office shipment booking endpoint.
type AdminHandler struct {
	Q adminQueryProvider
}

// BookShipment handles POST /admin/orders/{orderId}/shipment. It records the
// courier AWB and moves the order to shipped.
func (h *AdminHandler) BookShipment(w http.ResponseWriter, r *http.Request) {
	oid, err := repo.UUIDValue(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var body struct {
		Awb string `json:"awb"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	awb := strings.TrimSpace(body.Awb)
	if awb == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "awb is required", nil)
		return
	}
	if err := h.Q.SetOrderAwb(r.Context(), oid, awb); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to record shipment", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]string{"awb": awb, "status": "shipped"})
}
