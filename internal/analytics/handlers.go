package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/my-little-thingz/backend-gifts/internal/common"
)

type Handler struct {
	Svc *Service
}

// Sales handles GET /admin/analytics/sales?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be YYYY-MM-DD", nil)
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be YYYY-MM-DD", nil)
			return
		}
		to = parsed
	}
	out, err := h.Svc.SalesRange(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load sales", nil)
		return
	}
	common.JSONData(w, http.StatusOK, out)
}

// TopArtworks handles GET /admin/analytics/top-artworks?limit=N.
func (h *Handler) TopArtworks(w http.ResponseWriter, r *http.Request) {
	limit := int32(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = int32(n)
		}
	}
	out, err := h.Svc.TopArtworks(r.Context(), limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load top artworks", nil)
		return
	}
	common.JSONData(w, http.StatusOK, out)
}
