package wishlist

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/catalog"
	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/pricing"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	AddWishlistItem(ctx context.Context, userID, artworkID pgtype.UUID) error
	RemoveWishlistItem(ctx context.Context, userID, artworkID pgtype.UUID) (int64, error)
	HasWishlistItem(ctx context.Context, userID, artworkID pgtype.UUID) (bool, error)
	ListWishlist(ctx context.Context, userID pgtype.UUID) ([]repo.WishlistEntry, error)
}

type Handler struct {
	Q   queryProvider
	Now func() time.Time
}

// Entry is the wishlist projection with live effective pricing.
type Entry struct {
	ArtworkID      string          `json:"artworkId"`
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	ImageURL       *string         `json:"imageUrl,omitempty"`
	Price          decimal.Decimal `json:"price"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	OnOffer        bool            `json:"onOffer"`
	AddedAt        time.Time       `json:"addedAt"`
}

// List handles GET /wishlist.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	entries, err := h.Q.ListWishlist(r.Context(), uid)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list wishlist", nil)
		return
	}
	now := h.now()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		item := catalog.PricingItem(e.Artwork)
		effective := pricing.ComputeEffectivePrice(item, pricing.Selection{}, now)
		entry := Entry{
			ArtworkID:      repo.UUIDString(e.Artwork.ID),
			Title:          e.Artwork.Title,
			Slug:           e.Artwork.Slug,
			Price:          repo.DecimalFromNumeric(e.Artwork.Price),
			EffectivePrice: effective,
			OnOffer:        pricing.IsOnOffer(item, now, effective),
			AddedAt:        e.AddedAt.Time,
		}
		if e.Artwork.ImageURL.Valid {
			u := e.Artwork.ImageURL.String
			entry.ImageURL = &u
		}
		out = append(out, entry)
	}
	common.JSONData(w, http.StatusOK, out)
}

// Toggle handles POST /wishlist/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	var body struct {
		ArtworkID string `json:"artworkId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	aid, err := repo.UUIDValue(body.ArtworkID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid artwork id", nil)
		return
	}
	saved, err := h.Q.HasWishlistItem(r.Context(), uid, aid)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check wishlist", nil)
		return
	}
	if saved {
		if _, err := h.Q.RemoveWishlistItem(r.Context(), uid, aid); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to remove wishlist item", nil)
			return
		}
	} else {
		if err := h.Q.AddWishlistItem(r.Context(), uid, aid); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to add wishlist item", nil)
			return
		}
	}
	common.JSONData(w, http.StatusOK, map[string]bool{"saved": !saved})
}

// Check handles GET /wishlist/{artworkId}. Anonymous callers always get false.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	aid, err := repo.UUIDValue(chi.URLParam(r, "artworkId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid artwork id", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONData(w, http.StatusOK, map[string]bool{"saved": false})
		return
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	saved, err := h.Q.HasWishlistItem(r.Context(), uid, aid)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check wishlist", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]bool{"saved": saved})
}

// Remove handles DELETE /wishlist/{artworkId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.identity(w, r)
	if !ok {
		return
	}
	aid, err := repo.UUIDValue(chi.URLParam(r, "artworkId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid artwork id", nil)
		return
	}
	affected, err := h.Q.RemoveWishlistItem(r.Context(), uid, aid)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to remove wishlist item", nil)
		return
	}
	if affected == 0 {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "wishlist item not found", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]bool{"saved": false})
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

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
