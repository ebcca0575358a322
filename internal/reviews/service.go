package reviews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	InsertReview(ctx context.Context, arg repo.InsertReviewParams) (repo.Review, error)
	ListReviewsByArtwork(ctx context.Context, artworkID pgtype.UUID, limit, offset int32) ([]repo.Review, error)
	GetRatingSummary(ctx context.Context, artworkID pgtype.UUID) (repo.RatingSummary, error)
	ListRateableItems(ctx context.Context, userID pgtype.UUID) ([]repo.RateableItem, error)
	HasPurchasedArtwork(ctx context.Context, userID, orderID, artworkID pgtype.UUID) (bool, error)
}

// Service handles product reviews. Only verified purchases may review, and a
// repeat submission for the same order line replaces the earlier one.
type Service struct {
	Q queryProvider
}

// CreateInput is a review submission.
type CreateInput struct {
	ArtworkID string `json:"artworkId" validate:"required,uuid4"`
	OrderID   string `json:"orderId" validate:"required,uuid4"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"omitempty,max=2000"`
}

// Review is the API projection of a stored review.
type Review struct {
	ID        string    `json:"id"`
	ArtworkID string    `json:"artworkId"`
	Rating    int16     `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArtworkReviews bundles the review list with its aggregate.
type ArtworkReviews struct {
	Reviews []Review        `json:"reviews"`
	Count   int64           `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// RateableItem is an order line awaiting a review.
type RateableItem struct {
	OrderID   string `json:"orderId"`
	ArtworkID string `json:"artworkId"`
	Title     string `json:"title"`
}

func projectReview(rv repo.Review) Review {
	out := Review{
		ID:        repo.UUIDString(rv.ID),
		ArtworkID: repo.UUIDString(rv.ArtworkID),
		Rating:    rv.Rating,
		CreatedAt: rv.CreatedAt.Time,
	}
	if rv.Comment.Valid {
		c := rv.Comment.String
		out.Comment = &c
	}
	return out
}

// Create stores a review after confirming the purchase.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Review, error) {
	if s == nil || s.Q == nil {
		return Review{}, errors.New("review service not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return Review{}, common.BadRequest("userId", "invalid user id", err)
	}
	aid, err := repo.UUIDValue(in.ArtworkID)
	if err != nil {
		return Review{}, common.BadRequest("artworkId", "invalid artwork id", err)
	}
	oid, err := repo.UUIDValue(in.OrderID)
	if err != nil {
		return Review{}, common.BadRequest("orderId", "invalid order id", err)
	}
	purchased, err := s.Q.HasPurchasedArtwork(ctx, uid, oid, aid)
	if err != nil {
		return Review{}, fmt.Errorf("check purchase: %w", err)
	}
	if !purchased {
		return Review{}, &common.AppError{
			Code:       "REVIEW_NOT_ALLOWED",
			Message:    "reviews are limited to purchased items",
			HTTPStatus: http.StatusForbidden,
		}
	}
	rv, err := s.Q.InsertReview(ctx, repo.InsertReviewParams{
		UserID:    uid,
		ArtworkID: aid,
		OrderID:   oid,
		Rating:    int16(in.Rating),
		Comment:   repo.TextOrNull(strings.TrimSpace(in.Comment)),
	})
	if err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return projectReview(rv), nil
}

// ForArtwork returns reviews for a catalog item with the aggregate rating.
func (s *Service) ForArtwork(ctx context.Context, artworkID string, limit, offset int32) (ArtworkReviews, error) {
	aid, err := repo.UUIDValue(artworkID)
	if err != nil {
		return ArtworkReviews{}, common.BadRequest("artworkId", "invalid artwork id", err)
	}
	rows, err := s.Q.ListReviewsByArtwork(ctx, aid, limit, offset)
	if err != nil {
		return ArtworkReviews{}, fmt.Errorf("list reviews: %w", err)
	}
	summary, err := s.Q.GetRatingSummary(ctx, aid)
	if err != nil {
		return ArtworkReviews{}, fmt.Errorf("rating summary: %w", err)
	}
	out := ArtworkReviews{
		Reviews: make([]Review, 0, len(rows)),
		Count:   summary.Count,
		Average: repo.DecimalFromNumeric(summary.Average),
	}
	for _, rv := range rows {
		out.Reviews = append(out.Reviews, projectReview(rv))
	}
	return out, nil
}

// Rateable lists the user's paid order lines still awaiting a review.
func (s *Service) Rateable(ctx context.Context, userID string) ([]RateableItem, error) {
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return nil, common.BadRequest("userId", "invalid user id", err)
	}
	rows, err := s.Q.ListRateableItems(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list rateable items: %w", err)
	}
	out := make([]RateableItem, 0, len(rows))
	for _, it := range rows {
		out = append(out, RateableItem{
			OrderID:   repo.UUIDString(it.OrderID),
			ArtworkID: repo.UUIDString(it.ArtworkID),
			Title:     it.Title,
		})
	}
	return out, nil
}
