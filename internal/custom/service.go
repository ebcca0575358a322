package custom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	InsertCustomRequest(ctx context.Context, arg repo.InsertCustomRequestParams) (repo.CustomRequest, error)
	ListCustomRequests(ctx context.Context, userID pgtype.UUID) ([]repo.CustomRequest, error)
	HasCompletedCustomRequest(ctx context.Context, userID pgtype.UUID) (bool, error)
	UpdateCustomRequestStatus(ctx context.Context, requestID pgtype.UUID, status string) (int64, error)
}

// Service manages customization requests. A completed request is what unlocks
// ordering artworks flagged as requiring customization.
type Service struct {
	Q      queryProvider
	Events *events.Bus
}

// CreateInput describes a new request.
type CreateInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Occasion    string `json:"occasion" validate:"omitempty,max=100"`
	Deadline    string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	Source      string `json:"source" validate:"omitempty,max=100"`
}

// Request is the API projection of a customization request.
type Request struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Occasion    *string   `json:"occasion,omitempty"`
	Deadline    *string   `json:"deadline,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func project(cr repo.CustomRequest) Request {
	out := Request{
		ID:        repo.UUIDString(cr.ID),
		Title:     cr.Title,
		Status:    cr.Status,
		CreatedAt: cr.CreatedAt.Time,
	}
	if cr.Description.Valid {
		v := cr.Description.String
		out.Description = &v
	}
	if cr.Occasion.Valid {
		v := cr.Occasion.String
		out.Occasion = &v
	}
	if cr.Deadline.Valid {
		v := cr.Deadline.Time.Format("2006-01-02")
		out.Deadline = &v
	}
	return out
}

// Create records a pending request and announces it.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Request, error) {
	if s == nil || s.Q == nil {
		return Request{}, errors.New("custom request service not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return Request{}, common.BadRequest("userId", "invalid user id", err)
	}
	params := repo.InsertCustomRequestParams{
		UserID:      uid,
		Title:       strings.TrimSpace(in.Title),
		Description: repo.TextOrNull(in.Description),
		Occasion:    repo.TextOrNull(in.Occasion),
		Source:      repo.TextOrNull(in.Source),
	}
	if in.Deadline != "" {
		day, err := time.Parse("2006-01-02", in.Deadline)
		if err != nil {
			return Request{}, common.BadRequest("deadline", "deadline must be YYYY-MM-DD", err)
		}
		params.Deadline = pgtype.Date{Time: day, Valid: true}
	}
	cr, err := s.Q.InsertCustomRequest(ctx, params)
	if err != nil {
		return Request{}, fmt.Errorf("insert custom request: %w", err)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicCustomRequestCreated, repo.UUIDString(cr.ID), map[string]any{
			"requestId": repo.UUIDString(cr.ID),
			"userId":    userID,
			"title":     cr.Title,
		})
	}
	return project(cr), nil
}

// List returns the user's requests newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Request, error) {
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return nil, common.BadRequest("userId", "invalid user id", err)
	}
	rows, err := s.Q.ListCustomRequests(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list custom requests: %w", err)
	}
	out := make([]Request, 0, len(rows))
	for _, cr := range rows {
		out = append(out, project(cr))
	}
	return out, nil
}

// ApprovalStatus reports whether the user may order customized artworks.
func (s *Service) ApprovalStatus(ctx context.Context, userID string) (bool, error) {
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return false, common.BadRequest("userId", "invalid user id", err)
	}
	approved, err := s.Q.HasCompletedCustomRequest(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("check customization approval: %w", err)
	}
	return approved, nil
}

// Resolve moves a request to completed or rejected and announces the outcome.
func (s *Service) Resolve(ctx context.Context, requestID, status string) error {
	if status != repo.CustomRequestCompleted && status != repo.CustomRequestRejected {
		return common.BadRequest("status", "status must be completed or rejected", nil)
	}
	rid, err := repo.UUIDValue(requestID)
	if err != nil {
		return common.BadRequest("requestId", "invalid request id", err)
	}
	affected, err := s.Q.UpdateCustomRequestStatus(ctx, rid, status)
	if err != nil {
		return fmt.Errorf("update custom request status: %w", err)
	}
	if affected == 0 {
		return common.NotFound("custom request not found", nil)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicCustomRequestResolved, requestID, map[string]any{
			"requestId": requestID,
			"status":    status,
		})
	}
	return nil
}
