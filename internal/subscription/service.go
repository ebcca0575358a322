package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	UpsertSubscription(ctx context.Context, userID pgtype.UUID, plan string, expiresAt time.Time) (repo.Subscription, error)
	GetSubscription(ctx context.Context, userID pgtype.UUID) (repo.Subscription, error)
}

// Plan is a purchasable membership tier.
type Plan struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Duration time.Duration   `json:"-"`
	Days     int             `json:"days"`
}

// Plans returns the fixed membership catalog.
func Plans() []Plan {
	return []Plan{
		{Code: "monthly", Name: "Monthly", Price: decimal.NewFromInt(199), Duration: 30 * 24 * time.Hour, Days: 30},
		{Code: "quarterly", Name: "Quarterly", Price: decimal.NewFromInt(499), Duration: 90 * 24 * time.Hour, Days: 90},
		{Code: "yearly", Name: "Yearly", Price: decimal.NewFromInt(1499), Duration: 365 * 24 * time.Hour, Days: 365},
	}
}

func planByCode(code string) (Plan, bool) {
	for _, p := range Plans() {
		if p.Code == code {
			return p, true
		}
	}
	return Plan{}, false
}

// Service manages membership subscriptions.
type Service struct {
	Q      queryProvider
	Events *events.Bus
	Now    func() time.Time
}

// Status is the user-facing subscription state.
type Status struct {
	Active    bool       `json:"active"`
	Plan      string     `json:"plan,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Activate starts or extends a plan. An active subscription extends from its
// current expiry, a lapsed one restarts from now.
func (s *Service) Activate(ctx context.Context, userID, planCode string) (Status, error) {
	if s == nil || s.Q == nil {
		return Status{}, errors.New("subscription service not configured")
	}
	plan, ok := planByCode(planCode)
	if !ok {
		return Status{}, common.BadRequest("plan", "unknown plan", nil)
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return Status{}, common.BadRequest("userId", "invalid user id", err)
	}
	now := s.now()
	start := now
	if current, err := s.Q.GetSubscription(ctx, uid); err == nil {
		if current.Status == "active" && current.ExpiresAt.Valid && current.ExpiresAt.Time.After(now) {
			start = current.ExpiresAt.Time
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Status{}, fmt.Errorf("load subscription: %w", err)
	}
	sub, err := s.Q.UpsertSubscription(ctx, uid, plan.Code, start.Add(plan.Duration))
	if err != nil {
		return Status{}, fmt.Errorf("activate subscription: %w", err)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicSubscriptionActivated, userID, map[string]any{
			"userId":    userID,
			"plan":      plan.Code,
			"expiresAt": sub.ExpiresAt.Time.Format(time.RFC3339),
		})
	}
	return statusOf(sub, now), nil
}

// StatusFor reports the user's current subscription state.
func (s *Service) StatusFor(ctx context.Context, userID string) (Status, error) {
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return Status{}, common.BadRequest("userId", "invalid user id", err)
	}
	sub, err := s.Q.GetSubscription(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("load subscription: %w", err)
	}
	return statusOf(sub, s.now()), nil
}

func statusOf(sub repo.Subscription, now time.Time) Status {
	out := Status{Plan: sub.Plan}
	if sub.ExpiresAt.Valid {
		exp := sub.ExpiresAt.Time
		out.ExpiresAt = &exp
		out.Active = sub.Status == "active" && exp.After(now)
	}
	return out
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
