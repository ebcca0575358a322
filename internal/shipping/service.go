package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/obs"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type queryProvider interface {
	ListCartLines(ctx context.Context, userID pgtype.UUID) ([]repo.CartLine, error)
}

// Service answers shipping quotes, preferring live courier rates and falling
// back to the flat weight model when the aggregator is unavailable.
type Service struct {
	Q               queryProvider
	Client          Client
	Redis           *redis.Client
	CacheTTL        time.Duration
	PickupPincode   string
	RatePerKg       int64
	Minimum         int64
	DefaultWeightKg decimal.Decimal
}

// Quote is the priced answer for a destination.
type Quote struct {
	WeightKg decimal.Decimal `json:"weightKg"`
	Options  []CourierOption `json:"options"`
	Cheapest decimal.Decimal `json:"cheapest"`
	Source   string          `json:"source"`
}

// QuoteInput is the resolve-and-price request.
type QuoteInput struct {
	DeliveryPincode string `json:"deliveryPincode"`
	WeightKg        string `json:"weightKg"`
	COD             bool   `json:"cod"`
}

// QuoteForUser computes the shipment weight from the user's cart unless an
// explicit weight is given, then prices delivery to the pincode.
func (s *Service) QuoteForUser(ctx context.Context, userID string, in QuoteInput) (Quote, error) {
	if s == nil {
		return Quote{}, errors.New("shipping service not configured")
	}
	pincode := strings.TrimSpace(in.DeliveryPincode)
	if len(pincode) != 6 {
		return Quote{}, common.BadRequest("deliveryPincode", "deliveryPincode must be a 6 digit pincode", nil)
	}
	weight, err := s.resolveWeight(ctx, userID, in.WeightKg)
	if err != nil {
		return Quote{}, err
	}
	if !weight.IsPositive() {
		return Quote{}, common.BadRequest("weightKg", "nothing to ship", nil)
	}
	if cached, ok := s.cachedQuote(ctx, pincode, weight); ok {
		s.countQuote("cache", "ok")
		return cached, nil
	}
	if s.Client != nil {
		options, err := s.Client.Quote(ctx, QuoteRequest{
			PickupPincode:   s.PickupPincode,
			DeliveryPincode: pincode,
			WeightKg:        weight,
			COD:             in.COD,
		})
		if err == nil && len(options) > 0 {
			quote := Quote{WeightKg: weight, Options: options, Cheapest: cheapest(options), Source: "courier"}
			s.storeQuote(ctx, pincode, weight, quote)
			s.countQuote("courier", "ok")
			return quote, nil
		}
		if err != nil {
			s.countQuote("courier", "error")
		}
	}
	flat := CostForWeight(weight, s.rate(), s.minimum())
	s.countQuote("fallback", "ok")
	return Quote{
		WeightKg: weight,
		Options:  []CourierOption{{Courier: "standard", Rate: flat}},
		Cheapest: flat,
		Source:   "flat",
	}, nil
}

// FlatCostForCart prices the user's cart with the flat weight model only.
// Used by the payment flow where a deterministic cost is required.
func (s *Service) FlatCostForCart(lines []repo.CartLine) (decimal.Decimal, decimal.Decimal) {
	weight := TotalWeightKg(lines, s.defaultWeight())
	return weight, CostForWeight(weight, s.rate(), s.minimum())
}

// Track proxies courier tracking for an AWB number.
func (s *Service) Track(ctx context.Context, awb string) ([]TrackEvent, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("shipping client not configured")
	}
	events, err := s.Client.Track(ctx, awb)
	if err != nil {
		return nil, &common.AppError{Code: "SHIPPING_ERROR", Message: "unable to fetch tracking", HTTPStatus: 502, Err: err}
	}
	return events, nil
}

func (s *Service) resolveWeight(ctx context.Context, userID, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) != "" {
		w, err := decimal.NewFromString(raw)
		if err != nil || w.IsNegative() {
			return decimal.Zero, common.BadRequest("weightKg", "weightKg must be a non-negative number", err)
		}
		return w, nil
	}
	if s.Q == nil {
		return decimal.Zero, errors.New("shipping queries not configured")
	}
	uid, err := repo.UUIDValue(userID)
	if err != nil {
		return decimal.Zero, common.BadRequest("userId", "invalid user id", err)
	}
	lines, err := s.Q.ListCartLines(ctx, uid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list cart lines: %w", err)
	}
	return TotalWeightKg(lines, s.defaultWeight()), nil
}

func (s *Service) cachedQuote(ctx context.Context, pincode string, weight decimal.Decimal) (Quote, bool) {
	if s.Redis == nil {
		return Quote{}, false
	}
	data, err := s.Redis.Get(ctx, s.cacheKey(pincode, weight)).Bytes()
	if err != nil {
		return Quote{}, false
	}
	var quote Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		return Quote{}, false
	}
	return quote, true
}

func (s *Service) storeQuote(ctx context.Context, pincode string, weight decimal.Decimal, quote Quote) {
	if s.Redis == nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return
	}
	_ = s.Redis.Set(ctx, s.cacheKey(pincode, weight), data, ttl).Err()
}

func (s *Service) cacheKey(pincode string, weight decimal.Decimal) string {
	return "shipping:quote:" + s.PickupPincode + ":" + pincode + ":" + weight.String()
}

func (s *Service) countQuote(source, result string) {
	if obs.ShippingQuoteTotal != nil {
		obs.ShippingQuoteTotal.WithLabelValues(source, result).Inc()
	}
}

func (s *Service) rate() int64 {
	if s.RatePerKg > 0 {
		return s.RatePerKg
	}
	return 60
}

func (s *Service) minimum() int64 {
	if s.Minimum > 0 {
		return s.Minimum
	}
	return 60
}

func (s *Service) defaultWeight() decimal.Decimal {
	if s.DefaultWeightKg.IsPositive() {
		return s.DefaultWeightKg
	}
	return decimal.RequireFromString("0.5")
}

func cheapest(options []CourierOption) decimal.Decimal {
	if len(options) == 0 {
		return decimal.Zero
	}
	best := options[0].Rate
	for _, o := range options[1:] {
		if o.Rate.LessThan(best) {
			best = o.Rate
		}
	}
	return best
}
