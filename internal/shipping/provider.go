package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuoteRequest asks a courier for delivery options to a destination pincode.
type QuoteRequest struct {
	PickupPincode   string
	DeliveryPincode string
	WeightKg        decimal.Decimal
	COD             bool
}

// CourierOption is one serviceable courier with its rate.
type CourierOption struct {
	Courier       string          `json:"courier"`
	Rate          decimal.Decimal `json:"rate"`
	EstimatedDays string          `json:"estimatedDays,omitempty"`
}

// TrackEvent represents a single tracking scan returned by a courier.
type TrackEvent struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	OccurredAt  string `json:"occurredAt,omitempty"`
}

// Client models the external shipping aggregator.
type Client interface {
	Quote(ctx context.Context, req QuoteRequest) ([]CourierOption, error)
	Track(ctx context.Context, awb string) ([]TrackEvent, error)
}
