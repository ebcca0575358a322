package shipping

import (
	"context"
)

// MockClient serves weight-based quotes without a network call.
type MockClient struct {
	RatePerKg int64
	Minimum   int64
}

// Quote implements Client using the flat weight model.
func (m MockClient) Quote(_ context.Context, req QuoteRequest) ([]CourierOption, error) {
	rate := m.RatePerKg
	if rate <= 0 {
		rate = 60
	}
	minimum := m.Minimum
	if minimum <= 0 {
		minimum = 60
	}
	return []CourierOption{{
		Courier:       "standard",
		Rate:          CostForWeight(req.WeightKg, rate, minimum),
		EstimatedDays: "5",
	}}, nil
}

// Track implements Client with a static in-transit event.
func (m MockClient) Track(_ context.Context, awb string) ([]TrackEvent, error) {
	return []TrackEvent{{Status: "in_transit", Description: "shipment registered", OccurredAt: ""}}, nil
}
