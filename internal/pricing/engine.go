package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// RushFee is the flat surcharge added when the requested delivery date is
// within RushWindowDays whole days of the current date.
var RushFee = decimal.NewFromInt(50)

// RushWindowDays bounds the rush surcharge window (inclusive).
const RushWindowDays = 2

// Offer is a time-windowed discount attached to an artwork. A nil bound means
// the window is open on that side.
type Offer struct {
	Price      *decimal.Decimal
	Percent    *decimal.Decimal
	StartsAt   *time.Time
	EndsAt     *time.Time
	ForceBadge bool
}

// Item carries the pricing inputs of a single artwork.
type Item struct {
	BasePrice decimal.Decimal
	Offer     *Offer
	Schema    *Schema
}

// ComputeEffectivePrice derives the per-unit chargeable amount for an item
// given the caller's option selection at the provided instant.
//
// Discount candidates are compared independently against the base price: an
// absolute offer price wins only when lower than the running price, and a
// percent offer is always computed from the original base, never chained on
// top of an already-discounted price. Percent-derived amounts are rounded to
// two decimals before they are applied.
func ComputeEffectivePrice(item Item, sel Selection, now time.Time) decimal.Decimal {
	price := item.BasePrice

	if item.Offer != nil && offerWindowActive(item.Offer, now) {
		o := item.Offer
		if o.Price != nil && o.Price.IsPositive() && o.Price.LessThan(price) {
			price = *o.Price
		}
		if o.Percent != nil && o.Percent.IsPositive() && !o.Percent.GreaterThan(decimal.NewFromInt(100)) {
			discount := item.BasePrice.Mul(*o.Percent).Div(decimal.NewFromInt(100)).Round(2)
			candidate := decimal.Max(decimal.Zero, item.BasePrice.Sub(discount))
			if candidate.LessThan(price) {
				price = candidate
			}
		}
	}

	if item.Schema != nil {
		for key, opt := range item.Schema.Options {
			price = price.Add(optionDelta(item.BasePrice, key, opt, sel))
		}
	}

	if date, ok := sel.DeliveryDate(); ok && rushApplies(date, now) {
		price = price.Add(RushFee)
	}

	return price
}

// IsOnOffer reports whether the item should carry the "on offer" badge. The
// badge never feeds back into the computed price.
func IsOnOffer(item Item, now time.Time, effective decimal.Decimal) bool {
	if item.Offer == nil {
		return false
	}
	if item.Offer.ForceBadge {
		return true
	}
	return offerWindowActive(item.Offer, now) && effective.LessThan(item.BasePrice)
}

func offerWindowActive(o *Offer, now time.Time) bool {
	if o.StartsAt != nil && now.Before(*o.StartsAt) {
		return false
	}
	if o.EndsAt != nil && now.After(*o.EndsAt) {
		return false
	}
	return true
}

func optionDelta(base decimal.Decimal, key string, opt Option, sel Selection) decimal.Decimal {
	switch opt.Type {
	case OptionSelect:
		chosen, ok := sel.StringValue(key)
		if !ok {
			return decimal.Zero
		}
		for _, v := range opt.Values {
			if v.Value == chosen {
				return applyDelta(base, v.Delta)
			}
		}
	case OptionRange:
		if opt.Suppressed(key) {
			return decimal.Zero
		}
		value, ok := sel.NumberValue(key)
		if !ok {
			return decimal.Zero
		}
		for _, tier := range opt.Tiers {
			if !tier.Max.LessThan(value) {
				return applyDelta(base, tier.Delta)
			}
		}
	}
	return decimal.Zero
}

func applyDelta(base decimal.Decimal, d *Delta) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	switch d.Type {
	case DeltaFlat:
		return d.Value
	case DeltaPercent:
		return base.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Zero
}

func rushApplies(deliveryDate string, now time.Time) bool {
	requested, err := time.ParseInLocation("2006-01-02", deliveryDate, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(requested.Sub(today).Hours() / 24)
	return days >= 0 && days <= RushWindowDays
}
