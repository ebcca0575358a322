package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

// TotalWeightKg sums line weights, substituting defaultKg for items without
// a recorded weight.
func TotalWeightKg(lines []repo.CartLine, defaultKg decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		if line.Quantity < 1 {
			qty = decimal.NewFromInt(1)
		}
		weight := defaultKg
		if w := repo.DecimalPtrFromNumeric(line.Artwork.WeightKg); w != nil && w.IsPositive() {
			weight = *w
		}
		total = total.Add(weight.Mul(qty))
	}
	return total
}

// CostForWeight prices shipment weight with a flat per-started-kilogram rate
// and a floor: max(minimum, ceil(weight) * ratePerKg).
func CostForWeight(weightKg decimal.Decimal, ratePerKg, minimum int64) decimal.Decimal {
	if weightKg.IsNegative() {
		weightKg = decimal.Zero
	}
	billed := weightKg.Ceil()
	cost := billed.Mul(decimal.NewFromInt(ratePerKg))
	floor := decimal.NewFromInt(minimum)
	if cost.LessThan(floor) {
		return floor
	}
	return cost
}
