package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is a cart or order line awaiting valuation.
type Line struct {
	Item      Item
	Qty       int
	Selection Selection
}

// LineTotal is the valued projection of a single line.
type LineTotal struct {
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	OnOffer   bool
}

// Totals aggregates per-line valuations and the cart subtotal.
type Totals struct {
	Lines    []LineTotal
	Subtotal decimal.Decimal
}

// Valuate prices every line through ComputeEffectivePrice and sums the line
// totals. The same function backs cart display, order materialization and
// payment-order preparation so the three paths cannot diverge.
func Valuate(lines []Line, now time.Time) Totals {
	out := Totals{Lines: make([]LineTotal, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		qty := line.Qty
		if qty <= 0 {
			qty = 1
		}
		unit := ComputeEffectivePrice(line.Item, line.Selection, now)
		total := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		out.Lines = append(out.Lines, LineTotal{
			UnitPrice: unit.Round(2),
			LineTotal: total,
			OnOffer:   IsOnOffer(line.Item, now, unit),
		})
		out.Subtotal = out.Subtotal.Add(total)
	}
	out.Subtotal = out.Subtotal.Round(2)
	return out
}

// AddonTotal sums caller-supplied add-on prices. The amounts are trusted
// verbatim; there is no server-side add-on catalog to validate against.
func AddonTotal(prices []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(p)
	}
	return total.Round(2)
}
