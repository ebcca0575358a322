package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValuateCart(t *testing.T) {
	plain := Item{BasePrice: dec("1000")}
	withColor := Item{
		BasePrice: dec("500"),
		Schema: &Schema{Options: map[string]Option{
			"color": {Type: OptionSelect, Values: []SelectValue{
				{Value: "red", Delta: &Delta{Type: DeltaFlat, Value: dec("50")}},
			}},
		}},
	}
	totals := Valuate([]Line{
		{Item: plain, Qty: 2},
		{Item: withColor, Qty: 1, Selection: Selection{"color": "red"}},
	}, testNow)

	if len(totals.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(totals.Lines))
	}
	if !totals.Lines[0].UnitPrice.Equal(dec("1000")) || !totals.Lines[0].LineTotal.Equal(dec("2000")) {
		t.Fatalf("line 0 mispriced: unit=%s total=%s", totals.Lines[0].UnitPrice, totals.Lines[0].LineTotal)
	}
	if !totals.Lines[1].UnitPrice.Equal(dec("550")) || !totals.Lines[1].LineTotal.Equal(dec("550")) {
		t.Fatalf("line 1 mispriced: unit=%s total=%s", totals.Lines[1].UnitPrice, totals.Lines[1].LineTotal)
	}
	if !totals.Subtotal.Equal(dec("2550")) {
		t.Fatalf("expected subtotal 2550, got %s", totals.Subtotal)
	}
}

func TestValuateDefaultsNonPositiveQty(t *testing.T) {
	totals := Valuate([]Line{{Item: Item{BasePrice: dec("100")}, Qty: 0}}, testNow)
	if !totals.Subtotal.Equal(dec("100")) {
		t.Fatalf("expected qty to default to 1, got %s", totals.Subtotal)
	}
}

func TestAddonTotalTrustedVerbatim(t *testing.T) {
	total := AddonTotal([]decimal.Decimal{dec("49.50"), dec("100"), dec("0.49")})
	if !total.Equal(dec("149.99")) {
		t.Fatalf("expected 149.99, got %s", total)
	}
	if !AddonTotal(nil).Equal(decimal.Zero) {
		t.Fatal("empty add-on list must total zero")
	}
}
