package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }

func activeWindow() (*time.Time, *time.Time) {
	return timePtr(testNow.Add(-24 * time.Hour)), timePtr(testNow.Add(24 * time.Hour))
}

func TestBasePriceWithoutOfferOrSchema(t *testing.T) {
	item := Item{BasePrice: dec("1000")}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("1000")) {
		t.Fatalf("expected 1000, got %s", got)
	}
}

func TestAbsoluteOfferInsideWindow(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Price: decPtr("850"), StartsAt: starts, EndsAt: ends},
	}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("850")) {
		t.Fatalf("expected 850, got %s", got)
	}
}

func TestAbsoluteOfferOutsideWindow(t *testing.T) {
	item := Item{
		BasePrice: dec("1000"),
		Offer: &Offer{
			Price:    decPtr("850"),
			StartsAt: timePtr(testNow.Add(24 * time.Hour)),
			EndsAt:   timePtr(testNow.Add(48 * time.Hour)),
		},
	}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("1000")) {
		t.Fatalf("expected base price outside window, got %s", got)
	}
}

func TestOfferWindowOpenBounds(t *testing.T) {
	item := Item{BasePrice: dec("1000"), Offer: &Offer{Price: decPtr("900")}}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("900")) {
		t.Fatalf("expected open-ended window to apply, got %s", got)
	}
}

func TestPercentOffer(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Percent: decPtr("20"), StartsAt: starts, EndsAt: ends},
	}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("800")) {
		t.Fatalf("expected 800, got %s", got)
	}
}

func TestPercentBeatsAbsoluteWhenLower(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Price: decPtr("850"), Percent: decPtr("20"), StartsAt: starts, EndsAt: ends},
	}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("800")) {
		t.Fatalf("expected percent candidate 800 to win over 850, got %s", got)
	}
}

func TestAbsoluteBeatsPercentWhenLower(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Price: decPtr("700"), Percent: decPtr("20"), StartsAt: starts, EndsAt: ends},
	}
	got := ComputeEffectivePrice(item, nil, testNow)
	if !got.Equal(dec("700")) {
		t.Fatalf("expected absolute 700 to stand, got %s", got)
	}
}

func TestInvalidPercentIgnored(t *testing.T) {
	starts, ends := activeWindow()
	for _, pct := range []string{"0", "-5", "120"} {
		item := Item{
			BasePrice: dec("1000"),
			Offer:     &Offer{Percent: decPtr(pct), StartsAt: starts, EndsAt: ends},
		}
		got := ComputeEffectivePrice(item, nil, testNow)
		if !got.Equal(dec("1000")) {
			t.Fatalf("percent %s should be ignored, got %s", pct, got)
		}
	}
}

func TestSelectFlatDelta(t *testing.T) {
	item := Item{
		BasePrice: dec("500"),
		Schema: &Schema{Options: map[string]Option{
			"color": {Type: OptionSelect, Values: []SelectValue{
				{Value: "blue", Delta: &Delta{Type: DeltaFlat, Value: dec("0")}},
				{Value: "red", Delta: &Delta{Type: DeltaFlat, Value: dec("50")}},
			}},
		}},
	}
	got := ComputeEffectivePrice(item, Selection{"color": "red"}, testNow)
	if !got.Equal(dec("550")) {
		t.Fatalf("expected 550, got %s", got)
	}
	without := ComputeEffectivePrice(item, nil, testNow)
	if !without.Equal(dec("500")) {
		t.Fatalf("expected 500 without selection, got %s", without)
	}
	if !without.LessThan(got) {
		t.Fatalf("positive flat delta must strictly increase the price")
	}
}

func TestSelectPercentDeltaComputedFromBase(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{
		BasePrice: dec("1000"),
		Offer:     &Offer{Percent: decPtr("20"), StartsAt: starts, EndsAt: ends},
		Schema: &Schema{Options: map[string]Option{
			"finish": {Type: OptionSelect, Values: []SelectValue{
				{Value: "gloss", Delta: &Delta{Type: DeltaPercent, Value: dec("10")}},
			}},
		}},
	}
	// 800 after the offer, plus 10% of the base 1000, not of 800.
	got := ComputeEffectivePrice(item, Selection{"finish": "gloss"}, testNow)
	if !got.Equal(dec("900")) {
		t.Fatalf("expected 900, got %s", got)
	}
}

func TestUnknownSelectionKeysIgnored(t *testing.T) {
	item := Item{
		BasePrice: dec("500"),
		Schema: &Schema{Options: map[string]Option{
			"size": {Type: OptionSelect, Values: []SelectValue{
				{Value: "A4", Delta: &Delta{Type: DeltaFlat, Value: dec("150")}},
			}},
		}},
	}
	got := ComputeEffectivePrice(item, Selection{"bogus": "x", "size": "A4"}, testNow)
	if !got.Equal(dec("650")) {
		t.Fatalf("expected 650, got %s", got)
	}
}

func TestRangeTierBoundary(t *testing.T) {
	item := Item{
		BasePrice: dec("100"),
		Schema: &Schema{Options: map[string]Option{
			"photos": {Type: OptionRange, Tiers: []RangeTier{
				{Max: dec("10"), Delta: &Delta{Type: DeltaFlat, Value: dec("5")}},
				{Max: dec("20"), Delta: &Delta{Type: DeltaFlat, Value: dec("15")}},
			}},
		}},
	}
	atBoundary := ComputeEffectivePrice(item, Selection{"photos": float64(10)}, testNow)
	if !atBoundary.Equal(dec("105")) {
		t.Fatalf("value 10 should hit the first tier, got %s", atBoundary)
	}
	pastBoundary := ComputeEffectivePrice(item, Selection{"photos": float64(11)}, testNow)
	if !pastBoundary.Equal(dec("115")) {
		t.Fatalf("value 11 should hit the second tier, got %s", pastBoundary)
	}
	beyond := ComputeEffectivePrice(item, Selection{"photos": float64(99)}, testNow)
	if !beyond.Equal(dec("100")) {
		t.Fatalf("value past the last tier contributes nothing, got %s", beyond)
	}
}

func TestCharsRangeSuppressed(t *testing.T) {
	tiers := []RangeTier{{Max: dec("80"), Delta: &Delta{Type: DeltaFlat, Value: dec("99")}}}
	for _, tc := range []struct {
		key string
		opt Option
	}{
		{key: "engraving", opt: Option{Type: OptionRange, Unit: "chars", Tiers: tiers}},
		{key: "messageLength", opt: Option{Type: OptionRange, Tiers: tiers}},
		{key: "textLength", opt: Option{Type: OptionRange, Tiers: tiers}},
	} {
		item := Item{BasePrice: dec("100"), Schema: &Schema{Options: map[string]Option{tc.key: tc.opt}}}
		got := ComputeEffectivePrice(item, Selection{tc.key: float64(40)}, testNow)
		if !got.Equal(dec("100")) {
			t.Fatalf("%s must never contribute a delta, got %s", tc.key, got)
		}
	}
}

func TestDeltasCumulative(t *testing.T) {
	item := Item{
		BasePrice: dec("200"),
		Schema: &Schema{Options: map[string]Option{
			"frame":    {Type: OptionSelect, Values: []SelectValue{{Value: "basic", Delta: &Delta{Type: DeltaFlat, Value: dec("199")}}}},
			"material": {Type: OptionSelect, Values: []SelectValue{{Value: "canvas", Delta: &Delta{Type: DeltaFlat, Value: dec("199")}}}},
		}},
	}
	got := ComputeEffectivePrice(item, Selection{"frame": "basic", "material": "canvas"}, testNow)
	if !got.Equal(dec("598")) {
		t.Fatalf("expected both deltas applied, got %s", got)
	}
}

func TestRushFeeBoundaries(t *testing.T) {
	item := Item{BasePrice: dec("100")}
	cases := []struct {
		date string
		want string
	}{
		{testNow.Format("2006-01-02"), "150"},
		{testNow.AddDate(0, 0, 2).Format("2006-01-02"), "150"},
		{testNow.AddDate(0, 0, 3).Format("2006-01-02"), "100"},
		{testNow.AddDate(0, 0, -1).Format("2006-01-02"), "100"},
		{"not-a-date", "100"},
	}
	for _, tc := range cases {
		got := ComputeEffectivePrice(item, Selection{"deliveryDate": tc.date}, testNow)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("deliveryDate %q: expected %s, got %s", tc.date, tc.want, got)
		}
	}
}

func TestComputeIsPure(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{
		BasePrice: dec("999.99"),
		Offer:     &Offer{Percent: decPtr("12.5"), StartsAt: starts, EndsAt: ends},
		Schema: &Schema{Options: map[string]Option{
			"size": {Type: OptionSelect, Values: []SelectValue{{Value: "A3", Delta: &Delta{Type: DeltaPercent, Value: dec("7")}}}},
		}},
	}
	sel := Selection{"size": "A3", "deliveryDate": testNow.Format("2006-01-02")}
	first := ComputeEffectivePrice(item, sel, testNow)
	second := ComputeEffectivePrice(item, sel, testNow)
	if !first.Equal(second) {
		t.Fatalf("expected identical results, got %s then %s", first, second)
	}
}

func TestIsOnOffer(t *testing.T) {
	starts, ends := activeWindow()
	item := Item{BasePrice: dec("1000"), Offer: &Offer{Price: decPtr("850"), StartsAt: starts, EndsAt: ends}}
	effective := ComputeEffectivePrice(item, nil, testNow)
	if !IsOnOffer(item, testNow, effective) {
		t.Fatal("active discount must flag the badge")
	}

	expired := Item{BasePrice: dec("1000"), Offer: &Offer{
		Price:    decPtr("850"),
		StartsAt: timePtr(testNow.Add(-72 * time.Hour)),
		EndsAt:   timePtr(testNow.Add(-48 * time.Hour)),
	}}
	if IsOnOffer(expired, testNow, ComputeEffectivePrice(expired, nil, testNow)) {
		t.Fatal("expired offer must not flag the badge")
	}

	forced := Item{BasePrice: dec("1000"), Offer: &Offer{ForceBadge: true}}
	if !IsOnOffer(forced, testNow, dec("1000")) {
		t.Fatal("forceBadge shows the badge even without a reduction")
	}

	expired.Offer.ForceBadge = true
	if !IsOnOffer(expired, testNow, ComputeEffectivePrice(expired, nil, testNow)) {
		t.Fatal("forceBadge overrides the window for the badge, never the price")
	}
}
