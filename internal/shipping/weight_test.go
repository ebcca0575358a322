package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

func weightLine(weight string, qty int32) repo.CartLine {
	line := repo.CartLine{}
	line.Quantity = qty
	if weight != "" {
		d := decimal.RequireFromString(weight)
		line.Artwork.WeightKg = repo.NumericFromDecimal(d)
	}
	return line
}

func TestTotalWeightUsesDefaultWhenMissing(t *testing.T) {
	def := decimal.RequireFromString("0.5")
	lines := []repo.CartLine{
		weightLine("", 2),
		weightLine("0.3", 1),
	}
	total := TotalWeightKg(lines, def)
	require.Equal(t, "1.3", total.String())
}

func TestTotalWeightFloorsQuantity(t *testing.T) {
	lines := []repo.CartLine{weightLine("0.4", 0)}
	total := TotalWeightKg(lines, decimal.RequireFromString("0.5"))
	require.Equal(t, "0.4", total.String())
}

func TestCostForWeightRoundsUpPerKg(t *testing.T) {
	cases := []struct {
		weight string
		want   string
	}{
		{"1.3", "120"},
		{"0.2", "60"},
		{"1", "60"},
		{"2", "120"},
		{"2.01", "180"},
	}
	for _, tc := range cases {
		got := CostForWeight(decimal.RequireFromString(tc.weight), 60, 60)
		require.Equal(t, tc.want, got.String(), "weight %s", tc.weight)
	}
}

func TestCostForWeightAppliesMinimum(t *testing.T) {
	got := CostForWeight(decimal.RequireFromString("0.1"), 40, 90)
	require.Equal(t, "90", got.String())
}
