package pricing

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Option kinds supported by the per-artwork pricing schema.
const (
	OptionSelect = "select"
	OptionRange  = "range"
)

// Delta kinds. Flat amounts are added as-is; percent deltas are computed from
// the base price.
const (
	DeltaFlat    = "flat"
	DeltaPercent = "percent"
)

// unitChars marks character-count range options which are a disabled pricing
// dimension and never contribute a delta.
const unitChars = "chars"

// Delta describes a single price adjustment.
type Delta struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// SelectValue is one choosable value of a select option.
type SelectValue struct {
	Value string `json:"value"`
	Delta *Delta `json:"delta,omitempty"`
}

// RangeTier is one tier of a range option; the first tier whose Max is greater
// than or equal to the selected value applies.
type RangeTier struct {
	Max   decimal.Decimal `json:"max"`
	Delta *Delta          `json:"delta,omitempty"`
}

// Option is a single customization dimension.
type Option struct {
	Type   string        `json:"type"`
	Unit   string        `json:"unit,omitempty"`
	Values []SelectValue `json:"values,omitempty"`
	Tiers  []RangeTier   `json:"tiers,omitempty"`
}

// Suppressed reports whether a range option is a disabled character-length
// dimension, either by unit or by legacy key name.
func (o Option) Suppressed(key string) bool {
	if strings.EqualFold(strings.TrimSpace(o.Unit), unitChars) {
		return true
	}
	return key == "messageLength" || key == "textLength"
}

// Schema is the per-artwork description of customizable options and their
// price deltas, stored as JSON on the artwork row.
type Schema struct {
	Options map[string]Option `json:"options"`
}

// ParseSchema decodes a raw pricing schema. Malformed or empty input yields a
// nil schema so that callers degrade to base-price-only behaviour instead of
// failing the request.
func ParseSchema(raw []byte) *Schema {
	if len(raw) == 0 {
		return nil
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if len(s.Options) == 0 {
		return nil
	}
	return &s
}

// Selection is the caller-supplied map of option key to chosen value, plus an
// optional deliveryDate entry used only for the rush surcharge. Values arrive
// from JSON, so strings and numbers are both accepted.
type Selection map[string]any

const deliveryDateKey = "deliveryDate"

// DeliveryDate returns the requested delivery date, when present.
func (s Selection) DeliveryDate() (string, bool) {
	return s.StringValue(deliveryDateKey)
}

// StringValue returns the selection for key coerced to a string.
func (s Selection) StringValue(key string) (string, bool) {
	raw, ok := s[key]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// NumberValue returns the selection for key coerced to a decimal.
func (s Selection) NumberValue(key string) (decimal.Decimal, bool) {
	raw, ok := s[key]
	if !ok || raw == nil {
		return decimal.Zero, false
	}
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}
