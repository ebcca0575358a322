package repo

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestNumericDecimalConversion(t *testing.T) {
	d := decimal.RequireFromString("1234.56")
	n := NumericFromDecimal(d)
	if !n.Valid {
		t.Fatalf("expected valid numeric")
	}
	back := DecimalFromNumeric(n)
	if !back.Equal(d) {
		t.Fatalf("roundtrip mismatch: %s != %s", back, d)
	}
}

func TestDecimalFromNumericNull(t *testing.T) {
	if got := DecimalFromNumeric(pgtype.Numeric{}); !got.IsZero() {
		t.Fatalf("null numeric should convert to zero, got %s", got)
	}
	if got := DecimalPtrFromNumeric(pgtype.Numeric{}); got != nil {
		t.Fatalf("null numeric should convert to nil pointer")
	}
}

func TestNumericFromDecimalPtr(t *testing.T) {
	if n := NumericFromDecimalPtr(nil); n.Valid {
		t.Fatalf("nil pointer should map to SQL NULL")
	}
	d := decimaled("99.90")
	n := NumericFromDecimalPtr(&d)
	if got := DecimalFromNumeric(n); !got.Equal(d) {
		t.Fatalf("expected %s got %s", d, got)
	}
}

func TestUUIDHelpers(t *testing.T) {
	id := NewUUID()
	s := UUIDString(id)
	if s == "" {
		t.Fatalf("expected canonical uuid string")
	}
	parsed, err := UUIDValue(s)
	if err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if parsed.Bytes != id.Bytes {
		t.Fatalf("uuid roundtrip mismatch")
	}
	if _, err := UUIDValue("not-a-uuid"); err == nil {
		t.Fatalf("expected error for malformed uuid")
	}
	if UUIDString(pgtype.UUID{}) != "" {
		t.Fatalf("null uuid should render empty")
	}
}

func decimaled(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
