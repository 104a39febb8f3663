package quant

import (
	"testing"
)

func TestParseFixedPointStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"Integer", "100", 100_000_000},
		{"Fraction", "1.23", 1_230_000},
		{"Full precision", "0.000001", 1},
		{"Truncates excess", "1.2345678", 1_234_567},
		{"Negative", "-1.5", -1_500_000},
		{"Empty", "", 0},
		{"Null literal", "null", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := int64(ToPriceMicrosStr(tt.in)); got != tt.want {
				t.Errorf("ToPriceMicrosStr(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNotional(t *testing.T) {
	tests := []struct {
		name  string
		price PriceMicros
		qty   QtyUnits
		want  AmountMicros
	}{
		{"Buy", ToPriceMicros(100), ToQtyUnits(10), ToAmountMicros(1000)},
		{"Sell", ToPriceMicros(110), ToQtyUnits(-15), ToAmountMicros(-1650)},
		{"Fractional qty", ToPriceMicros(2), ToQtyUnits(0.5), ToAmountMicros(1)},
		{"Zero", ToPriceMicros(100), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Notional(tt.price, tt.qty); got != tt.want {
				t.Errorf("Notional() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQtySignAbs(t *testing.T) {
	if QtyUnits(-5).Sign() != -1 || QtyUnits(5).Sign() != 1 || QtyUnits(0).Sign() != 0 {
		t.Error("Sign mismatch")
	}
	if QtyUnits(-5).Abs() != 5 {
		t.Error("Abs mismatch")
	}
}

func TestParseTimeStamp(t *testing.T) {
	ts, err := ParseTimeStamp("1704067200000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 1704067200000000 {
		t.Errorf("got %d, want 1704067200000000", ts)
	}

	if _, err := ParseTimeStamp("not-a-number"); err == nil {
		t.Error("expected error for invalid input")
	}
}
