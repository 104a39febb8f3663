// Package quant defines the fixed-point numeric types used across the
// platform. All money math is int64; floats exist only at the boundary.
package quant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/alexe13/roboquant/pkg/safe"
)

// PriceMicros represents a price multiplied by 1,000,000 (10^6).
// E.g., 101.25 USD = 101,250,000 PriceMicros.
type PriceMicros int64

// AmountMicros represents a cash amount multiplied by 1,000,000 (10^6).
// Wallet balances, fees, margin usage and realized PnL all use this scale.
type AmountMicros int64

// QtyUnits represents an asset quantity multiplied by 100,000,000 (10^8).
// The sign encodes direction: positive buys/long, negative sells/short.
type QtyUnits int64

// TimeStamp represents Unix microseconds.
type TimeStamp int64

const (
	PriceScale  = 1_000_000
	AmountScale = 1_000_000
	QtyScale    = 100_000_000
)

// ToPriceMicros converts a float64 (from an external source) to PriceMicros.
// Only used at the boundary. Internal logic uses PriceMicros directly.
func ToPriceMicros(f float64) PriceMicros {
	return PriceMicros(math.Round(f * PriceScale))
}

// ToAmountMicros converts a float64 to AmountMicros.
func ToAmountMicros(f float64) AmountMicros {
	return AmountMicros(math.Round(f * AmountScale))
}

// ToQtyUnits converts a float64 to QtyUnits.
func ToQtyUnits(f float64) QtyUnits {
	return QtyUnits(math.Round(f * QtyScale))
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

func (a AmountMicros) String() string {
	return fmt.Sprintf("%.6f", float64(a)/AmountScale)
}

func (q QtyUnits) String() string {
	return fmt.Sprintf("%.8f", float64(q)/QtyScale)
}

// Float64 returns the human-scale value. Reporting only, never fed back
// into the core.
func (a AmountMicros) Float64() float64 { return float64(a) / AmountScale }

func (q QtyUnits) Float64() float64 { return float64(q) / QtyScale }

func (p PriceMicros) Float64() float64 { return float64(p) / PriceScale }

// Abs returns the magnitude of the quantity.
func (q QtyUnits) Abs() QtyUnits {
	if q < 0 {
		return -q
	}
	return q
}

// Sign returns -1, 0 or 1.
func (q QtyUnits) Sign() int64 {
	switch {
	case q > 0:
		return 1
	case q < 0:
		return -1
	default:
		return 0
	}
}

// Notional returns qty*price as a signed cash amount. A positive quantity
// (buy) yields a positive notional.
func Notional(price PriceMicros, qty QtyUnits) AmountMicros {
	raw := safe.SafeMul(int64(price), int64(qty))
	return AmountMicros(safe.SafeDiv(raw, QtyScale))
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}

// ParseTimeStamp converts a string (ms) to TimeStamp (micros).
func ParseTimeStamp(s string) (TimeStamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return TimeStamp(ms * 1000), nil
}

// ToPriceMicrosStr converts a numeric string to PriceMicros without using
// float64. Rule #1: No Float. Fixed-point string parsing only.
func ToPriceMicrosStr(s string) PriceMicros {
	return PriceMicros(parseFixedPoint(s, 6))
}

// ToAmountMicrosStr converts a numeric string to AmountMicros without float64.
func ToAmountMicrosStr(s string) AmountMicros {
	return AmountMicros(parseFixedPoint(s, 6))
}

// ToQtyUnitsStr converts a numeric string to QtyUnits without float64.
func ToQtyUnitsStr(s string) QtyUnits {
	return QtyUnits(parseFixedPoint(s, 8))
}

// parseFixedPoint parses a numeric string into an int64 with the given
// precision. E.g., parseFixedPoint("1.23", 6) -> 1,230,000.
func parseFixedPoint(s string, precision int) int64 {
	if s == "" || s == "null" {
		return 0
	}

	intStr, fracStr := s, ""
	if dot := strings.IndexByte(s, '.'); dot != -1 {
		intStr, fracStr = s[:dot], s[dot+1:]
	}

	intPart, _ := strconv.ParseInt(intStr, 10, 64)
	for i := 0; i < precision; i++ {
		intPart *= 10
	}

	if fracStr == "" {
		return intPart
	}

	if len(fracStr) > precision {
		fracStr = fracStr[:precision]
	}
	fracPart, _ := strconv.ParseInt(fracStr, 10, 64)

	// Pad fraction part with zeros if shorter than precision
	for i := len(fracStr); i < precision; i++ {
		fracPart *= 10
	}

	if strings.HasPrefix(intStr, "-") {
		return intPart - fracPart
	}
	return intPart + fracPart
}
