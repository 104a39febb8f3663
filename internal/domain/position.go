package domain

import (
	"fmt"

	"github.com/alexe13/roboquant/pkg/quant"
	"github.com/alexe13/roboquant/pkg/safe"
)

// Position is an open holding in one asset: signed size, volume-weighted
// average entry price, and the last known market price.
type Position struct {
	Asset      Asset             `json:"asset"`
	Qty        quant.QtyUnits    `json:"qty"` // positive long, negative short
	AvgPrice   quant.PriceMicros `json:"avg_price"`
	MarkPrice  quant.PriceMicros `json:"mark_price"`
	LastUpdate quant.TimeStamp   `json:"last_update"`
}

// IsLong checks if the position is long.
func (p *Position) IsLong() bool { return p.Qty > 0 }

// IsShort checks if the position is short.
func (p *Position) IsShort() bool { return p.Qty < 0 }

// IsFlat checks if the position is closed.
func (p *Position) IsFlat() bool { return p.Qty == 0 }

// Exposure returns |qty| * mark price in the asset currency.
func (p *Position) Exposure() quant.AmountMicros {
	return quant.Notional(p.MarkPrice, p.Qty.Abs())
}

// CostBasis returns |qty| * average entry price in the asset currency.
func (p *Position) CostBasis() quant.AmountMicros {
	return quant.Notional(p.AvgPrice, p.Qty.Abs())
}

// UnrealizedPnL returns the signed mark-to-market profit.
func (p *Position) UnrealizedPnL() quant.AmountMicros {
	diff := safe.SafeSub(int64(p.MarkPrice), int64(p.AvgPrice))
	return quant.AmountMicros(safe.SafeMulDiv(int64(p.Qty), diff, quant.QtyScale))
}

// ApplyFill merges a signed fill into the position and returns the realized
// PnL in the asset currency (zero unless the fill reduces or reverses).
//
// Increasing: new average = (qty0*avg0 + fill*price) / (qty0+fill).
// Reducing:   realized = closed * (price - avg0), closed carrying the sign
// of the existing position; average unchanged.
// Reversing:  the old position fully closes and the remainder opens at the
// fill price.
func (p *Position) ApplyFill(qty quant.QtyUnits, price quant.PriceMicros, ts quant.TimeStamp) quant.AmountMicros {
	if qty == 0 {
		return 0
	}
	p.MarkPrice = price
	p.LastUpdate = ts

	if p.Qty == 0 {
		p.Qty = qty
		p.AvgPrice = price
		p.VerifyInvariant()
		return 0
	}

	if p.Qty.Sign() == qty.Sign() {
		newQty := safe.SafeAdd(int64(p.Qty), int64(qty))
		weighted := safe.SafeAdd(
			safe.SafeMul(int64(p.Qty), int64(p.AvgPrice)),
			safe.SafeMul(int64(qty), int64(price)),
		)
		p.AvgPrice = quant.PriceMicros(safe.SafeDiv(weighted, newQty))
		p.Qty = quant.QtyUnits(newQty)
		p.VerifyInvariant()
		return 0
	}

	// Opposite direction: close the overlap, realize PnL on it.
	closed := qty.Abs()
	if p.Qty.Abs() < closed {
		closed = p.Qty.Abs()
	}
	if p.Qty < 0 {
		closed = -closed
	}
	diff := safe.SafeSub(int64(price), int64(p.AvgPrice))
	realized := quant.AmountMicros(safe.SafeMulDiv(int64(closed), diff, quant.QtyScale))

	remaining := quant.QtyUnits(safe.SafeAdd(int64(p.Qty), int64(qty)))
	if qty.Abs() > p.Qty.Abs() {
		// Reversal: remainder opens fresh at the fill price.
		p.AvgPrice = price
	} else if remaining == 0 {
		p.AvgPrice = 0
	}
	p.Qty = remaining
	p.VerifyInvariant()
	return realized
}

// VerifyInvariant panics when size and average cost disagree.
func (p *Position) VerifyInvariant() {
	if p.Qty == 0 && p.AvgPrice != 0 {
		panic(fmt.Sprintf("CORE_POSITION_FLAT_WITH_COST: %s avg=%d", p.Asset, p.AvgPrice))
	}
	if p.Qty != 0 && p.AvgPrice <= 0 {
		panic(fmt.Sprintf("CORE_POSITION_BAD_AVG: %s qty=%d avg=%d", p.Asset, p.Qty, p.AvgPrice))
	}
}
