// Package policy holds the pluggable pricing, fee and buying-power rules
// of the simulated broker. Policies are pure: configuration in, numbers
// out, no state mutated.
package policy

import (
	"fmt"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/pkg/quant"
	"github.com/alexe13/roboquant/pkg/safe"
)

const bpsScale = 10_000

// CostModel turns a market observation into an execution price and an
// execution into a fee. Implementations must be deterministic for the same
// observation and must not inspect order kinds beyond direction and asset.
type CostModel interface {
	Price(order *domain.Order, obs event.PriceObservation) quant.PriceMicros
	Fee(exec domain.Execution) quant.AmountMicros
}

// SpreadCost prices fills at a configurable reference point of the
// observation, worsened by half the spread in the direction of the trade,
// and charges a flat plus proportional fee.
type SpreadCost struct {
	ref       event.PriceRef
	spreadBps int64
	feeBps    int64
	flatFee   quant.AmountMicros
}

// NewSpreadCost validates the configuration up front; a broken cost policy
// must fail at construction, never at fill time.
func NewSpreadCost(ref event.PriceRef, spreadBps, feeBps int64, flatFee quant.AmountMicros) (*SpreadCost, error) {
	if spreadBps < 0 {
		return nil, fmt.Errorf("spread must not be negative: %d bps", spreadBps)
	}
	if feeBps < 0 {
		return nil, fmt.Errorf("fee rate must not be negative: %d bps", feeBps)
	}
	if flatFee < 0 {
		return nil, fmt.Errorf("flat fee must not be negative: %d", flatFee)
	}
	return &SpreadCost{ref: ref, spreadBps: spreadBps, feeBps: feeBps, flatFee: flatFee}, nil
}

// NoCost returns a model that fills at the close with no spread or fee.
func NoCost() *SpreadCost {
	return &SpreadCost{ref: event.RefClose}
}

// Price worsens the reference price by half the spread: buys pay up,
// sells receive less.
func (c *SpreadCost) Price(order *domain.Order, obs event.PriceObservation) quant.PriceMicros {
	base := int64(obs.Ref(c.ref))
	if c.spreadBps == 0 {
		return quant.PriceMicros(base)
	}
	half := safe.SafeMulDiv(base, c.spreadBps, 2*bpsScale)
	if order.Qty < 0 {
		half = -half
	}
	return quant.PriceMicros(safe.SafeAdd(base, half))
}

// Fee charges flat + |notional| * feeBps.
func (c *SpreadCost) Fee(exec domain.Execution) quant.AmountMicros {
	notional := quant.Notional(exec.Price, exec.Qty.Abs())
	prop := safe.SafeMulDiv(int64(notional), c.feeBps, bpsScale)
	return quant.AmountMicros(safe.SafeAdd(int64(c.flatFee), prop))
}
