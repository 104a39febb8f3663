package policy

import (
	"fmt"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/pkg/quant"
	"github.com/alexe13/roboquant/pkg/safe"
)

// BuyingPowerModel computes the cash/margin a set of positions consumes,
// per currency. `changes` are hypothetical position deltas (quantity at a
// proposed price); both slices are read-only.
type BuyingPowerModel interface {
	Calculate(positions, changes []domain.Position) *domain.Wallet
}

// usage sums per-currency requirements: long positions weighted on cost
// basis, short positions on current exposure.
func usage(w *domain.Wallet, positions []domain.Position, longBps, shortBps int64) {
	for i := range positions {
		p := &positions[i]
		var req int64
		if p.IsShort() {
			req = safe.SafeMulDiv(int64(p.Exposure()), shortBps, bpsScale)
		} else {
			req = safe.SafeMulDiv(int64(p.CostBasis()), longBps, bpsScale)
		}
		w.Add(p.Asset.Currency, quant.AmountMicros(req))
	}
}

// CashBuyingPower is the no-leverage policy: longs consume their full cost
// basis, shorts their full exposure.
type CashBuyingPower struct{}

func NewCashBuyingPower() *CashBuyingPower { return &CashBuyingPower{} }

func (c *CashBuyingPower) Calculate(positions, changes []domain.Position) *domain.Wallet {
	w := domain.NewWallet()
	usage(w, positions, bpsScale, bpsScale)
	usage(w, changes, bpsScale, bpsScale)
	return w
}

// RegTBuyingPower applies regulatory-style margin: maintenance margin on
// existing positions and initial margin on proposed changes, additively.
type RegTBuyingPower struct {
	longBps  int64 // margin rate on long cost basis
	shortBps int64 // margin rate on short exposure
}

// NewRegTBuyingPower uses the standard 50% long / 150% short rates.
func NewRegTBuyingPower() *RegTBuyingPower {
	m, _ := NewRegTBuyingPowerRates(5_000, 15_000)
	return m
}

// NewRegTBuyingPowerRates allows custom rates in basis points.
func NewRegTBuyingPowerRates(longBps, shortBps int64) (*RegTBuyingPower, error) {
	if longBps <= 0 || shortBps <= 0 {
		return nil, fmt.Errorf("margin rates must be positive: long=%d short=%d bps", longBps, shortBps)
	}
	return &RegTBuyingPower{longBps: longBps, shortBps: shortBps}, nil
}

func (m *RegTBuyingPower) Calculate(positions, changes []domain.Position) *domain.Wallet {
	w := domain.NewWallet()
	usage(w, positions, m.longBps, m.shortBps) // maintenance
	usage(w, changes, m.longBps, m.shortBps)   // initial, additive
	return w
}

// FixedLeverageBuyingPower divides long cost basis by the leverage factor;
// shorts consume exposure * (1 + 1/leverage).
type FixedLeverageBuyingPower struct {
	leverageMicros int64 // leverage factor at 1e6 scale, e.g. 2.0 = 2_000_000
}

func NewFixedLeverageBuyingPower(leverageMicros int64) (*FixedLeverageBuyingPower, error) {
	if leverageMicros <= 0 {
		return nil, fmt.Errorf("leverage must be positive: %d", leverageMicros)
	}
	return &FixedLeverageBuyingPower{leverageMicros: leverageMicros}, nil
}

func (m *FixedLeverageBuyingPower) Calculate(positions, changes []domain.Position) *domain.Wallet {
	w := domain.NewWallet()
	m.add(w, positions)
	m.add(w, changes)
	return w
}

func (m *FixedLeverageBuyingPower) add(w *domain.Wallet, positions []domain.Position) {
	for i := range positions {
		p := &positions[i]
		var req int64
		if p.IsShort() {
			exp := int64(p.Exposure())
			req = safe.SafeAdd(exp, safe.SafeMulDiv(exp, quant.AmountScale, m.leverageMicros))
		} else {
			req = safe.SafeMulDiv(int64(p.CostBasis()), quant.AmountScale, m.leverageMicros)
		}
		w.Add(p.Asset.Currency, quant.AmountMicros(req))
	}
}
