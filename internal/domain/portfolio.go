package domain

import (
	"sort"

	"github.com/alexe13/roboquant/pkg/quant"
)

// Portfolio maps assets to open positions. A symbol has an entry exactly
// while its size is non-zero; flat positions are removed on the spot.
type Portfolio struct {
	positions map[string]*Position
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{positions: make(map[string]*Position)}
}

// Get returns a copy of the position for a symbol.
func (pf *Portfolio) Get(symbol string) (Position, bool) {
	p, ok := pf.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Len returns the number of open positions.
func (pf *Portfolio) Len() int { return len(pf.positions) }

// ApplyFill routes a fill into the asset's position, creating or removing
// the entry as the size crosses zero. Returns realized PnL.
func (pf *Portfolio) ApplyFill(asset Asset, qty quant.QtyUnits, price quant.PriceMicros, ts quant.TimeStamp) quant.AmountMicros {
	p, ok := pf.positions[asset.Symbol]
	if !ok {
		p = &Position{Asset: asset}
		pf.positions[asset.Symbol] = p
	}
	realized := p.ApplyFill(qty, price, ts)
	if p.IsFlat() {
		delete(pf.positions, asset.Symbol)
	}
	return realized
}

// MarkToMarket refreshes the last known price of a symbol, if held.
func (pf *Portfolio) MarkToMarket(symbol string, price quant.PriceMicros, ts quant.TimeStamp) {
	if p, ok := pf.positions[symbol]; ok {
		p.MarkPrice = price
		p.LastUpdate = ts
	}
}

// Positions returns copies of all open positions, sorted by symbol.
func (pf *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset.Symbol < out[j].Asset.Symbol })
	return out
}

// Diff returns, per asset, the signed quantity that moves this portfolio to
// the target. Liquidation is Diff against an empty portfolio.
func (pf *Portfolio) Diff(target *Portfolio) map[Asset]quant.QtyUnits {
	out := make(map[Asset]quant.QtyUnits)
	for sym, p := range pf.positions {
		var want quant.QtyUnits
		if target != nil {
			if tp, ok := target.positions[sym]; ok {
				want = tp.Qty
			}
		}
		if d := want - p.Qty; d != 0 {
			out[p.Asset] = d
		}
	}
	if target != nil {
		for sym, tp := range target.positions {
			if _, held := pf.positions[sym]; !held && tp.Qty != 0 {
				out[tp.Asset] = tp.Qty
			}
		}
	}
	return out
}

// LastPrices returns the mark price per symbol, used to synthesize the
// bootstrap event for liquidation.
func (pf *Portfolio) LastPrices() map[string]quant.PriceMicros {
	out := make(map[string]quant.PriceMicros, len(pf.positions))
	for sym, p := range pf.positions {
		out[sym] = p.MarkPrice
	}
	return out
}

// Exposure returns total |qty|*mark per currency.
func (pf *Portfolio) Exposure() *Wallet {
	w := NewWallet()
	for _, p := range pf.positions {
		w.Add(p.Asset.Currency, p.Exposure())
	}
	return w
}

// Value returns the signed mark-to-market value per currency.
func (pf *Portfolio) Value() *Wallet {
	w := NewWallet()
	for _, p := range pf.positions {
		w.Add(p.Asset.Currency, quant.Notional(p.MarkPrice, p.Qty))
	}
	return w
}

// Reset removes every position.
func (pf *Portfolio) Reset() {
	pf.positions = make(map[string]*Position)
}
