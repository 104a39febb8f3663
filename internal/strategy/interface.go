// Package strategy defines the decision-making boundary of the engine.
// Generating trading signals is out of scope here; the package carries the
// interface the loop drives, plus a scripted implementation for tests and
// replays.
package strategy

import (
	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
)

// Strategy turns one market event into orders. It sees only a value
// snapshot of the account; mutating the snapshot has no effect on the
// engine.
type Strategy interface {
	// OnMarketEvent is called once per market event, in sequence order.
	// Returned orders are placed against that same event.
	OnMarketEvent(acct domain.AccountSnapshot, ev *event.MarketEvent) []*domain.Order
}

// Func adapts a plain function to the Strategy interface.
type Func func(acct domain.AccountSnapshot, ev *event.MarketEvent) []*domain.Order

func (f Func) OnMarketEvent(acct domain.AccountSnapshot, ev *event.MarketEvent) []*domain.Order {
	return f(acct, ev)
}

// Noop is a strategy that never trades. Used when the engine only tracks
// prices, e.g. during warm-up or dry runs.
func Noop() Strategy {
	return Func(func(domain.AccountSnapshot, *event.MarketEvent) []*domain.Order {
		return nil
	})
}
