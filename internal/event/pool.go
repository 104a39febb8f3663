package event

import "sync"

// marketEventPool recycles MarketEvents on the hot path.
var marketEventPool = sync.Pool{
	New: func() any {
		return &MarketEvent{Prices: make(map[string]PriceObservation, 8)}
	},
}

// AcquireMarketEvent returns a reset MarketEvent from the pool.
func AcquireMarketEvent() *MarketEvent {
	return marketEventPool.Get().(*MarketEvent)
}

// ReleaseMarketEvent resets the event and returns it to the pool.
// The caller must not touch the event afterwards.
func ReleaseMarketEvent(e *MarketEvent) {
	e.Seq = 0
	e.Ts = 0
	for k := range e.Prices {
		delete(e.Prices, k)
	}
	marketEventPool.Put(e)
}

// Warmup pre-populates the pool to avoid first-event allocations.
func Warmup() {
	events := make([]*MarketEvent, 0, 64)
	for i := 0; i < 64; i++ {
		events = append(events, AcquireMarketEvent())
	}
	for _, e := range events {
		ReleaseMarketEvent(e)
	}
}
