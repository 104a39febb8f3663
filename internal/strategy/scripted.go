package strategy

import (
	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
)

// Step pairs a sequence number with the orders to place when the event
// carrying that number arrives.
type Step struct {
	Seq    uint64
	Orders []*domain.Order
}

// Scripted replays a fixed order schedule keyed by event sequence number.
// It is deterministic by construction, which makes it the reference
// strategy for replay and integration tests.
type Scripted struct {
	steps map[uint64][]*domain.Order
}

// NewScripted builds a scripted strategy from a schedule.
func NewScripted(steps []Step) *Scripted {
	m := make(map[uint64][]*domain.Order, len(steps))
	for _, s := range steps {
		m[s.Seq] = append(m[s.Seq], s.Orders...)
	}
	return &Scripted{steps: m}
}

func (s *Scripted) OnMarketEvent(_ domain.AccountSnapshot, ev *event.MarketEvent) []*domain.Order {
	return s.steps[ev.GetSeq()]
}
