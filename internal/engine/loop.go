// Package engine runs the single-threaded event loop that drives the
// simulated broker. One goroutine owns all mutable state; workers only
// ever talk to it through the inbox channel.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/alexe13/roboquant/internal/broker"
	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/internal/storage"
	"github.com/alexe13/roboquant/internal/strategy"
)

// Loop is the core single-threaded event processor: sequence check,
// WAL-first persistence, strategy, broker, journal.
type Loop struct {
	inbox   chan event.Event
	nextSeq uint64
	store   *storage.EventStore

	broker   *broker.SimBroker
	strategy strategy.Strategy

	lastSnap  domain.AccountSnapshot
	journaled int // trades already written to the journal

	// Boundary: notifies UI or reporting of each new account snapshot.
	onUpdate func(domain.AccountSnapshot)
}

// NewLoop creates an event loop. store and onUpdate may be nil; a nil
// strategy never trades.
func NewLoop(inboxSize int, store *storage.EventStore, b *broker.SimBroker, strat strategy.Strategy, onUpdate func(domain.AccountSnapshot)) *Loop {
	if strat == nil {
		strat = strategy.Noop()
	}
	return &Loop{
		inbox:    make(chan event.Event, inboxSize),
		nextSeq:  1,
		store:    store,
		broker:   b,
		strategy: strat,
		lastSnap: b.Account(),
		onUpdate: onUpdate,
	}
}

// RecoverFromWAL restores state by replaying all stored events through the
// same dispatch path as live processing.
func (l *Loop) RecoverFromWAL(ctx context.Context) error {
	if l.store == nil {
		slog.Info("No store configured, starting fresh")
		return nil
	}

	lastSeq, err := l.store.GetLastSeq(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last seq: %w", err)
	}
	if lastSeq == 0 {
		slog.Info("WAL is empty, starting fresh")
		return nil
	}

	events, err := l.store.LoadEvents(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	slog.Info("Replaying events from WAL", slog.Int("count", len(events)))
	for _, ev := range events {
		l.ReplayEvent(ev)
	}

	slog.Info("State recovered from WAL", slog.Uint64("next_seq", l.nextSeq))
	return nil
}

// ValidateSequence checks for gaps based on strictness policy.
func (l *Loop) ValidateSequence(evSeq uint64) bool {
	expected := l.nextSeq
	if evSeq == expected {
		return true
	}

	diff := int64(evSeq) - int64(expected)

	// Old event: already processed, drop it.
	if diff < 0 {
		slog.Warn("SEQUENCE_DUPLICATE_IGNORED",
			slog.Uint64("expected", expected),
			slog.Uint64("got", evSeq))
		return false
	}

	// Small future gaps are tolerated for availability; fast-forward.
	if diff <= 10 {
		slog.Warn("SEQUENCE_GAP_TOLERATED",
			slog.Uint64("expected", expected),
			slog.Uint64("got", evSeq),
			slog.Int64("gap", diff))
		l.nextSeq = evSeq
		return true
	}

	panic(fmt.Sprintf("SEQUENCE_GAP_FATAL: expected %d, got %d", expected, evSeq))
}

// Inbox returns the event channel. External workers send events here.
func (l *Loop) Inbox() chan<- event.Event {
	return l.inbox
}

// Account returns the snapshot produced by the most recent event.
func (l *Loop) Account() domain.AccountSnapshot {
	return l.broker.Account()
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (l *Loop) Run(ctx context.Context) {
	slog.Info("Engine loop started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			l.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine loop stopping...")
			return
		case ev := <-l.inbox:
			l.processEvent(ev)
		}
	}
}

func (l *Loop) processEvent(ev event.Event) {
	if !l.ValidateSequence(ev.GetSeq()) {
		return
	}

	// WAL-first: the event is durable before any state changes.
	if l.store != nil {
		if err := l.store.SaveEvent(context.Background(), ev); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	l.dispatch(ev)
	l.nextSeq++

	// Live events may come from the pool; return them once consumed.
	if me, ok := ev.(*event.MarketEvent); ok {
		event.ReleaseMarketEvent(me)
	}
}

// ReplayEvent processes an event synchronously without WAL logging.
// Used by recovery and the backtest replayer.
func (l *Loop) ReplayEvent(ev event.Event) {
	if ev.GetSeq() != l.nextSeq {
		panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", l.nextSeq, ev.GetSeq()))
	}

	l.dispatch(ev)
	l.nextSeq++
}

func (l *Loop) dispatch(ev event.Event) {
	switch e := ev.(type) {
	case *event.MarketEvent:
		l.handleMarketEvent(e)
	case *event.HaltEvent:
		slog.Warn("System halt received", slog.String("reason", e.Reason))
		l.lastSnap = l.broker.Liquidate(e.GetTs())
		l.journalNewTrades()
		l.notify()
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (l *Loop) handleMarketEvent(e *event.MarketEvent) {
	orders := l.strategy.OnMarketEvent(l.lastSnap, e)
	l.lastSnap = l.broker.Place(orders, e)
	l.journalNewTrades()
	l.notify()
}

// journalNewTrades appends trades the broker produced since the last event
// to the durable journal.
func (l *Loop) journalNewTrades() {
	if l.store == nil {
		l.journaled = len(l.lastSnap.Trades)
		return
	}
	for _, tr := range l.lastSnap.Trades[l.journaled:] {
		if err := l.store.AppendTrade(context.Background(), tr); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}
	l.journaled = len(l.lastSnap.Trades)
}

func (l *Loop) notify() {
	if l.onUpdate != nil {
		l.onUpdate(l.lastSnap)
	}
}

// DumpState writes the last account snapshot to a file for post-mortem.
func (l *Loop) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq uint64                 `json:"next_seq"`
		Account domain.AccountSnapshot `json:"account"`
	}{
		NextSeq: l.nextSeq,
		Account: l.lastSnap,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
