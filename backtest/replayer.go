// Package backtest replays recorded event logs through the engine and
// summarizes the resulting account.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexe13/roboquant/internal/engine"
	"github.com/alexe13/roboquant/internal/storage"
)

// Replayer reads the event log from SQLite and feeds it into the loop.
type Replayer struct {
	store *storage.EventStore
}

// NewReplayer opens the event log at dbPath.
func NewReplayer(dbPath string) (*Replayer, error) {
	store, err := storage.NewEventStore(dbPath)
	if err != nil {
		return nil, err
	}
	return &Replayer{store: store}, nil
}

// Run replays every recorded event into the loop, in sequence order and
// synchronously, then returns the resulting summary.
func (r *Replayer) Run(ctx context.Context, l *engine.Loop) (*Summary, error) {
	events, err := r.store.LoadEvents(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event log is empty")
	}

	slog.Info("Backtest replay starting", slog.Int("events", len(events)))
	for _, ev := range events {
		l.ReplayEvent(ev)
	}

	snap := l.Account()
	return Summarize(snap), nil
}

// Close releases the underlying store.
func (r *Replayer) Close() error {
	return r.store.Close()
}
