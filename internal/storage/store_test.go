package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/pkg/quant"
)

func newTestStore(t *testing.T) *EventStore {
	t.Helper()
	store, err := NewEventStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEventStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ev := event.NewMarketEvent(uint64(i), quant.TimeStamp(1000+i))
		ev.Prices["BTCUSD"] = event.Obs(quant.ToPriceMicros(float64(50000 + i)))
		if err := store.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent(%d): %v", i, err)
		}
	}

	events, err := store.LoadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("loaded %d events, want 3", len(events))
	}
	for i, ev := range events {
		wantSeq := uint64(i + 1)
		if ev.GetSeq() != wantSeq {
			t.Errorf("event %d: seq = %d, want %d", i, ev.GetSeq(), wantSeq)
		}
		me, ok := ev.(*event.MarketEvent)
		if !ok {
			t.Fatalf("event %d: got %T, want MarketEvent", i, ev)
		}
		obs, ok := me.Prices["BTCUSD"]
		if !ok {
			t.Fatalf("event %d: missing BTCUSD price", i)
		}
		want := quant.ToPriceMicros(float64(50001 + i))
		if obs.Close != want {
			t.Errorf("event %d: close = %v, want %v", i, obs.Close, want)
		}
	}
}

func TestEventStore_HaltEventRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveEvent(ctx, event.NewMarketEvent(1, 100)); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}
	if err := store.SaveEvent(ctx, event.NewHaltEvent(2, 200, "drawdown limit")); err != nil {
		t.Fatalf("SaveEvent halt: %v", err)
	}

	events, err := store.LoadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("loaded %d events, want 2", len(events))
	}
	halt, ok := events[1].(*event.HaltEvent)
	if !ok {
		t.Fatalf("event 1: got %T, want HaltEvent", events[1])
	}
	if halt.Reason != "drawdown limit" {
		t.Errorf("reason = %q", halt.Reason)
	}
}

func TestEventStore_LoadEventsFromSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ev := event.NewMarketEvent(uint64(i), quant.TimeStamp(i))
		if err := store.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	events, err := store.LoadEvents(ctx, 3)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("loaded %d events, want 3 (seq 3,4,5)", len(events))
	}
	if events[0].GetSeq() != 3 {
		t.Errorf("first seq = %d, want 3", events[0].GetSeq())
	}
}

func TestEventStore_GetLastSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seq, err := store.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq on empty store: %v", err)
	}
	if seq != 0 {
		t.Errorf("empty store last seq = %d, want 0", seq)
	}

	if err := store.SaveEvent(ctx, event.NewMarketEvent(42, 100)); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}
	seq, err = store.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq: %v", err)
	}
	if seq != 42 {
		t.Errorf("last seq = %d, want 42", seq)
	}
}

func TestEventStore_DuplicateSeqRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveEvent(ctx, event.NewMarketEvent(7, 100)); err != nil {
		t.Fatalf("first SaveEvent: %v", err)
	}
	if err := store.SaveEvent(ctx, event.NewMarketEvent(7, 200)); err == nil {
		t.Error("duplicate seq must be rejected by the primary key")
	}
}

func TestEventStore_TradeJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trades := []domain.Trade{
		{
			Time:        100,
			Asset:       domain.NewAsset("AAPL", "USD"),
			Qty:         quant.ToQtyUnits(10),
			Price:       quant.ToPriceMicros(150),
			Fee:         quant.ToAmountMicros(1),
			RealizedPnL: -quant.ToAmountMicros(1),
			OrderID:     "sim-1",
		},
		{
			Time:        200,
			Asset:       domain.NewAsset("AAPL", "USD"),
			Qty:         quant.ToQtyUnits(-10),
			Price:       quant.ToPriceMicros(160),
			Fee:         quant.ToAmountMicros(1),
			RealizedPnL: quant.ToAmountMicros(99),
			OrderID:     "sim-2",
		},
	}
	for _, tr := range trades {
		if err := store.AppendTrade(ctx, tr); err != nil {
			t.Fatalf("AppendTrade: %v", err)
		}
	}

	loaded, err := store.LoadTrades(ctx)
	if err != nil {
		t.Fatalf("LoadTrades: %v", err)
	}
	if len(loaded) != len(trades) {
		t.Fatalf("loaded %d trades, want %d", len(loaded), len(trades))
	}
	for i := range trades {
		if loaded[i] != trades[i] {
			t.Errorf("trade %d: got %+v, want %+v", i, loaded[i], trades[i])
		}
	}
}

func TestEventStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	val, err := store.GetMetadata(ctx, "missing")
	if err != nil {
		t.Fatalf("GetMetadata on missing key: %v", err)
	}
	if val != "" {
		t.Errorf("missing key = %q, want empty", val)
	}

	if err := store.UpsertMetadata(ctx, "run_id", "alpha", 100); err != nil {
		t.Fatalf("UpsertMetadata: %v", err)
	}
	if err := store.UpsertMetadata(ctx, "run_id", "beta", 200); err != nil {
		t.Fatalf("UpsertMetadata overwrite: %v", err)
	}

	val, err = store.GetMetadata(ctx, "run_id")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if val != "beta" {
		t.Errorf("run_id = %q, want beta", val)
	}
}
