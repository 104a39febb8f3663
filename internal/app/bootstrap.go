// Package app wires configuration, storage, policies, broker and engine
// into a runnable system.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alexe13/roboquant/internal/broker"
	"github.com/alexe13/roboquant/internal/domain"
	"github.com/alexe13/roboquant/internal/engine"
	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/internal/infra"
	"github.com/alexe13/roboquant/internal/policy"
	"github.com/alexe13/roboquant/internal/storage"
	"github.com/alexe13/roboquant/internal/strategy"
	"github.com/alexe13/roboquant/pkg/quant"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	EventStore *storage.EventStore
	Snapshots  *storage.SnapshotManager
	Broker     *broker.SimBroker
	Loop       *engine.Loop

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger, data
// directories, instance lock, event store, broker, engine loop.
func (b *Bootstrap) Initialize(strat strategy.Strategy) error {
	// Runtime warmup (GC optimization)
	event.Warmup()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	infra.NewLogger(cfg.Logging.Level)
	slog.Info("Bootstrapping", "app", cfg.App.Name, "version", cfg.App.Version, "mode", cfg.Mode)

	// Data isolation per mode: _workspace/data/{mode}/events.db
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", cfg.Mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// Single-writer WAL DB: block a second process on the same data.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, "events.db")
	evStore, err := storage.NewEventStore(dbPath)
	if err != nil {
		return err
	}
	b.EventStore = evStore
	slog.Info("EventStore initialized (WAL-mode)", "path", dbPath)

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	sim, err := buildBroker(cfg)
	if err != nil {
		return err
	}
	b.Broker = sim

	b.Loop = engine.NewLoop(1024, evStore, sim, strat, b.snapshotEvery(cfg.Storage.SnapshotEveryEvents))
	return nil
}

// snapshotEvery returns an update callback that persists a snapshot every
// n processed events. Zero disables periodic snapshots; the shutdown
// snapshot is always written.
func (b *Bootstrap) snapshotEvery(n int) func(domain.AccountSnapshot) {
	if n <= 0 {
		return nil
	}
	processed := uint64(0)
	return func(snap domain.AccountSnapshot) {
		processed++
		if processed%uint64(n) != 0 {
			return
		}
		s := &storage.Snapshot{Seq: processed, TsUnix: time.Now().Unix(), Account: snap}
		if err := b.Snapshots.Save(s); err != nil {
			slog.Error("Periodic snapshot failed", slog.Any("error", err))
		}
	}
}

// Shutdown saves a final snapshot and releases all resources.
func (b *Bootstrap) Shutdown() {
	if b.Loop != nil && b.Snapshots != nil {
		snap := &storage.Snapshot{
			TsUnix:  time.Now().Unix(),
			Account: b.Loop.Account(),
		}
		if err := b.Snapshots.Save(snap); err != nil {
			slog.Error("Failed to save final snapshot", slog.Any("error", err))
		}
	}
	if b.EventStore != nil {
		b.EventStore.Close()
	}
	if b.unlock != nil {
		b.unlock()
	}
}

// buildBroker assembles the simulated broker from validated configuration.
func buildBroker(cfg *infra.Config) (*broker.SimBroker, error) {
	cost, err := buildCost(cfg)
	if err != nil {
		return nil, err
	}
	bp, err := buildBuyingPower(cfg)
	if err != nil {
		return nil, err
	}

	return broker.New(broker.Config{
		BaseCurrency: cfg.Broker.BaseCurrency,
		Deposit:      cfg.DepositMicros(),
		Cost:         cost,
		BuyingPower:  bp,
	})
}

func buildCost(cfg *infra.Config) (policy.CostModel, error) {
	c := cfg.Broker.Cost
	if c.SpreadBps == 0 && c.FeeBps == 0 && c.FlatFee == "" {
		return policy.NoCost(), nil
	}

	ref := event.RefClose
	switch c.PriceRef {
	case "open":
		ref = event.RefOpen
	case "mid":
		ref = event.RefMid
	}

	var flat quant.AmountMicros
	if c.FlatFee != "" {
		var err error
		flat, err = infra.ParseAmount(c.FlatFee)
		if err != nil {
			return nil, err
		}
	}
	return policy.NewSpreadCost(ref, c.SpreadBps, c.FeeBps, flat)
}

func buildBuyingPower(cfg *infra.Config) (policy.BuyingPowerModel, error) {
	bp := cfg.Broker.BuyingPower
	switch bp.Model {
	case "", "cash":
		return policy.NewCashBuyingPower(), nil
	case "regt":
		if bp.InitialMarginBps != 0 || bp.ShortMarginBps != 0 {
			return policy.NewRegTBuyingPowerRates(bp.InitialMarginBps, bp.ShortMarginBps)
		}
		return policy.NewRegTBuyingPower(), nil
	case "leverage":
		lev, err := infra.ParseAmount(bp.Leverage)
		if err != nil {
			return nil, err
		}
		return policy.NewFixedLeverageBuyingPower(int64(lev))
	default:
		return nil, fmt.Errorf("unknown buying power model: %q", bp.Model)
	}
}
