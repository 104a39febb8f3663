package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexe13/roboquant/backtest"
	"github.com/alexe13/roboquant/internal/app"
	"github.com/alexe13/roboquant/internal/infra"
	"github.com/alexe13/roboquant/internal/strategy"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(strategy.Noop()); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch bootstrap.Config.Mode {
	case infra.ModeBacktest:
		err = runBacktest(ctx, bootstrap)
	case infra.ModePaper:
		err = runPaper(ctx, bootstrap)
	}
	if err != nil {
		slog.Error("Run failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// runBacktest replays the recorded event log synchronously and prints the
// summary.
func runBacktest(ctx context.Context, b *app.Bootstrap) error {
	// Backtests replay what paper mode recorded; data isolation keeps the
	// two logs apart.
	logPath := filepath.Join(infra.GetWorkspaceDir(), "data", "paper", "events.db")

	replayer, err := backtest.NewReplayer(logPath)
	if err != nil {
		return err
	}
	defer replayer.Close()

	summary, err := replayer.Run(ctx, b.Loop)
	if err != nil {
		return err
	}

	fmt.Print(summary.String())
	return nil
}

// runPaper connects the live price stream to the engine loop and blocks
// until interrupted.
func runPaper(ctx context.Context, b *app.Bootstrap) error {
	cfg := b.Config

	go b.Loop.Run(ctx)
	slog.Info("Engine loop started")

	feed := infra.NewPaperFeed(cfg.Paper, b.Loop.Inbox())
	worker := infra.NewStreamWorker(feed)
	worker.Start(ctx)
	defer worker.Stop()

	slog.Info("Paper trading running. Press Ctrl+C to exit.",
		slog.Int("symbols", len(cfg.Paper.Symbols)))

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")
	return nil
}
