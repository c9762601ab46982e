package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfwatch/shelfwatch/internal/app"
	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
	"github.com/shelfwatch/shelfwatch/internal/observability"
	"github.com/shelfwatch/shelfwatch/internal/shared"
	"github.com/shelfwatch/shelfwatch/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping inventory sync")
		return
	}
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	metrics := observability.NewMetrics()
	rt, cleanup, err := jobs.Bootstrap(ctx, cfg, logger, jobmetrics.NewMetrics(metrics.Registerer()))
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		return 1
	}
	defer cleanup()

	job := jobs.InventoryJobFromConfig(rt, cfg, jobs.VegaClient(cfg))
	summary, runErr := job.Run(ctx)

	if err := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, jobs.JobInventory); err != nil {
		logger.Warn("push metrics", slog.Any("error", err))
	}

	switch {
	case errors.Is(runErr, shared.ErrJobLocked):
		return 0
	case runErr != nil:
		logger.Error("inventory sync failed", slog.Any("error", runErr))
		return 1
	}
	logger.Info("inventory sync finished",
		slog.Int("items", summary.Items),
		slog.Int("batches", summary.Batches),
		slog.Int("fetched", summary.Fetched),
		slog.Int("failed", summary.Failed),
		slog.Int("checkouts", summary.Checkouts),
		slog.Duration("duration", summary.Duration),
	)
	return 0
}
