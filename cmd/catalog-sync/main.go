package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfwatch/shelfwatch/internal/app"
	"github.com/shelfwatch/shelfwatch/internal/catalog"
	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
	"github.com/shelfwatch/shelfwatch/internal/observability"
	"github.com/shelfwatch/shelfwatch/internal/shared"
	"github.com/shelfwatch/shelfwatch/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping catalog sync")
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

	job := jobs.CatalogJobFromConfig(rt, cfg, jobs.VegaClient(cfg))
	summary, runErr := job.Run(ctx)

	if err := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, jobs.JobCatalog); err != nil {
		logger.Warn("push metrics", slog.Any("error", err))
	}

	attrs := []any{
		slog.Int("ranges", summary.Ranges),
		slog.Int("failed_ranges", summary.FailedRanges),
		slog.Int("pages", summary.Pages),
		slog.Int("books", summary.Books),
	}
	switch {
	case errors.Is(runErr, shared.ErrJobLocked):
		return 0
	case errors.Is(runErr, catalog.ErrPartialSync):
		logger.Warn("catalog sync finished with failed ranges", attrs...)
		return 1
	case runErr != nil:
		logger.Error("catalog sync failed", slog.Any("error", runErr))
		return 1
	}
	logger.Info("catalog sync finished", attrs...)
	return 0
}
