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
		slog.Default().Info("test mode detected, skipping metadata sync")
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

	summary, runErr := jobs.MetadataJobFromConfig(rt, cfg).Run(ctx)

	if err := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, jobs.JobMetadata); err != nil {
		logger.Warn("push metrics", slog.Any("error", err))
	}

	switch {
	case errors.Is(runErr, shared.ErrJobLocked):
		return 0
	case runErr != nil:
		logger.Error("metadata sync failed", slog.Any("error", runErr))
		return 1
	}
	logger.Info("metadata sync finished",
		slog.Int("pending", summary.Pending),
		slog.Int("updated", summary.Updated),
		slog.Int("not_found", summary.NotFound),
		slog.Int("failed", summary.Failed),
	)
	return 0
}
