package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/shelfwatch/shelfwatch/internal/app"
	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
	"github.com/shelfwatch/shelfwatch/internal/observability"
	"github.com/shelfwatch/shelfwatch/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	rt, cleanup, err := jobs.Bootstrap(ctx, cfg, logger, jobmetrics.NewMetrics(metrics.Registerer()))
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	vegaClient := jobs.VegaClient(cfg)
	catalogJob := jobs.CatalogJobFromConfig(rt, cfg, vegaClient)
	metadataJob := jobs.MetadataJobFromConfig(rt, cfg)
	inventoryJob := jobs.InventoryJobFromConfig(rt, cfg, vegaClient)

	cron := make([]jobs.CronRegistration, 0, 3)
	for _, entry := range []struct {
		job  string
		spec string
	}{
		{jobs.JobCatalog, cfg.CronCatalog},
		{jobs.JobMetadata, cfg.CronMetadata},
		{jobs.JobInventory, cfg.CronInventory},
	} {
		if entry.spec == "" {
			continue
		}
		task, err := jobs.NewCronTask(entry.job)
		if err != nil {
			logger.Error("build cron task", slog.String("job", entry.job), slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: entry.spec, Task: task, Options: []asynq.Option{asynq.MaxRetry(0)}})
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogSync, Handler: catalogJob.Handle},
			{Type: jobs.TaskMetadataSync, Handler: metadataJob.Handle},
			{Type: jobs.TaskInventorySync, Handler: inventoryJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	client := jobs.NewClient(redisOpts)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Jobs:    jobs.NewHandler(inspector, client, logger),
	})
	server := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting admin server", slog.String("addr", cfg.AdminAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return worker.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		cleanup()
		os.Exit(1)
	}
}
