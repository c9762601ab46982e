package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shelfwatch/shelfwatch/internal/catalog"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// CatalogSyncJob harvests the catalog year by year.
type CatalogSyncJob struct {
	Runtime
	Searcher catalog.Searcher
	Config   catalog.Config

	newStore   func(db.Session) catalog.Store
	newService func(catalog.Searcher, catalog.Store, *slog.Logger) *catalog.Service
}

// NewCatalogSyncJob constructs the job.
func NewCatalogSyncJob(rt Runtime, searcher catalog.Searcher, cfg catalog.Config) *CatalogSyncJob {
	job := &CatalogSyncJob{
		Runtime:  rt,
		Searcher: searcher,
		Config:   cfg,
		newStore: func(session db.Session) catalog.Store {
			return catalog.NewRepository(session)
		},
	}
	job.newService = func(searcher catalog.Searcher, store catalog.Store, logger *slog.Logger) *catalog.Service {
		return catalog.NewService(searcher, store, job.Config, logger, job.Metrics)
	}
	return job
}

// Run performs a full catalog sync.
func (j *CatalogSyncJob) Run(ctx context.Context) (catalog.Summary, error) {
	var summary catalog.Summary
	err := j.run(ctx, JobCatalog, func(ctx context.Context, session db.Session, logger *slog.Logger) error {
		var err error
		summary, err = j.newService(j.Searcher, j.newStore(session), logger).SyncAll(ctx)
		return err
	})
	return summary, err
}

// Handle runs the job for an asynq task.
func (j *CatalogSyncJob) Handle(ctx context.Context, task *asynq.Task) error {
	payload, err := decodePayload(task)
	if err != nil {
		return err
	}
	j.log().Info("catalog sync triggered", slog.String("by", payload.TriggeredBy))
	_, err = j.Run(ctx)
	return handleResult(err)
}
