package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shelfwatch/shelfwatch/internal/metadata"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// MetadataSyncJob enriches pending books.
type MetadataSyncJob struct {
	Runtime
	Lookup metadata.Lookup
	Delay  time.Duration

	newStore   func(db.Session) metadata.Store
	newService func(metadata.Store, *slog.Logger) *metadata.Service
}

// NewMetadataSyncJob constructs the job.
func NewMetadataSyncJob(rt Runtime, lookup metadata.Lookup, delay time.Duration) *MetadataSyncJob {
	job := &MetadataSyncJob{
		Runtime: rt,
		Lookup:  lookup,
		Delay:   delay,
		newStore: func(session db.Session) metadata.Store {
			return metadata.NewRepository(session)
		},
	}
	job.newService = func(store metadata.Store, logger *slog.Logger) *metadata.Service {
		return metadata.NewService(job.Lookup, store, job.Delay, logger, job.Metrics)
	}
	return job
}

// Run performs one enrichment pass.
func (j *MetadataSyncJob) Run(ctx context.Context) (metadata.Summary, error) {
	var summary metadata.Summary
	err := j.run(ctx, JobMetadata, func(ctx context.Context, session db.Session, logger *slog.Logger) error {
		var err error
		summary, err = j.newService(j.newStore(session), logger).Enrich(ctx)
		return err
	})
	return summary, err
}

// Handle runs the job for an asynq task.
func (j *MetadataSyncJob) Handle(ctx context.Context, task *asynq.Task) error {
	payload, err := decodePayload(task)
	if err != nil {
		return err
	}
	j.log().Info("metadata sync triggered", slog.String("by", payload.TriggeredBy))
	_, err = j.Run(ctx)
	return handleResult(err)
}
