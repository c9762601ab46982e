package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shelfwatch/shelfwatch/internal/inventory"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// InventorySyncJob samples availability for every stored book.
type InventorySyncJob struct {
	Runtime
	Fetcher inventory.Fetcher
	Config  inventory.RunnerConfig

	newStore func(db.Session) inventory.Store
}

// NewInventorySyncJob constructs the job.
func NewInventorySyncJob(rt Runtime, fetcher inventory.Fetcher, cfg inventory.RunnerConfig) *InventorySyncJob {
	return &InventorySyncJob{
		Runtime: rt,
		Fetcher: fetcher,
		Config:  cfg,
		newStore: func(session db.Session) inventory.Store {
			return inventory.NewRepository(session)
		},
	}
}

// Run performs one sampling pass.
func (j *InventorySyncJob) Run(ctx context.Context) (inventory.RunSummary, error) {
	var summary inventory.RunSummary
	err := j.run(ctx, JobInventory, func(ctx context.Context, session db.Session, logger *slog.Logger) error {
		runner := inventory.NewRunner(j.newStore(session), j.Fetcher, j.Config, logger, j.Metrics)
		var err error
		summary, err = runner.Run(ctx)
		return err
	})
	return summary, err
}

// Handle runs the job for an asynq task.
func (j *InventorySyncJob) Handle(ctx context.Context, task *asynq.Task) error {
	payload, err := decodePayload(task)
	if err != nil {
		return err
	}
	j.log().Info("inventory sync triggered", slog.String("by", payload.TriggeredBy))
	_, err = j.Run(ctx)
	return handleResult(err)
}
