package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
	"github.com/shelfwatch/shelfwatch/internal/shared"
)

// Runtime carries the dependencies every sync job shares.
type Runtime struct {
	Pool    db.Pool
	Locker  *shared.JobLocker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics

	// LockRefresh is how often a held run lock is extended. Zero means a
	// third of the lock TTL.
	LockRefresh time.Duration
}

func (rt Runtime) log() *slog.Logger {
	if rt.Logger == nil {
		return slog.Default()
	}
	return rt.Logger
}

// run executes fn under the job's run lock with one acquired session. The
// lock is extended for as long as fn runs, the session is released and the
// lock given up on every exit path. A held lock returns shared.ErrJobLocked
// without running fn; an unreachable lock store is logged and fn runs
// unlocked. Losing the lock mid-run cancels ctx, so the run stops at the
// next batch boundary.
func (rt Runtime) run(ctx context.Context, job string, fn func(context.Context, db.Session, *slog.Logger) error) (resultErr error) {
	if rt.Pool == nil {
		return fmt.Errorf("jobs: %s: database pool not configured", job)
	}
	logger := rt.log().With(slog.String("job", job), slog.String("run_id", uuid.NewString()))

	lock, err := rt.Locker.Acquire(ctx, job)
	switch {
	case errors.Is(err, shared.ErrJobLocked):
		logger.Warn("job already running, skipping")
		return err
	case err != nil:
		logger.Warn("run lock unavailable, continuing unlocked", slog.Any("error", err))
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release run lock", slog.Any("error", err))
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stopKeep := lock.Keep(context.WithoutCancel(ctx), rt.LockRefresh, func(err error) {
		if errors.Is(err, shared.ErrLockLost) {
			logger.Error("run lock lost, stopping after the current batch", slog.Any("error", err))
			cancel(err)
			return
		}
		logger.Warn("extend run lock", slog.Any("error", err))
	})
	defer stopKeep()

	tracker := rt.Metrics.Track(job)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	session, err := rt.Pool.Acquire(runCtx)
	if err != nil {
		logger.Error("acquire database session", slog.Any("error", err))
		return fmt.Errorf("jobs: %s: acquire session: %w", job, err)
	}
	defer session.Release()

	if err := fn(runCtx, session, logger); err != nil {
		if cause := context.Cause(runCtx); errors.Is(cause, shared.ErrLockLost) {
			err = fmt.Errorf("%w: %w", cause, err)
		}
		logger.Error("job failed", slog.Any("error", err))
		return err
	}
	return nil
}

// handleResult maps a job error to an asynq handler result. A run skipped
// because another instance holds the lock is not a failure.
func handleResult(err error) error {
	if errors.Is(err, shared.ErrJobLocked) {
		return nil
	}
	return err
}
