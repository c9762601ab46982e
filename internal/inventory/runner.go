package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
)

// Default runner limits.
const (
	DefaultConcurrency = 5
	DefaultBatchSize   = 50
)

var (
	// ErrSnapshot reports that the starting snapshot could not be read. Nothing
	// was fetched or written.
	ErrSnapshot = errors.New("inventory: load snapshot")
	// ErrPersist reports a failed batch commit. Earlier batches stay committed.
	ErrPersist = errors.New("inventory: persist batch")
)

// Store reads the starting snapshot and commits the results of each batch.
type Store interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	CommitBatch(ctx context.Context, updates []CountUpdate, events []CheckoutEvent) error
}

// RunnerConfig bounds the work of a run.
type RunnerConfig struct {
	Concurrency int
	BatchSize   int
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Runner samples every item of the snapshot in sequential batches, fetching
// at most Concurrency items at a time and committing each batch before the
// next one starts.
type Runner struct {
	store   Store
	fetcher Fetcher
	cfg     RunnerConfig
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewRunner wires a Runner. logger and metrics may be nil.
func NewRunner(store Store, fetcher Fetcher, cfg RunnerConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run executes one sampling pass. Cancellation of ctx is honoured between
// batches only; a batch that has started is fetched and committed in full.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	start := r.now()
	var summary RunSummary

	snapshot, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	summary.Items = snapshot.Len()
	r.logger.Info("inventory run started",
		slog.Int("items", summary.Items),
		slog.Int("batch_size", r.cfg.BatchSize),
		slog.Int("concurrency", r.cfg.Concurrency))

	batchCtx := context.WithoutCancel(ctx)
	for i, batch := range Partition(snapshot.Items(), r.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			summary.Duration = r.now().Sub(start)
			r.logger.Warn("inventory run interrupted", slog.Int("batches_committed", summary.Batches), slog.Any("error", err))
			return summary, err
		}

		outcomes := r.fetchBatch(batchCtx, batch)
		updates, events, failed := r.reconcile(snapshot, outcomes, r.now())

		if err := r.store.CommitBatch(batchCtx, updates, events); err != nil {
			summary.Failed += failed
			summary.Duration = r.now().Sub(start)
			return summary, fmt.Errorf("%w %d: %w", ErrPersist, i+1, err)
		}
		r.metrics.BatchCommitted()
		r.metrics.AddCheckouts(len(events))

		summary.Batches++
		summary.Fetched += len(updates)
		summary.Failed += failed
		summary.Checkouts += len(events)
		r.logger.Info("inventory batch committed",
			slog.Int("batch", i+1),
			slog.Int("size", len(batch)),
			slog.Int("updated", len(updates)),
			slog.Int("failed", failed),
			slog.Int("checkouts", len(events)))
	}

	summary.Duration = r.now().Sub(start)
	r.logger.Info("inventory run finished",
		slog.Int("batches", summary.Batches),
		slog.Int("fetched", summary.Fetched),
		slog.Int("failed", summary.Failed),
		slog.Int("checkouts", summary.Checkouts),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

// Partition splits items into contiguous batches of at most size items.
func Partition(items []Item, size int) [][]Item {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]Item, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// fetchBatch returns exactly one outcome per item, in completion order.
func (r *Runner) fetchBatch(ctx context.Context, batch []Item) []Outcome {
	results := make(chan Outcome, len(batch))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for _, item := range batch {
		g.Go(func() error {
			results <- r.fetchOne(ctx, item.ID)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(batch))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (r *Runner) fetchOne(ctx context.Context, id string) Outcome {
	count, err := r.fetcher.Fetch(ctx, id)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			err = &FetchError{ID: id, Kind: FetchTransport, Err: err}
		}
		return Outcome{ID: id, Err: err}
	}
	if count < 0 {
		return Outcome{ID: id, Err: &FetchError{ID: id, Kind: FetchDecode, Err: fmt.Errorf("negative count %d", count)}}
	}
	return Outcome{ID: id, Count: count}
}

// reconcile turns the outcomes of a batch into count updates and checkout
// events. Failed items are logged and produce neither.
func (r *Runner) reconcile(snapshot Snapshot, outcomes []Outcome, at time.Time) ([]CountUpdate, []CheckoutEvent, int) {
	updates := make([]CountUpdate, 0, len(outcomes))
	var events []CheckoutEvent
	failed := 0
	for _, outcome := range outcomes {
		if !outcome.OK() {
			failed++
			r.metrics.RecordFetch(jobmetrics.OutcomeFailure)
			attrs := []any{slog.String("book_id", outcome.ID), slog.Any("error", outcome.Err)}
			var fetchErr *FetchError
			if errors.As(outcome.Err, &fetchErr) {
				attrs = append(attrs, slog.String("kind", string(fetchErr.Kind)))
			}
			r.logger.Warn("inventory fetch failed", attrs...)
			continue
		}
		r.metrics.RecordFetch(jobmetrics.OutcomeSuccess)
		updates = append(updates, CountUpdate{ID: outcome.ID, Count: outcome.Count})
		events = append(events, InferCheckouts(outcome.ID, snapshot.Previous(outcome.ID), outcome.Count, at)...)
	}
	slices.SortFunc(updates, func(a, b CountUpdate) int {
		return strings.Compare(a.ID, b.ID)
	})
	return updates, events, failed
}
