// Package metadata enriches stored books with Goodreads metadata.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/app"
	"github.com/shelfwatch/shelfwatch/internal/goodreads"
	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
)

// JobName labels metadata metrics and locks.
const JobName = "metadata"

// Pending is a book awaiting lookup.
type Pending struct {
	ID   string
	ISBN string
}

// Lookup finds metadata by ISBN. A nil book means no match.
type Lookup interface {
	SearchISBN(ctx context.Context, isbn string) (*goodreads.Book, error)
}

// Store reads pending books and records lookup results.
type Store interface {
	ListPending(ctx context.Context) ([]Pending, error)
	ApplyMetadata(ctx context.Context, id string, book goodreads.Book) error
	MarkProcessed(ctx context.Context, id string) error
}

// Summary reports the result of one enrichment pass.
type Summary struct {
	Pending  int
	Updated  int
	NotFound int
	Failed   int
}

// Service looks up every pending book one at a time.
type Service struct {
	lookup  Lookup
	store   Store
	delay   time.Duration
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	pause   func(context.Context, time.Duration) error
}

// NewService builds Service. logger and metrics may be nil.
func NewService(lookup Lookup, store Store, delay time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		lookup:  lookup,
		store:   store,
		delay:   delay,
		logger:  logger,
		metrics: metrics,
		pause:   app.Pause,
	}
}

// Enrich processes all pending books. Failures of a single book are logged
// and leave it pending for the next pass.
func (s *Service) Enrich(ctx context.Context) (Summary, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Pending: len(pending)}
	s.logger.Info("metadata enrichment started", slog.Int("pending", len(pending)))

	for _, book := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		logger := s.logger.With(slog.String("book_id", book.ID), slog.String("isbn", book.ISBN))
		found, err := s.enrichOne(ctx, book)
		switch {
		case err != nil:
			summary.Failed++
			logger.Error("metadata lookup failed", slog.Any("error", err))
		case found:
			summary.Updated++
			s.metrics.AddUpserts(JobName, 1)
			logger.Info("metadata updated")
		default:
			summary.NotFound++
			logger.Info("metadata not found")
		}
		if err := s.pause(ctx, s.delay); err != nil {
			return summary, err
		}
	}

	s.logger.Info("metadata enrichment finished",
		slog.Int("updated", summary.Updated),
		slog.Int("not_found", summary.NotFound),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

func (s *Service) enrichOne(ctx context.Context, book Pending) (bool, error) {
	result, err := s.lookup.SearchISBN(ctx, book.ISBN)
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	if result == nil {
		return false, s.store.MarkProcessed(ctx, book.ID)
	}
	return true, s.store.ApplyMetadata(ctx, book.ID, *result)
}
