package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shelfwatch/shelfwatch/internal/app"
	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
	"github.com/shelfwatch/shelfwatch/internal/vega"
)

// JobName labels catalog metrics and locks.
const JobName = "catalog"

// Searcher runs one page of a catalog search.
type Searcher interface {
	Search(ctx context.Context, req vega.SearchRequest) (*vega.SearchResponse, error)
}

// Store persists cleaned books.
type Store interface {
	UpsertBooks(ctx context.Context, books []Book) error
}

// Config controls the harvested ranges and pacing.
type Config struct {
	StartYear    int
	PageSize     int
	PageDelay    time.Duration
	RangeDelay   time.Duration
	LocationCode string
}

// Summary reports the result of a full sync.
type Summary struct {
	Ranges       int
	FailedRanges int
	Pages        int
	Books        int
}

// Service harvests catalog records into the store.
type Service struct {
	searcher Searcher
	store    Store
	cfg      Config
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
	validate *validator.Validate
	pause    func(context.Context, time.Duration) error
	now      func() time.Time
}

// NewService builds Service. logger and metrics may be nil.
func NewService(searcher Searcher, store Store, cfg Config, logger *slog.Logger, metrics *jobmetrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.StartYear <= 0 {
		cfg.StartYear = 1989
	}
	return &Service{
		searcher: searcher,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(),
		pause:    app.Pause,
		now:      time.Now,
	}
}

// SyncAll harvests [y, y+1] for every year from StartYear up to, but not
// including, the current year. A failed range is logged and skipped.
func (s *Service) SyncAll(ctx context.Context) (Summary, error) {
	var summary Summary
	currentYear := s.now().Year()
	for year := s.cfg.StartYear; year < currentYear; year++ {
		pages, books, err := s.SyncRange(ctx, year, year+1)
		summary.Ranges++
		summary.Pages += pages
		summary.Books += books
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.FailedRanges++
			attrs := []any{slog.Int("from", year), slog.Int("to", year+1), slog.Any("error", err)}
			var rangeErr *RangeError
			if errors.As(err, &rangeErr) {
				attrs = append(attrs, slog.Int("page", rangeErr.Page))
			}
			s.logger.Error("catalog range failed", attrs...)
		}
		if err := s.pause(ctx, s.cfg.RangeDelay); err != nil {
			return summary, err
		}
	}
	s.logger.Info("catalog sync finished",
		slog.Int("ranges", summary.Ranges),
		slog.Int("failed_ranges", summary.FailedRanges),
		slog.Int("books", summary.Books))
	if summary.FailedRanges > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrPartialSync, summary.FailedRanges, summary.Ranges)
	}
	return summary, nil
}

// SyncRange pages through one publication date range until a page comes back
// empty. It returns the pages read and books stored.
func (s *Service) SyncRange(ctx context.Context, from, to int) (int, int, error) {
	logger := s.logger.With(slog.Int("from", from), slog.Int("to", to))
	logger.Info("catalog range started")

	stored := 0
	for page := 1; ; page++ {
		resp, err := s.searcher.Search(ctx, s.request(from, to, page))
		if err != nil {
			return page - 1, stored, &RangeError{From: from, To: to, Page: page, Err: err}
		}
		if len(resp.Data) == 0 {
			logger.Info("catalog range finished", slog.Int("pages", page-1), slog.Int("books", stored))
			return page - 1, stored, nil
		}

		books := BooksFromGroups(s.validate, resp.Data)
		if len(books) == 0 {
			logger.Debug("catalog page had no complete records", slog.Int("page", page))
		} else {
			if err := s.store.UpsertBooks(ctx, books); err != nil {
				return page, stored, &RangeError{From: from, To: to, Page: page, Err: err}
			}
			stored += len(books)
			s.metrics.AddUpserts(JobName, len(books))
			logger.Info("catalog page stored", slog.Int("page", page), slog.Int("total", stored))
		}

		if err := s.pause(ctx, s.cfg.PageDelay); err != nil {
			return page, stored, &RangeError{From: from, To: to, Page: page, Err: err}
		}
	}
}

func (s *Service) request(from, to, page int) vega.SearchRequest {
	return vega.SearchRequest{
		SearchText:          "*",
		Sorting:             "publicationDate",
		SortOrder:           "desc",
		SearchType:          "everything",
		UniversalLimiterIDs: []string{"at_library"},
		MaterialTypeIDs:     []string{"a"},
		LocationIDs:         []string{s.cfg.LocationCode},
		PageNum:             page,
		PageSize:            s.cfg.PageSize,
		DateFrom:            strconv.Itoa(from),
		DateTo:              strconv.Itoa(to),
	}
}
