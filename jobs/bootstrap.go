package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/shelfwatch/shelfwatch/internal/app"
	"github.com/shelfwatch/shelfwatch/internal/catalog"
	"github.com/shelfwatch/shelfwatch/internal/goodreads"
	"github.com/shelfwatch/shelfwatch/internal/inventory"
	jobmetrics "github.com/shelfwatch/shelfwatch/internal/jobs"
	"github.com/shelfwatch/shelfwatch/internal/platform/cache"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
	"github.com/shelfwatch/shelfwatch/internal/shared"
	"github.com/shelfwatch/shelfwatch/internal/vega"
)

// Bootstrap opens the store and the lock client described by cfg. The
// returned cleanup closes both. An unreachable Redis is logged and leaves
// the runtime without a working lock.
func Bootstrap(ctx context.Context, cfg *app.Config, logger *slog.Logger, metrics *jobmetrics.Metrics) (Runtime, func(), error) {
	pool, err := db.Open(ctx, db.Options{Driver: cfg.DBDriver, DSN: cfg.DSN(), MaxConns: cfg.DBMaxConns})
	if err != nil {
		return Runtime{}, func() {}, err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, run locks may be skipped", slog.Any("error", err))
	}

	cleanup := func() {
		pool.Close()
		if err := redisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	return Runtime{
		Pool:    pool,
		Locker:  shared.NewJobLocker(redisClient, cfg.LockTTL),
		Logger:  logger,
		Metrics: metrics,
	}, cleanup, nil
}

// VegaClient builds the catalog API client from cfg.
func VegaClient(cfg *app.Config) *vega.Client {
	return vega.NewClient(vega.Config{
		BaseURL:         cfg.VegaBaseURL,
		CustomerDomain:  cfg.VegaCustomerDomain,
		HostDomain:      cfg.VegaHostDomain,
		AnonymousUserID: cfg.VegaAnonymousUserID,
		LocationCode:    cfg.VegaLocationCode,
		Timeout:         cfg.VegaTimeout,
	})
}

// InventoryJobFromConfig wires the inventory job against the Vega drawer.
func InventoryJobFromConfig(rt Runtime, cfg *app.Config, client *vega.Client) *InventorySyncJob {
	return NewInventorySyncJob(rt, inventory.NewDrawerFetcher(client), inventory.RunnerConfig{
		Concurrency: cfg.InventoryConcurrency,
		BatchSize:   cfg.InventoryBatchSize,
	})
}

// CatalogJobFromConfig wires the catalog job against Vega search.
func CatalogJobFromConfig(rt Runtime, cfg *app.Config, client *vega.Client) *CatalogSyncJob {
	return NewCatalogSyncJob(rt, client, catalog.Config{
		StartYear:    cfg.CatalogStartYear,
		PageSize:     cfg.CatalogPageSize,
		PageDelay:    cfg.CatalogPageDelay,
		RangeDelay:   cfg.CatalogRangeDelay,
		LocationCode: client.LocationCode(),
	})
}

// MetadataJobFromConfig wires the metadata job against Goodreads.
func MetadataJobFromConfig(rt Runtime, cfg *app.Config) *MetadataSyncJob {
	lookup := goodreads.NewClient(cfg.GoodreadsBaseURL, cfg.GoodreadsKey, cfg.VegaTimeout)
	return NewMetadataSyncJob(rt, lookup, cfg.GoodreadsDelay)
}
