package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantdash/internal/audit"
	"github.com/wonny/quantdash/internal/brain"
	"github.com/wonny/quantdash/internal/dashboard"
	"github.com/wonny/quantdash/internal/external/nasdaq"
	"github.com/wonny/quantdash/internal/external/stooq"
	"github.com/wonny/quantdash/internal/external/wikipedia"
	"github.com/wonny/quantdash/internal/external/yahoo"
	"github.com/wonny/quantdash/internal/s0_data"
	"github.com/wonny/quantdash/internal/s0_data/collector"
	"github.com/wonny/quantdash/internal/s1_universe"
	"github.com/wonny/quantdash/internal/selection"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/config"
	"github.com/wonny/quantdash/pkg/database"
	"github.com/wonny/quantdash/pkg/httputil"
	"github.com/wonny/quantdash/pkg/logger"
	"github.com/wonny/quantdash/pkg/redis"
)

// cachePrefix namespaces every Redis key
const cachePrefix = "quantdash"

// app holds the wired components shared by the commands
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     database.DB
	redis  *redis.Client
	cache  *redis.Cache
	clock  clock.Clock
	ledger *audit.RunLedger
	snaps  *audit.Snapshotter
	orch   *brain.Orchestrator
}

// newApp opens storage and wires the pipeline
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}
	cache := redis.NewCache(rc, cachePrefix)

	clk := clock.System()
	upserter, err := s0_data.NewUpserter(cfg.Storage.UpsertMode, clk)
	if err != nil {
		db.Close()
		return nil, err
	}
	bars := s0_data.NewBarRepository(upserter)
	metrics := s0_data.NewMetricsRepository(upserter)

	a := &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  rc,
		cache:  cache,
		clock:  clk,
		ledger: audit.NewRunLedger(db, clk),
		snaps:  audit.NewSnapshotter(metrics, clk),
	}

	yahooHTTP := providerHTTP(log, rc, redis.YahooRateLimit)
	stooqHTTP := providerHTTP(log, rc, redis.StooqRateLimit)
	pageHTTP := httputil.NewWithTimeout(log, 60*time.Second)

	resolver := s1_universe.NewResolver(s1_universe.Config{
		Mode:       cfg.Pipeline.Universe,
		Symbols:    cfg.Pipeline.Symbols,
		MaxSymbols: cfg.Pipeline.MaxSymbols,
	}, wikipedia.NewClient(pageHTTP, log), nasdaq.NewClient(pageHTTP, log), log)

	col := collector.NewCollector(
		yahoo.NewClient(yahooHTTP, log),
		stooq.NewClient(stooqHTTP, log),
		clk,
		collector.Config{Workers: cfg.Pipeline.FetchWorkers},
		log,
	)

	a.orch = brain.NewOrchestrator(brain.Deps{
		DB:        db,
		Clock:     clk,
		Universe:  resolver,
		Fetcher:   col,
		Bars:      bars,
		Metrics:   metrics,
		Ledger:    a.ledger,
		Snapshots: a.snaps,
		Recommender: selection.NewRecommender(selection.Config{
			TargetAnnualReturn: cfg.Pipeline.TargetAnnualReturn,
			MaxRecommendations: cfg.Pipeline.MaxRecommendations,
		}, log),
		Exporter: dashboard.NewExporter(cfg.Output.DashboardJSONPath, cache, log),
	}, brain.Config{
		LookbackDays:       cfg.Pipeline.LookbackDays,
		RetentionDays:      cfg.Pipeline.SnapshotRetentionDays,
		TargetAnnualReturn: cfg.Pipeline.TargetAnnualReturn,
		MaxRecommendations: cfg.Pipeline.MaxRecommendations,
		RecentRunsLimit:    cfg.Pipeline.RecentRunsLimit,
		Timezone:           cfg.App.Timezone,
	}, log)

	return a, nil
}

// providerHTTP paces a market data provider: shared Redis window when enabled, local token bucket otherwise
func providerHTTP(log *logger.Logger, rc *redis.Client, limit redis.RateLimitConfig) *httputil.Client {
	c := httputil.New(log)
	if rc.Enabled() {
		return c.WithRateLimiter(redis.NewRateLimiter(rc, cachePrefix), limit)
	}
	return c.WithRate(float64(limit.Limit)/limit.Window.Seconds(), limit.Limit)
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
	a.db.Close()
}
