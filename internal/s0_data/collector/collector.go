package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/logger"
)

// Provider is a daily bar source (yahoo, stooq)
type Provider interface {
	Name() string
	Daily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
}

// Collector fetches bars per symbol from a primary provider with a fallback
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	primary  Provider
	fallback Provider
	clock    clock.Clock
	logger   *logger.Logger
	workers  int
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector; fallback may be nil
func NewCollector(primary, fallback Provider, clk clock.Clock, cfg Config, log *logger.Logger) *Collector {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Collector{
		primary:  primary,
		fallback: fallback,
		clock:    clk,
		logger:   log.WithField("module", "collector"),
		workers:  workers,
	}
}

// Window returns the fetch range [from, to) for a lookback
func Window(now time.Time, lookbackDays int) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(lookbackDays + 10)), today.AddDate(0, 0, 1)
}

// KeepBars is how many trailing bars per symbol are kept for a lookback
func KeepBars(lookbackDays int) int {
	if n := lookbackDays * 2; n > 30 {
		return n
	}
	return 30
}

// FetchBars implements contracts.BarFetcher
// Per-symbol failures are logged and skipped; an empty overall result is ErrUpstreamData
func (c *Collector) FetchBars(ctx context.Context, symbols []string, lookbackDays int) ([]contracts.Bar, error) {
	from, to := Window(c.clock.Now(), lookbackDays)
	keep := KeepBars(lookbackDays)

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"workers": c.workers,
	}).Info("Starting price collection")

	results := make([][]contracts.Bar, len(symbols))
	var failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bars := c.fetchOne(gctx, symbol, from, to)
			if len(bars) == 0 {
				atomic.AddInt32(&failed, 1)
				return nil
			}
			if len(bars) > keep {
				bars = bars[len(bars)-keep:]
			}
			results[i] = bars
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}

	var all []contracts.Bar
	for _, bars := range results {
		all = append(all, bars...)
	}

	c.logger.WithFields(map[string]interface{}{
		"bars":    len(all),
		"success": len(symbols) - int(failed),
		"failed":  failed,
	}).Info("Price collection completed")

	if len(all) == 0 {
		return nil, fmt.Errorf("no market data fetched from providers: %w", contracts.ErrUpstreamData)
	}
	return all, nil
}

// fetchOne tries the primary provider, then the fallback when it errors or is empty
func (c *Collector) fetchOne(ctx context.Context, symbol string, from, to time.Time) []contracts.Bar {
	bars, err := c.primary.Daily(ctx, symbol, from, to)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Primary provider failed")
	}
	if len(bars) > 0 {
		return bars
	}

	if c.fallback == nil {
		return nil
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"provider": c.fallback.Name(),
	}).Warn("No primary data, falling back")

	bars, err = c.fallback.Daily(ctx, symbol, from, to)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Fallback provider failed")
		return nil
	}
	if len(bars) == 0 {
		c.logger.WithField("symbol", symbol).Warn("No fallback data")
	}
	return bars
}

// LatestSourceBySymbol maps each symbol to the provider of its most recent bar
func LatestSourceBySymbol(bars []contracts.Bar) map[string]string {
	latest := make(map[string]contracts.Bar, len(bars))
	for _, b := range bars {
		if cur, ok := latest[b.Symbol]; !ok || !b.TradeDate.Before(cur.TradeDate) {
			latest[b.Symbol] = b
		}
	}

	out := make(map[string]string, len(latest))
	for sym, b := range latest {
		out[sym] = b.Source
	}
	return out
}
