package brain

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/internal/audit"
	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/dashboard"
	"github.com/wonny/quantdash/internal/s0_data"
	"github.com/wonny/quantdash/internal/s0_data/collector"
	"github.com/wonny/quantdash/internal/s1_universe"
	"github.com/wonny/quantdash/internal/selection"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/database"
	"github.com/wonny/quantdash/pkg/logger"
)

var now = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeProvider struct {
	name string
	bars map[string][]contracts.Bar
	err  error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Daily(_ context.Context, symbol string, _, _ time.Time) ([]contracts.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

func series(symbol, source string, first, step float64, n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	start := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := first + step*float64(i)
		bars[i] = contracts.Bar{
			Symbol: symbol, TradeDate: start.AddDate(0, 0, i),
			Open: c, High: c, Low: c, Close: c, Volume: 1000, Source: source,
		}
	}
	return bars
}

type harness struct {
	db     database.DB
	orch   *Orchestrator
	bars   *s0_data.BarRepository
	ledger *audit.RunLedger
	snaps  *audit.Snapshotter
	out    string
}

func newHarness(t *testing.T, primary, fallback collector.Provider, outPath string) *harness {
	t.Helper()
	db := database.NewTestDB(t)
	clk := clock.NewFixed(now)
	log := logger.NewNop()

	up, err := s0_data.NewUpserter(s0_data.UpsertNative, clk)
	require.NoError(t, err)

	h := &harness{
		db:     db,
		bars:   s0_data.NewBarRepository(up),
		ledger: audit.NewRunLedger(db, clk),
		out:    outPath,
	}
	metrics := s0_data.NewMetricsRepository(up)
	h.snaps = audit.NewSnapshotter(metrics, clk)

	h.orch = NewOrchestrator(Deps{
		DB:          db,
		Clock:       clk,
		Universe:    s1_universe.NewResolver(s1_universe.Config{Mode: s1_universe.ModeManual, Symbols: []string{"x", "Y"}, MaxSymbols: 10}, nil, nil, log),
		Fetcher:     collector.NewCollector(primary, fallback, clk, collector.Config{Workers: 2}, log),
		Bars:        h.bars,
		Metrics:     metrics,
		Ledger:      h.ledger,
		Snapshots:   h.snaps,
		Recommender: selection.NewRecommender(selection.Config{TargetAnnualReturn: 0.05, MaxRecommendations: 5}, log),
		Exporter:    dashboard.NewExporter(outPath, nil, log),
	}, Config{
		LookbackDays:       40,
		RetentionDays:      14,
		TargetAnnualReturn: 0.05,
		MaxRecommendations: 5,
		RecentRunsLimit:    10,
		Timezone:           "UTC",
	}, log)
	return h
}

func (h *harness) read(t *testing.T, fn func(tx database.Tx)) {
	t.Helper()
	require.NoError(t, database.WithTx(context.Background(), h.db, func(tx database.Tx) error {
		fn(tx)
		return nil
	}))
}

func providers() (*fakeProvider, *fakeProvider) {
	primary := &fakeProvider{name: "yahoo", bars: map[string][]contracts.Bar{
		"X": series("X", "yahoo", 100, 1, 10),
	}}
	fallback := &fakeProvider{name: "stooq", bars: map[string][]contracts.Bar{
		"Y": series("Y", "stooq", 110, -1, 10),
	}}
	return primary, fallback
}

func TestRun_Success(t *testing.T) {
	primary, fallback := providers()
	h := newHarness(t, primary, fallback, filepath.Join(t.TempDir(), "docs", "data", "latest.json"))

	outcome, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.RunSuccess, outcome.Status)
	assert.Equal(t, int64(20+20+2), outcome.RowsWritten)
	assert.Equal(t, 20, outcome.Details["price_rows"])
	assert.Equal(t, 20, outcome.Details["metric_rows"])
	assert.Equal(t, 2, outcome.Details["snapshot_rows"])
	assert.Equal(t, map[string]string{"X": "yahoo", "Y": "stooq"}, outcome.Details["source_by_symbol"])
	assert.Empty(t, outcome.Stage)

	h.read(t, func(tx database.Tx) {
		run, err := h.ledger.Get(context.Background(), tx, outcome.RunID)
		require.NoError(t, err)
		assert.Equal(t, contracts.RunSuccess, run.Status)
		assert.Equal(t, int64(42), run.RowsWritten)
		assert.NotNil(t, run.FinishedAt)
		assert.Nil(t, run.ErrorMessage)

		n, err := h.bars.Count(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, int64(20), n)

		snaps, err := h.snaps.ForRun(context.Background(), tx, outcome.RunID)
		require.NoError(t, err)
		assert.Len(t, snaps, 2)
	})

	data, err := os.ReadFile(h.out)
	require.NoError(t, err)
	var doc contracts.Dashboard
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, outcome.RunID, doc.RunID)
	assert.Equal(t, "UTC", doc.Timezone)
	require.Len(t, doc.Scored, 2)
	assert.Equal(t, "X", doc.Scored[0].Symbol)
	assert.Equal(t, 62, doc.Scored[0].Total)
	assert.Equal(t, 114.45, doc.Scored[0].PredictedSellPrice)
	assert.Equal(t, contracts.SectorManual, doc.Scored[0].Sector)
	assert.Equal(t, "yahoo", doc.Scored[0].Source)
	assert.Equal(t, "stooq", doc.Scored[1].Source)

	require.Len(t, doc.Recommendations, 1)
	assert.Equal(t, "X", doc.Recommendations[0].Symbol)
	assert.Equal(t, []string{contracts.SectorManual}, doc.Sectors)
	assert.Len(t, doc.LatestMetrics, 2)
	require.Len(t, doc.RecentRuns, 1)
	assert.Equal(t, contracts.RunSuccess, doc.RecentRuns[0].Status)
}

func TestRun_Idempotent(t *testing.T) {
	primary, fallback := providers()
	h := newHarness(t, primary, fallback, filepath.Join(t.TempDir(), "latest.json"))

	first, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	firstDoc, err := os.ReadFile(h.out)
	require.NoError(t, err)

	second, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.RowsWritten, second.RowsWritten)

	h.read(t, func(tx database.Tx) {
		n, err := h.bars.Count(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, int64(20), n)

		total, err := h.snaps.CountSnapshots(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)

		runs, err := h.ledger.Recent(context.Background(), tx, 10)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	var a, b contracts.Dashboard
	require.NoError(t, json.Unmarshal(firstDoc, &a))
	secondDoc, err := os.ReadFile(h.out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(secondDoc, &b))
	assert.Equal(t, a.Scored, b.Scored)
	assert.Equal(t, a.Recommendations, b.Recommendations)
}

func TestRun_UpstreamFailureRecordsFailedRun(t *testing.T) {
	primary := &fakeProvider{name: "yahoo", err: errors.New("http 503")}
	fallback := &fakeProvider{name: "stooq", err: errors.New("http 503")}
	h := newHarness(t, primary, fallback, filepath.Join(t.TempDir(), "latest.json"))

	outcome, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrUpstreamData)
	assert.Equal(t, contracts.RunFailed, outcome.Status)
	assert.Equal(t, contracts.StageData, outcome.Stage)
	assert.Equal(t, int64(0), outcome.RowsWritten)

	h.read(t, func(tx database.Tx) {
		runs, err := h.ledger.Recent(context.Background(), tx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, outcome.RunID, runs[0].RunID)
		assert.Equal(t, contracts.RunFailed, runs[0].Status)
		assert.NotNil(t, runs[0].FinishedAt)
		require.NotNil(t, runs[0].ErrorMessage)
		assert.Contains(t, *runs[0].ErrorMessage, "no market data")
	})

	_, statErr := os.Stat(h.out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ExportFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	primary, fallback := providers()
	h := newHarness(t, primary, fallback, filepath.Join(blocker, "latest.json"))

	outcome, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, contracts.RunFailed, outcome.Status)
	assert.Equal(t, contracts.StageExport, outcome.Stage)

	h.read(t, func(tx database.Tx) {
		n, err := h.bars.Count(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n, "bars rolled back")

		total, err := h.snaps.CountSnapshots(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)

		run, err := h.ledger.Get(context.Background(), tx, outcome.RunID)
		require.NoError(t, err)
		assert.Equal(t, contracts.RunFailed, run.Status)
		assert.Equal(t, int64(42), run.RowsWritten)
		assert.Equal(t, float64(20), run.Details["price_rows"])
	})
}

func TestRun_ExporterOverride(t *testing.T) {
	primary, fallback := providers()
	h := newHarness(t, primary, fallback, filepath.Join(t.TempDir(), "default.json"))

	override := filepath.Join(t.TempDir(), "override.json")
	orch := h.orch.WithExporter(dashboard.NewExporter(override, nil, logger.NewNop()))

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(override)
	assert.NoError(t, err)
	_, err = os.Stat(h.out)
	assert.True(t, os.IsNotExist(err))
}
