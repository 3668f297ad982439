package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/internal/audit"
	"github.com/wonny/quantdash/internal/brain"
	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/s0_data"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/database"
	"github.com/wonny/quantdash/pkg/logger"
)

type fakeRunner struct {
	outcome brain.RunOutcome
	err     error
	calls   int
}

func (f *fakeRunner) Run(context.Context) (brain.RunOutcome, error) {
	f.calls++
	return f.outcome, f.err
}

func TestPipelineJob(t *testing.T) {
	runner := &fakeRunner{outcome: brain.RunOutcome{RunID: "abc", Status: contracts.RunSuccess}}
	job := NewPipelineJob(runner, "0 18 * * 1-5", logger.NewNop())

	assert.Equal(t, "pipeline", job.Name())
	assert.Equal(t, "0 18 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, runner.calls)
}

func TestPipelineJob_PropagatesFailure(t *testing.T) {
	runner := &fakeRunner{
		outcome: brain.RunOutcome{RunID: "abc", Status: contracts.RunFailed},
		err:     contracts.ErrUpstreamData,
	}
	job := NewPipelineJob(runner, "@daily", logger.NewNop())

	err := job.Run(context.Background())
	assert.True(t, errors.Is(err, contracts.ErrUpstreamData))
	assert.Contains(t, err.Error(), "abc")
}

func TestSnapshotCleanupJob(t *testing.T) {
	ctx := context.Background()
	db := database.NewTestDB(t)
	clk := clock.NewFixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	up, err := s0_data.NewUpserter(s0_data.UpsertNative, clk)
	require.NoError(t, err)
	metrics := s0_data.NewMetricsRepository(up)
	require.NoError(t, database.WithTx(ctx, db, func(tx database.Tx) error {
		_, err := metrics.Upsert(ctx, tx, []contracts.IndicatorRow{{
			Symbol: "AAPL", TradeDate: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Close: 190, Signal: contracts.SignalSell,
		}})
		return err
	}))

	snaps := audit.NewSnapshotter(metrics, clk)
	require.NoError(t, database.WithTx(ctx, db, func(tx database.Tx) error {
		_, err := snaps.Refresh(ctx, tx, "old", 14)
		return err
	}))

	clk.Advance(30 * 24 * time.Hour)
	job := NewSnapshotCleanupJob(db, snaps, 14, logger.NewNop())
	assert.Equal(t, SnapshotCleanupSchedule, job.Schedule())
	require.NoError(t, job.Run(ctx))

	require.NoError(t, database.WithTx(ctx, db, func(tx database.Tx) error {
		n, err := snaps.CountSnapshots(ctx, tx)
		assert.Equal(t, int64(0), n)
		return err
	}))
}
