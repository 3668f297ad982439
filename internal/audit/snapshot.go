package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/internal/s0_data"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/database"
)

// Snapshotter appends point-in-time copies of the latest metrics and prunes old ones
// ⭐ SSOT: dashboard_snapshot 기록/보존 정책은 여기서만
type Snapshotter struct {
	metrics *s0_data.MetricsRepository
	clock   clock.Clock
}

// NewSnapshotter creates a new snapshotter
func NewSnapshotter(metrics *s0_data.MetricsRepository, clk clock.Clock) *Snapshotter {
	return &Snapshotter{metrics: metrics, clock: clk}
}

// Refresh copies the latest row per symbol under runID, then deletes snapshots older than retentionDays
func (s *Snapshotter) Refresh(ctx context.Context, tx database.Tx, runID string, retentionDays int) (contracts.SnapshotResult, error) {
	var result contracts.SnapshotResult

	latest, err := s.metrics.LatestPerSymbol(ctx, tx)
	if err != nil {
		return result, fmt.Errorf("%w: load latest metrics: %w", contracts.ErrPersistence, err)
	}

	now := s.clock.Now()
	d := tx.Dialect()
	for _, row := range latest {
		_, err := tx.Exec(ctx, `
			INSERT INTO dashboard_snapshot (
				snapshot_id, symbol, trade_date, close, sma_5, sma_20, sma_60, sma_200, momentum_5d, signal, generated_at
			) VALUES (`+database.Placeholders(11)+`)
		`, runID, row.Symbol, d.Date(row.TradeDate), row.Close,
			row.SMA5, row.SMA20, row.SMA60, row.SMA200, row.Momentum5D, string(row.Signal),
			d.Timestamp(now))
		if err != nil {
			return result, fmt.Errorf("%w: insert snapshot %s: %w", contracts.ErrPersistence, row.Symbol, err)
		}
	}
	result.SnapshotRows = len(latest)

	deleted, err := s.prune(ctx, tx, now, retentionDays)
	if err != nil {
		return result, err
	}
	result.DeletedOldSnapshots = deleted
	return result, nil
}

// Cleanup only applies retention
func (s *Snapshotter) Cleanup(ctx context.Context, tx database.Tx, retentionDays int) (int64, error) {
	return s.prune(ctx, tx, s.clock.Now(), retentionDays)
}

func (s *Snapshotter) prune(ctx context.Context, tx database.Tx, now time.Time, retentionDays int) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	n, err := tx.Exec(ctx, `DELETE FROM dashboard_snapshot WHERE generated_at < ?`, tx.Dialect().Timestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("%w: prune snapshots: %w", contracts.ErrPersistence, err)
	}
	return n, nil
}

// ForRun returns the rows written under runID, ordered by symbol
func (s *Snapshotter) ForRun(ctx context.Context, q database.Querier, runID string) ([]contracts.SnapshotRow, error) {
	rows, err := q.Query(ctx, `
		SELECT symbol, trade_date, close, sma_5, sma_20, sma_60, sma_200, momentum_5d, signal, generated_at
		FROM dashboard_snapshot
		WHERE snapshot_id = ?
		ORDER BY symbol
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", runID, err)
	}
	defer rows.Close()

	var out []contracts.SnapshotRow
	for rows.Next() {
		var generatedAt database.NullTime
		row, err := s0_data.ScanIndicatorRow(rows, &generatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, contracts.SnapshotRow{SnapshotID: runID, IndicatorRow: row, GeneratedAt: generatedAt.Time})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}
	return out, nil
}

// CountSnapshots returns the number of stored snapshot rows
func (s *Snapshotter) CountSnapshots(ctx context.Context, q database.Querier) (int64, error) {
	rows, err := q.Query(ctx, `SELECT COUNT(*) FROM dashboard_snapshot`)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("count snapshots: %w", err)
		}
	}
	return n, rows.Err()
}
