package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/clock"
	"github.com/wonny/quantdash/pkg/database"
)

// RunLedger tracks pipeline runs in pipeline_runs
// ⭐ SSOT: 실행 이력(RUNNING → SUCCESS/FAILED)은 여기서만 기록
type RunLedger struct {
	db    database.DB
	clock clock.Clock
}

// NewRunLedger creates a new run ledger
func NewRunLedger(db database.DB, clk clock.Clock) *RunLedger {
	return &RunLedger{db: db, clock: clk}
}

// NewRunID returns a 32-char hex run id
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Start records a RUNNING row in its own committed transaction
func (l *RunLedger) Start(ctx context.Context) (string, error) {
	runID := NewRunID()
	startedAt := l.clock.Now()

	err := database.WithTx(ctx, l.db, func(tx database.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO pipeline_runs (run_id, started_at, status, rows_written)
			VALUES (?, ?, ?, 0)
		`, runID, tx.Dialect().Timestamp(startedAt), string(contracts.RunRunning))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: start run: %w", contracts.ErrPersistence, err)
	}
	return runID, nil
}

// Finish moves a RUNNING row to status on q
// Runs that already left RUNNING are not touched and yield ErrRunNotRunning
func (l *RunLedger) Finish(ctx context.Context, q database.Querier, runID string, status contracts.RunStatus, rowsWritten int64, details map[string]interface{}, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish run %s: invalid status %q", runID, status)
	}

	var detailsJSON any
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal run details: %w", err)
		}
		detailsJSON = string(data)
	}

	var message any
	if errMsg != "" {
		message = TruncateError(errMsg)
	}

	n, err := q.Exec(ctx, `
		UPDATE pipeline_runs
		SET finished_at = ?, status = ?, rows_written = ?, details = ?, error_message = ?
		WHERE run_id = ? AND status = ?
	`, q.Dialect().Timestamp(l.clock.Now()), string(status), rowsWritten, detailsJSON, message,
		runID, string(contracts.RunRunning))
	if err != nil {
		return fmt.Errorf("%w: finish run %s: %w", contracts.ErrPersistence, runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, contracts.ErrRunNotRunning)
	}
	return nil
}

// FinishFailed records FAILED in a fresh transaction
func (l *RunLedger) FinishFailed(ctx context.Context, runID string, rowsWritten int64, details map[string]interface{}, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return database.WithTx(ctx, l.db, func(tx database.Tx) error {
		return l.Finish(ctx, tx, runID, contracts.RunFailed, rowsWritten, details, msg)
	})
}

// TruncateError caps msg at MaxErrorMessageLen characters
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= contracts.MaxErrorMessageLen {
		return msg
	}
	return string(runes[:contracts.MaxErrorMessageLen])
}

func runColumns(d database.Dialect) string {
	return `run_id, started_at, finished_at, status, rows_written, ` + d.JSONText("details") + `, error_message`
}

// Recent returns up to limit runs, newest first
func (l *RunLedger) Recent(ctx context.Context, q database.Querier, limit int) ([]contracts.Run, error) {
	if limit <= 0 {
		return []contracts.Run{}, nil
	}

	rows, err := q.Query(ctx, `SELECT `+runColumns(q.Dialect())+` FROM pipeline_runs
		ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns one run or ErrRunNotFound
func (l *RunLedger) Get(ctx context.Context, q database.Querier, runID string) (*contracts.Run, error) {
	rows, err := q.Query(ctx, `SELECT `+runColumns(q.Dialect())+` FROM pipeline_runs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query run %s: %w", runID, err)
		}
		return nil, fmt.Errorf("run %s: %w", runID, contracts.ErrRunNotFound)
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func scanRun(rows database.Rows) (contracts.Run, error) {
	var (
		run        contracts.Run
		startedAt  database.NullTime
		finishedAt database.NullTime
		status     string
		details    *string
	)
	if err := rows.Scan(&run.RunID, &startedAt, &finishedAt, &status, &run.RowsWritten, &details, &run.ErrorMessage); err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = startedAt.Time
	run.FinishedAt = finishedAt.Ptr()
	run.Status = contracts.RunStatus(status)

	if details != nil && *details != "" {
		if err := json.Unmarshal([]byte(*details), &run.Details); err != nil {
			return run, fmt.Errorf("decode run details: %w", err)
		}
	}
	return run, nil
}
