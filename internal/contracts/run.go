package contracts

import "time"

// RunStatus is the run ledger state
// RUNNING → {SUCCESS, FAILED}; both terminal
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed
func (s RunStatus) IsTerminal() bool {
	return s == RunSuccess || s == RunFailed
}

// MaxErrorMessageLen caps the stored error message (characters)
const MaxErrorMessageLen = 500

// Run is one pipeline invocation in the ledger
type Run struct {
	RunID        string                 `json:"run_id"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   *time.Time             `json:"finished_at"`
	Status       RunStatus              `json:"status"`
	RowsWritten  int64                  `json:"rows_written"`
	Details      map[string]interface{} `json:"details"`
	ErrorMessage *string                `json:"error_message"`
}

// SnapshotRow is one dashboard_snapshot row
type SnapshotRow struct {
	SnapshotID  string    `json:"snapshot_id"`
	IndicatorRow
	GeneratedAt time.Time `json:"generated_at"`
}

// SnapshotResult summarizes one snapshot refresh
type SnapshotResult struct {
	SnapshotRows        int   `json:"snapshot_rows"`
	DeletedOldSnapshots int64 `json:"deleted_old_snapshots"`
}
