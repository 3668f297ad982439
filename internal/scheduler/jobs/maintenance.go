package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantdash/internal/audit"
	"github.com/wonny/quantdash/pkg/database"
	"github.com/wonny/quantdash/pkg/logger"
)

// SnapshotCleanupSchedule runs retention daily outside market hours
const SnapshotCleanupSchedule = "30 3 * * *"

// SnapshotCleanupJob prunes expired dashboard snapshots between runs
type SnapshotCleanupJob struct {
	db            database.DB
	snapshots     *audit.Snapshotter
	retentionDays int
	logger        *logger.Logger
}

// NewSnapshotCleanupJob creates a new snapshot cleanup job
func NewSnapshotCleanupJob(db database.DB, snapshots *audit.Snapshotter, retentionDays int, log *logger.Logger) *SnapshotCleanupJob {
	return &SnapshotCleanupJob{
		db:            db,
		snapshots:     snapshots,
		retentionDays: retentionDays,
		logger:        log.WithField("job", "snapshot_cleanup"),
	}
}

// Name returns the job name
func (j *SnapshotCleanupJob) Name() string {
	return "snapshot_cleanup"
}

// Schedule returns the cron schedule
func (j *SnapshotCleanupJob) Schedule() string {
	return SnapshotCleanupSchedule
}

// Run deletes snapshots older than the retention window
func (j *SnapshotCleanupJob) Run(ctx context.Context) error {
	var removed int64
	err := database.WithTx(ctx, j.db, func(tx database.Tx) error {
		var err error
		removed, err = j.snapshots.Cleanup(ctx, tx, j.retentionDays)
		return err
	})
	if err != nil {
		return fmt.Errorf("snapshot cleanup: %w", err)
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Snapshot cleanup completed")
	}
	return nil
}
