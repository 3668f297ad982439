package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantdash/pkg/database"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "데이터 정리 도구",
	Long: `데이터베이스 정리 작업을 수행합니다.

Example:
  quant cleanup snapshots
  quant cleanup snapshots --retention-days 7`,
}

var cleanupSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "오래된 dashboard_snapshot 삭제",
	Long: `generated_at 이 보존 기간보다 오래된 스냅샷을 삭제합니다.
실행 이력(pipeline_runs)에는 기록하지 않는 유지보수 작업입니다.`,
	RunE: runCleanupSnapshots,
}

var cleanupRetentionDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupSnapshotsCmd)
	cleanupSnapshotsCmd.Flags().IntVar(&cleanupRetentionDays, "retention-days", -1, "override pipeline.snapshot_retention_days")
}

func runCleanupSnapshots(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	retention := cfg.Pipeline.SnapshotRetentionDays
	if cleanupRetentionDays >= 0 {
		retention = cleanupRetentionDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var removed int64
	err = database.WithTx(ctx, a.db, func(tx database.Tx) error {
		var err error
		removed, err = a.snaps.Cleanup(ctx, tx, retention)
		return err
	})
	if err != nil {
		return fmt.Errorf("cleanup snapshots: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted %d snapshot rows older than %d days", removed, retention))
	return nil
}
