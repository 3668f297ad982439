package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantdash/internal/scheduler"
	"github.com/wonny/quantdash/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 등록된 작업을 조회합니다.

Subcommands:
  start   - 스케줄러 시작 (schedule.cron 에 따라 파이프라인 실행)
  list    - 등록된 작업과 다음 실행 시각

동시에 두 개의 run 이 실행되지 않습니다 (이전 run 이 끝나지 않았으면 건너뜀).

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- pipeline: schedule.cron (기본 평일 18:00)
- snapshot_cleanup: 매일 03:30 (보존 기간 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Schedule.Enabled {
		return fmt.Errorf("schedule.enabled is false")
	}

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	printHeader(out, "quantdash Scheduler")
	printJobs(out, sched.List(time.Now()))

	sched.Start()
	printSuccess(out, "Scheduler started (Ctrl+C to stop)")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "Shutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(cmd.OutOrStdout(), sched.List(time.Now()))
	return nil
}

func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, a.cfg.Location())

	if err := sched.AddJob(jobs.NewPipelineJob(a.orch, a.cfg.Schedule.Cron, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewSnapshotCleanupJob(a.db, a.snaps, a.cfg.Pipeline.SnapshotRetentionDays, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}
