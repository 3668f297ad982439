package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantdash/internal/brain"
	"github.com/wonny/quantdash/pkg/logger"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context) (brain.RunOutcome, error)
}

// PipelineJob runs the full pipeline on the configured cron
// ⭐ SSOT: 파이프라인 스케줄은 이 Job에서만
type PipelineJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewPipelineJob creates a new pipeline job
func NewPipelineJob(runner Runner, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		schedule: schedule,
		logger:   log.WithField("job", "pipeline"),
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "pipeline"
}

// Schedule returns the configured cron expression
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes one tracked run
func (j *PipelineJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled pipeline run")

	outcome, err := j.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", outcome.RunID, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":       outcome.RunID,
		"rows_written": outcome.RowsWritten,
	}).Info("Scheduled pipeline run completed")
	return nil
}
