package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/database"
)

// runsCmd lists recent ledger entries
var runsCmd = &cobra.Command{
	Use:   "runs [run_id]",
	Short: "실행 이력 조회",
	Long: `pipeline_runs 의 최근 실행 이력을 조회합니다.
run_id 를 지정하면 해당 실행의 상세(details, error)를 출력합니다.

Example:
  go run ./cmd/quant runs
  go run ./cmd/quant runs --limit 5
  go run ./cmd/quant runs 3f2a...`,
	Args: cobra.MaximumNArgs(1),
	RunE: listRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 0, "number of runs (default pipeline.recent_runs_limit)")
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		var run *contracts.Run
		err := database.WithTx(ctx, a.db, func(tx database.Tx) error {
			var err error
			run, err = a.ledger.Get(ctx, tx, args[0])
			return err
		})
		if err != nil {
			return err
		}
		printRunDetail(out, *run)
		return nil
	}

	limit := runsLimit
	if limit <= 0 {
		limit = cfg.Pipeline.RecentRunsLimit
	}

	var runs []contracts.Run
	err = database.WithTx(ctx, a.db, func(tx database.Tx) error {
		var err error
		runs, err = a.ledger.Recent(ctx, tx, limit)
		return err
	})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	printRunsTable(out, runs)
	return nil
}
