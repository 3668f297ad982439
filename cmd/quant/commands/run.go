package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// runCmd executes the pipeline once
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "파이프라인 1회 실행",
	Long: `파이프라인을 한 번 실행합니다.

  1. pipeline_runs 에 RUNNING 기록 (즉시 커밋)
  2. 유니버스 결정 → 일봉 수집 (yahoo, 실패 시 stooq)
  3. price_data / quant_metrics upsert
  4. 호라이즌 점수 + 추천 → 스냅샷 + 보존 기간 정리
  5. SUCCESS 기록 + 대시보드 JSON 출력 → 커밋

실패 시 전체 롤백 후 FAILED 로 기록하고 에러를 반환합니다.

Example:
  go run ./cmd/quant run
  go run ./cmd/quant run --export-json docs/data/latest.json`,
	RunE: runPipeline,
}

var exportJSONPath string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&exportJSONPath, "export-json", "", "override output.dashboard_json_path")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if exportJSONPath != "" {
		cfg.Output.DashboardJSONPath = exportJSONPath
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
	printHeader(out, "Pipeline Run")
	printKeyValue(out, "Universe", cfg.Pipeline.Universe)
	printKeyValue(out, "Lookback", fmt.Sprintf("%d days", cfg.Pipeline.LookbackDays))
	printKeyValue(out, "Output", cfg.Output.DashboardJSONPath)
	printSeparator(out)

	outcome, err := a.orch.Run(ctx)
	printOutcome(out, outcome)
	if err != nil {
		return fmt.Errorf("run %s failed: %w", outcome.RunID, err)
	}

	printSuccess(out, "Dashboard written to "+cfg.Output.DashboardJSONPath)
	return nil
}
