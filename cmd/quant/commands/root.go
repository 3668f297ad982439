package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantdash/pkg/config"
	"github.com/wonny/quantdash/pkg/logger"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "quantdash - 일봉 기반 퀀트 대시보드 파이프라인",
	Long: `quantdash Unified CLI

일봉 수집 → 지표 계산 → 호라이즌 점수 → 스냅샷 → 대시보드 JSON.
실행 1회 = pipeline_runs 한 줄 (all-or-nothing).

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant run
  go run ./cmd/quant run --export-json /tmp/latest.json
  go run ./cmd/quant scheduler start
  go run ./cmd/quant runs --limit 5
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default: built-in defaults + .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads --config and builds the process logger
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}
