package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kassandra",
	Short: "Kassandra - next-day close predictor",
	Long: `Kassandra CLI

가격 기술지표 + 뉴스/검색량/위키 조회수 감성 피처로 다음 거래일 종가를 예측합니다.

Usage:
  go run ./cmd/kassandra [command]

Examples:
  go run ./cmd/kassandra predict TSLA --start 2024-01-01 --end 2024-06-30
  go run ./cmd/kassandra ablation AAPL --start 2024-01-01 --end 2024-06-30
  go run ./cmd/kassandra backtest NVDA --start 2023-06-01 --end 2024-06-30
  go run ./cmd/kassandra api
  go run ./cmd/kassandra scheduler start
  go run ./cmd/kassandra db-check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
