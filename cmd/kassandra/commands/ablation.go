package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ablationCmd represents the ablation command
var ablationCmd = &cobra.Command{
	Use:   "ablation [symbol]",
	Short: "감성 피처 기여도 비교",
	Long: `기술지표만 쓴 모델과 기술지표+감성 모델을 같은 시간순 분할로 비교합니다.

Example:
  go run ./cmd/kassandra ablation TSLA --start 2024-01-01 --end 2024-06-30`,
	Args: cobra.ExactArgs(1),
	RunE: runAblation,
}

var (
	ablationStart string
	ablationEnd   string
)

func init() {
	rootCmd.AddCommand(ablationCmd)

	ablationCmd.Flags().StringVar(&ablationStart, "start", "", "시작 날짜 (YYYY-MM-DD, 필수)")
	ablationCmd.Flags().StringVar(&ablationEnd, "end", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")

	ablationCmd.MarkFlagRequired("start")
}

func runAblation(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Kassandra Ablation ===")
	end := defaultEnd(ablationEnd)

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	PrintRunHeader("Technical vs technical + sentiment", args[0], ablationStart, end)

	result, err := a.service.Run(cmd.Context(), args[0], ablationStart, end)
	if err != nil {
		return fmt.Errorf("ablation failed: %w", err)
	}

	printSources(result.Prediction.Sources)
	printAblation(result.Prediction.Ablation)

	ab := result.Prediction.Ablation
	fmt.Println()
	switch {
	case ab.ImprovementPercent > 0:
		PrintSuccess(fmt.Sprintf("Sentiment features reduced RMSE by %.2f%%", ab.ImprovementPercent))
	default:
		PrintWarning(fmt.Sprintf("Sentiment features did not help (%+.2f%%)", ab.ImprovementPercent))
	}
	return nil
}
