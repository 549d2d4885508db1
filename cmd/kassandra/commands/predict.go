package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict [symbol]",
	Short: "다음 거래일 종가 예측",
	Long: `지정 기간의 가격/감성 데이터로 다음 거래일 종가를 예측합니다.

이 명령어는:
- Yahoo 가격 + 뉴스/Google Trends/Wikipedia 감성 수집
- 기술지표/감성 피처 정렬
- Ablation 학습 후 마지막 행으로 예측
- Walk-forward 로그 및 CSV 저장

Example:
  go run ./cmd/kassandra predict TSLA --start 2024-01-01 --end 2024-06-30
  go run ./cmd/kassandra predict AAPL --start 2024-01-01 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

var (
	predictStart string
	predictEnd   string
	predictJSON  bool
)

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictStart, "start", "", "시작 날짜 (YYYY-MM-DD, 필수)")
	predictCmd.Flags().StringVar(&predictEnd, "end", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "결과를 JSON으로 출력")

	predictCmd.MarkFlagRequired("start")
}

func runPredict(cmd *cobra.Command, args []string) error {
	symbol := args[0]
	end := defaultEnd(predictEnd)

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if !predictJSON {
		fmt.Println("=== Kassandra Prediction ===")
		PrintRunHeader("Next-day close prediction", symbol, predictStart, end)
	}

	result, err := a.service.Run(cmd.Context(), symbol, predictStart, end)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	p := result.Prediction

	if predictJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Println("\n🔮 Prediction")
	PrintKeyValue("Company", p.CompanyName, 20)
	PrintKeyValue("Latest close", fmt.Sprintf("%.2f", p.LatestClose), 20)
	PrintKeyValue("Predicted close", fmt.Sprintf("%.2f", p.PredictedClose), 20)
	PrintKeyValue("Change", fmt.Sprintf("%+.2f%%", (p.PredictedClose/p.LatestClose-1)*100), 20)
	PrintKeyValue("Training rows", fmt.Sprint(p.TrainingRows), 20)

	s := p.Sentiment
	fmt.Println("\n💬 Sentiment (latest row)")
	PrintKeyValue("News", fmt.Sprintf("%.3f (%d articles)", s.NewsSentiment, s.NewsArticleCount), 20)
	PrintKeyValue("Google Trends", fmt.Sprintf("%.1f (Δ7d %+.1f)", s.GoogleTrendsScore, s.GoogleTrendsDelta7D), 20)
	PrintKeyValue("Wikipedia views", fmt.Sprintf("%.0f (Δ7d %+.0f)", s.WikipediaViews, s.WikipediaViewsDelta), 20)
	PrintKeyValue("Combined", fmt.Sprintf("%.3f", s.CombinedSentiment), 20)

	printSources(p.Sources)
	printAblation(p.Ablation)
	printBacktest("Walk-forward", p.Backtest)

	fmt.Println()
	if p.FeatureCSVPath != "" {
		PrintSuccess("Features    → " + p.FeatureCSVPath)
	}
	if p.PredictionCSVPath != "" {
		PrintSuccess("Predictions → " + p.PredictionCSVPath)
	}
	if p.RunID > 0 {
		PrintSuccess(fmt.Sprintf("Saved as run #%d", p.RunID))
	}
	fmt.Printf("\nCompleted in %.2fs\n", result.Duration.Seconds())
	return nil
}

// defaultEnd returns today when no end date was given
func defaultEnd(end string) string {
	if end != "" {
		return end
	}
	return time.Now().Format("2006-01-02")
}
