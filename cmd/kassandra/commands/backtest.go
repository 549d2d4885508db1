package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/kassandra/internal/backtest"
	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/config"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest [symbol]",
	Short: "Walk-forward 백테스트",
	Long: `확장 윈도우 walk-forward 방식으로 예측 정확도와 단순 롱/현금 전략을 평가합니다.
각 스텝 i는 [0, i) 행으로만 학습합니다.

Flags:
  --min-train       첫 학습 윈도우 길이 (기본: MIN_TRAIN_SIZE)
  --workers         동시 학습 수 (기본: BACKTEST_WORKERS)
  --commission      거래당 수수료율 (기본: BACKTEST_COMMISSION)
  --compare         기술지표 전용 모델과 비교

Example:
  go run ./cmd/kassandra backtest TSLA --start 2023-06-01 --end 2024-06-30
  go run ./cmd/kassandra backtest AAPL --start 2023-01-01 --min-train 60 --compare`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

var (
	backtestStart      string
	backtestEnd        string
	backtestMinTrain   int
	backtestWorkers    int
	backtestCommission float64
	backtestCompare    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "시작 날짜 (YYYY-MM-DD, 필수)")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")
	backtestCmd.Flags().IntVar(&backtestMinTrain, "min-train", 0, "첫 학습 윈도우 (0 = 설정값)")
	backtestCmd.Flags().IntVar(&backtestWorkers, "workers", 0, "동시 학습 수 (0 = 설정값)")
	backtestCmd.Flags().Float64Var(&backtestCommission, "commission", -1, "수수료율 (음수 = 설정값)")
	backtestCmd.Flags().BoolVar(&backtestCompare, "compare", false, "기술지표 전용 모델과 비교")

	backtestCmd.MarkFlagRequired("start")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Kassandra Walk-Forward Backtest ===")
	end := defaultEnd(backtestEnd)

	a, err := newApp(cmd.Context(), func(cfg *config.Config) {
		if backtestMinTrain > 0 {
			cfg.Pipeline.MinTrainSize = backtestMinTrain
		}
		if backtestWorkers > 0 {
			cfg.Pipeline.BacktestWorkers = backtestWorkers
		}
		if backtestCommission >= 0 {
			cfg.Pipeline.Commission = backtestCommission
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	PrintRunHeader("Walk-forward evaluation", args[0], backtestStart, end)
	fmt.Printf("  Min train : %d rows\n", a.cfg.Pipeline.MinTrainSize)
	fmt.Printf("  Workers   : %d\n", a.cfg.Pipeline.BacktestWorkers)
	fmt.Printf("  Commission: %.2f%%\n", a.cfg.Pipeline.Commission*100)

	result, err := a.service.Run(cmd.Context(), args[0], backtestStart, end)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printSources(result.Prediction.Sources)
	printBacktest("Technical + sentiment", result.Prediction.Backtest)

	if !backtestCompare || result.Prediction.Backtest == nil {
		return nil
	}

	// 같은 정렬 테이블로 기술지표 전용 walk-forward
	engine := backtest.NewEngine(a.regressor, backtest.NewSimulator(a.cfg.Pipeline.Commission, a.log), a.log)
	btCfg := pipelineConfig(a.cfg).Backtest
	btCfg.IncludeSentiment = false

	technicalOnly, err := engine.Run(cmd.Context(), result.Aligned, btCfg)
	if err != nil && !errors.Is(err, contracts.ErrInsufficientHistory) {
		return fmt.Errorf("technical-only backtest failed: %w", err)
	}
	printBacktest("Technical only", technicalOnly)

	if technicalOnly != nil {
		full := result.Prediction.Backtest.Summary
		fmt.Println()
		PrintKeyValue("Δ RMSE (full - tech)", fmt.Sprintf("%+.4f", full.RMSE-technicalOnly.Summary.RMSE), 22)
		PrintKeyValue("Δ Direction acc.", fmt.Sprintf("%+.2f%%", (full.DirectionalAccuracy-technicalOnly.Summary.DirectionalAccuracy)*100), 22)
	}
	return nil
}
