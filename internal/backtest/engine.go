package backtest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/kassandra/internal/alignment"
	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/regressor"
	"github.com/wonny/kassandra/pkg/logger"
)

// DefaultMinTrainSize is the first training window length
const DefaultMinTrainSize = 30

// Engine runs expanding-window walk-forward evaluation
// ⭐ SSOT: 예측 i는 행 [0, i) 로만 학습 (lookahead 금지)
type Engine struct {
	regressor regressor.Regressor
	simulator *Simulator
	logger    *logger.Logger
}

// Config holds walk-forward configuration
type Config struct {
	MinTrainSize     int
	Workers          int  // concurrent fits, 0 = 1
	IncludeSentiment bool // technical-only when false
}

// DefaultConfig returns min_train_size 30, 4 workers, all features
func DefaultConfig() Config {
	return Config{
		MinTrainSize:     DefaultMinTrainSize,
		Workers:          4,
		IncludeSentiment: true,
	}
}

// NewEngine creates a new walk-forward engine
func NewEngine(reg regressor.Regressor, simulator *Simulator, logger *logger.Logger) *Engine {
	return &Engine{
		regressor: reg,
		simulator: simulator,
		logger:    logger,
	}
}

// Run fits a fresh model per step i = MinTrainSize..n-1 on rows [0, i)
// and predicts row i. The log stays chronological regardless of Workers.
func (e *Engine) Run(ctx context.Context, table *contracts.AlignedTable, config Config) (*contracts.BacktestResult, error) {
	if config.MinTrainSize < 1 {
		return nil, fmt.Errorf("min train size must be positive, got %d", config.MinTrainSize)
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	ds, err := alignment.Supervise(table, config.IncludeSentiment)
	if err != nil {
		return nil, fmt.Errorf("walk-forward: %w", err)
	}
	n := ds.Len()
	if n < config.MinTrainSize {
		return nil, fmt.Errorf("walk-forward needs %d supervised rows, got %d: %w",
			config.MinTrainSize, n, contracts.ErrInsufficientHistory)
	}

	e.logger.WithFields(map[string]interface{}{
		"rows":           n,
		"min_train_size": config.MinTrainSize,
		"steps":          n - config.MinTrainSize,
		"workers":        workers,
		"regressor":      e.regressor.Name(),
	}).Info("Starting walk-forward backtest")

	startTime := time.Now()
	log := make([]contracts.PredictionLogEntry, n-config.MinTrainSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := config.MinTrainSize; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			predicted, err := e.step(ds, i)
			if err != nil {
				return fmt.Errorf("step %s: %w", contracts.DateKey(ds.Dates[i]), err)
			}
			// 슬롯 i에만 쓰기
			log[i-config.MinTrainSize] = contracts.PredictionLogEntry{
				Date:      ds.Dates[i],
				Actual:    ds.Y[i],
				Predicted: predicted,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("walk-forward: %w", err)
	}

	result := &contracts.BacktestResult{
		MinTrainSize: config.MinTrainSize,
		Log:          log,
	}
	if err := e.calculateMetrics(result, ds.Close[config.MinTrainSize:]); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"duration":             time.Since(startTime).Seconds(),
		"steps":                result.Summary.Steps,
		"mae":                  fmt.Sprintf("%.4f", result.Summary.MAE),
		"rmse":                 fmt.Sprintf("%.4f", result.Summary.RMSE),
		"directional_accuracy": fmt.Sprintf("%.2f%%", result.Summary.DirectionalAccuracy*100),
	}).Info("Walk-forward backtest completed")

	return result, nil
}

// step trains on copies of rows [0, i) and predicts row i
func (e *Engine) step(ds *alignment.Dataset, i int) (float64, error) {
	X, y := ds.Slice(0, i)
	model, err := e.regressor.Fit(X, y)
	if err != nil {
		return 0, err
	}
	next, _ := ds.Slice(i, i+1)
	pred, err := model.Predict(next)
	if err != nil {
		return 0, err
	}
	return pred[0], nil
}

// calculateMetrics fills the error summary and the strategy simulation.
// current[k] is the close on the day of log entry k.
func (e *Engine) calculateMetrics(result *contracts.BacktestResult, current []float64) error {
	result.Summary.Steps = len(result.Log)
	if len(result.Log) == 0 {
		return nil
	}

	actual := make([]float64, len(result.Log))
	predicted := make([]float64, len(result.Log))
	for k, entry := range result.Log {
		actual[k] = entry.Actual
		predicted[k] = entry.Predicted
	}

	mae, err := regressor.MAE(actual, predicted)
	if err != nil {
		return fmt.Errorf("score walk-forward: %w", err)
	}
	rmse, err := regressor.RMSE(actual, predicted)
	if err != nil {
		return fmt.Errorf("score walk-forward: %w", err)
	}
	result.Summary.MAE = mae
	result.Summary.RMSE = rmse
	result.Summary.DirectionalAccuracy = regressor.DirectionalAccuracy(current, actual, predicted)

	if e.simulator != nil {
		result.Strategy = e.simulator.Simulate(current, result.Log)
	}
	return nil
}
