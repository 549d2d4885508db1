package ablation

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/kassandra/internal/alignment"
	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/regressor"
	"github.com/wonny/kassandra/pkg/logger"
)

// DefaultTrainRatio is the time-ordered train share
const DefaultTrainRatio = 0.8

// Result carries the metrics and the trained technical+sentiment model
type Result struct {
	Metrics        contracts.AblationResult
	Model          regressor.Model
	FeatureColumns []string
}

// Trainer compares a technical-only model against technical+sentiment
// ⭐ SSOT: 시간순 분할 (셔플 금지)
type Trainer struct {
	regressor  regressor.Regressor
	trainRatio float64
	logger     *logger.Logger
}

// NewTrainer creates a new ablation trainer
func NewTrainer(reg regressor.Regressor, trainRatio float64, log *logger.Logger) *Trainer {
	if trainRatio <= 0 || trainRatio >= 1 {
		trainRatio = DefaultTrainRatio
	}
	return &Trainer{
		regressor:  reg,
		trainRatio: trainRatio,
		logger:     log,
	}
}

// SplitIndex returns clamp(floor(n*ratio), 1, n-1)
func SplitIndex(n int, ratio float64) int {
	split := int(math.Floor(float64(n) * ratio))
	if split < 1 {
		split = 1
	}
	if split > n-1 {
		split = n - 1
	}
	return split
}

// Run fits both variants on the same split and scores them on the validation rows
func (t *Trainer) Run(table *contracts.AlignedTable) (*Result, error) {
	base, err := alignment.Supervise(table, false)
	if err != nil {
		return nil, fmt.Errorf("ablation: %w", err)
	}
	full, err := alignment.Supervise(table, true)
	if err != nil {
		return nil, fmt.Errorf("ablation: %w", err)
	}

	n := base.Len()
	split := SplitIndex(n, t.trainRatio)

	started := time.Now()
	baseMetrics, _, err := t.fitAndScore(base, split)
	if err != nil {
		return nil, fmt.Errorf("ablation baseline: %w", err)
	}
	fullMetrics, fullModel, err := t.fitAndScore(full, split)
	if err != nil {
		return nil, fmt.Errorf("ablation full: %w", err)
	}

	if baseMetrics.RMSE == 0 {
		return nil, fmt.Errorf("baseline rmse is 0, improvement undefined: %w", contracts.ErrZeroVariance)
	}
	improvement := (baseMetrics.RMSE - fullMetrics.RMSE) / baseMetrics.RMSE * 100

	result := &Result{
		Metrics: contracts.AblationResult{
			Baseline:           baseMetrics,
			Enhanced:           fullMetrics,
			ImprovementPercent: improvement,
			TrainRows:          split,
			TestRows:           n - split,
			FeatureCountBase:   len(base.Columns),
			FeatureCountFull:   len(full.Columns),
			BaselineColumns:    append([]string{}, base.Columns...),
			FullColumns:        append([]string{}, full.Columns...),
		},
		Model:          fullModel,
		FeatureColumns: full.Columns,
	}

	t.logger.WithFields(map[string]interface{}{
		"regressor":     t.regressor.Name(),
		"train_rows":    split,
		"test_rows":     n - split,
		"baseline_rmse": baseMetrics.RMSE,
		"full_rmse":     fullMetrics.RMSE,
		"improvement":   improvement,
		"duration":      time.Since(started).String(),
	}).Info("Ablation completed")

	return result, nil
}

func (t *Trainer) fitAndScore(ds *alignment.Dataset, split int) (contracts.ModelMetrics, regressor.Model, error) {
	trainX, trainY := ds.Slice(0, split)
	testX, testY := ds.Slice(split, ds.Len())

	model, err := t.regressor.Fit(trainX, trainY)
	if err != nil {
		return contracts.ModelMetrics{}, nil, err
	}
	pred, err := model.Predict(testX)
	if err != nil {
		return contracts.ModelMetrics{}, nil, err
	}

	mae, err := regressor.MAE(testY, pred)
	if err != nil {
		return contracts.ModelMetrics{}, nil, err
	}
	rmse, err := regressor.RMSE(testY, pred)
	if err != nil {
		return contracts.ModelMetrics{}, nil, err
	}
	return contracts.ModelMetrics{MAE: mae, RMSE: rmse}, model, nil
}
