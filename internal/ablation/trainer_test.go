package ablation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/regressor"
	"github.com/wonny/kassandra/pkg/logger"
)

// constRegressor predicts a fixed value chosen by feature width
type constRegressor struct {
	byWidth map[int]float64
	fits    [][][]float64
}

func (r *constRegressor) Name() string { return "const" }

func (r *constRegressor) Fit(X [][]float64, y []float64) (regressor.Model, error) {
	r.fits = append(r.fits, X)
	return constModel(r.byWidth[len(X[0])]), nil
}

type constModel float64

func (m constModel) Predict(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = float64(m)
	}
	return out, nil
}

// alignedTable builds n rows; technical feature 0 is the row index
func alignedTable(n int, closeAt func(i int) float64) *contracts.AlignedTable {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	table := &contracts.AlignedTable{
		TechnicalColumns: []string{"idx", "ma_5"},
		SentimentColumns: contracts.SentimentColumns,
	}
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		table.Rows = append(table.Rows, contracts.AlignedRow{
			Date:      d,
			Bar:       contracts.PriceBar{Date: d, Close: closeAt(i)},
			Technical: []float64{float64(i), 1},
		})
	}
	return table
}

func TestSplitIndex(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{10, 0.8, 8},
		{2, 0.8, 1},
		{3, 0.8, 2},
		{5, 0.99, 4},
		{5, 0.01, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitIndex(tt.n, tt.ratio), "n=%d ratio=%v", tt.n, tt.ratio)
	}
}

func TestRun_TimeOrderedSplitAndImprovement(t *testing.T) {
	// targets: close[t+1] = 100 + (t+1)
	table := alignedTable(11, func(i int) float64 { return 100 + float64(i) })
	reg := &constRegressor{byWidth: map[int]float64{
		2: 100,
		9: 109,
	}}

	result, err := NewTrainer(reg, 0.8, logger.NewNop()).Run(table)
	require.NoError(t, err)

	m := result.Metrics
	assert.Equal(t, 8, m.TrainRows)
	assert.Equal(t, 2, m.TestRows)
	assert.Equal(t, 2, m.FeatureCountBase)
	assert.Equal(t, 9, m.FeatureCountFull)
	assert.Equal(t, []string{"idx", "ma_5"}, m.BaselineColumns)
	assert.Equal(t, append([]string{"idx", "ma_5"}, contracts.SentimentColumns...), m.FullColumns)

	// train rows are the first 8 supervised rows, in order
	require.Len(t, reg.fits, 2)
	for _, X := range reg.fits {
		require.Len(t, X, 8)
		for i, row := range X {
			assert.Equal(t, float64(i), row[0])
		}
	}

	// validation targets 109, 110
	assert.InDelta(t, 9.5, m.Baseline.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt((81.0+100.0)/2), m.Baseline.RMSE, 1e-12)
	assert.InDelta(t, 0.5, m.Enhanced.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), m.Enhanced.RMSE, 1e-12)

	want := (m.Baseline.RMSE - m.Enhanced.RMSE) / m.Baseline.RMSE * 100
	assert.InDelta(t, want, m.ImprovementPercent, 1e-12)
	assert.Greater(t, m.ImprovementPercent, 0.0)

	assert.NotNil(t, result.Model)
	assert.Len(t, result.FeatureColumns, 9)
}

func TestRun_WorseFullModelGivesNegativeImprovement(t *testing.T) {
	table := alignedTable(11, func(i int) float64 { return 100 + float64(i) })
	// 감성 포함 모델이 더 나쁜 경우
	reg := &constRegressor{byWidth: map[int]float64{
		2: 109,
		9: 100,
	}}

	result, err := NewTrainer(reg, 0.8, logger.NewNop()).Run(table)
	require.NoError(t, err)

	m := result.Metrics
	assert.Greater(t, m.Enhanced.RMSE, m.Baseline.RMSE)
	assert.Less(t, m.ImprovementPercent, 0.0)
}

func TestRun_InsufficientData(t *testing.T) {
	reg := &constRegressor{}
	_, err := NewTrainer(reg, 0.8, logger.NewNop()).Run(alignedTable(1, func(int) float64 { return 1 }))
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestRun_ZeroBaselineRMSE(t *testing.T) {
	table := alignedTable(10, func(int) float64 { return 50 })
	reg := &constRegressor{byWidth: map[int]float64{2: 50, 9: 50}}

	_, err := NewTrainer(reg, 0.8, logger.NewNop()).Run(table)
	assert.ErrorIs(t, err, contracts.ErrZeroVariance)
}

func TestRun_TwoRowsUsesOneTrainOneTest(t *testing.T) {
	table := alignedTable(3, func(i int) float64 { return float64(10 + i) })
	reg := &constRegressor{byWidth: map[int]float64{2: 0, 9: 12}}

	result, err := NewTrainer(reg, 0.8, logger.NewNop()).Run(table)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metrics.TrainRows)
	assert.Equal(t, 1, result.Metrics.TestRows)
	assert.InDelta(t, 100.0, result.Metrics.ImprovementPercent, 1e-12)
}

func TestRun_RealForestIsFinite(t *testing.T) {
	table := alignedTable(40, func(i int) float64 { return 100 + math.Sin(float64(i)/4)*5 + float64(i)/10 })
	cfg := regressor.DefaultConfig()
	cfg.Trees = 10

	result, err := NewTrainer(regressor.NewRandomForest(cfg), 0.8, logger.NewNop()).Run(table)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(result.Metrics.ImprovementPercent))
	assert.False(t, math.IsInf(result.Metrics.ImprovementPercent, 0))
}
