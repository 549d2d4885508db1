package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

func TestSimulator_LongFlat(t *testing.T) {
	sim := NewSimulator(0, logger.NewNop())
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	current := []float64{100, 110, 99}
	log := []contracts.PredictionLogEntry{
		{Date: d, Actual: 110, Predicted: 105},                 // long, +10%
		{Date: d.AddDate(0, 0, 1), Actual: 99, Predicted: 108}, // flat
		{Date: d.AddDate(0, 0, 2), Actual: 90, Predicted: 100}, // long, -9.09%
	}

	stats := sim.Simulate(current, log)
	assert.Equal(t, 2, stats.Trades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.InDelta(t, 1.1*(90.0/99.0)-1, stats.TotalReturn, 1e-12)
	assert.InDelta(t, -0.1, stats.BuyAndHold, 1e-12)
	assert.InDelta(t, 1-90.0/99.0, stats.MaxDrawdown, 1e-12)
}

func TestSimulator_CommissionOnPositionChange(t *testing.T) {
	sim := NewSimulator(0.01, logger.NewNop())
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	stats := sim.Simulate([]float64{100}, []contracts.PredictionLogEntry{
		{Date: d, Actual: 100, Predicted: 101},
	})
	assert.InDelta(t, -0.01, stats.TotalReturn, 1e-12)
}

func TestSimulator_EmptyLog(t *testing.T) {
	sim := NewSimulator(0, logger.NewNop())
	assert.Equal(t, contracts.StrategyStats{}, sim.Simulate(nil, nil))
}
