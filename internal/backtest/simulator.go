package backtest

import (
	"math"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

// Simulator replays a prediction log as a long/flat strategy:
// hold the stock from close t to close t+1 when the predicted next close is above close t.
// ⭐ SSOT: 백테스트 전략 시뮬레이션은 여기서만
type Simulator struct {
	commission float64 // per position change, e.g. 0.0015 = 0.15%
	logger     *logger.Logger
}

// NewSimulator creates a new strategy simulator
func NewSimulator(commission float64, logger *logger.Logger) *Simulator {
	return &Simulator{
		commission: commission,
		logger:     logger,
	}
}

// Simulate scores the strategy. current[k] is the close on log entry k's day.
func (s *Simulator) Simulate(current []float64, log []contracts.PredictionLogEntry) contracts.StrategyStats {
	stats := contracts.StrategyStats{}
	if len(log) == 0 || len(current) != len(log) {
		return stats
	}

	equity := 1.0
	curve := make([]float64, 0, len(log)+1)
	curve = append(curve, equity)
	returns := make([]float64, 0, len(log))
	holding := false

	for k, entry := range log {
		long := entry.Predicted > current[k]
		dayReturn := 0.0
		if long {
			dayReturn = entry.Actual/current[k] - 1
		}
		if long != holding {
			dayReturn -= s.commission
			if long {
				stats.Trades++
			}
			holding = long
		}
		if long {
			if entry.Actual > current[k] {
				stats.WinningTrades++
			} else if entry.Actual < current[k] {
				stats.LosingTrades++
			}
		}

		equity *= 1 + dayReturn
		curve = append(curve, equity)
		returns = append(returns, dayReturn)
	}

	stats.TotalReturn = equity - 1
	stats.BuyAndHold = log[len(log)-1].Actual/current[0] - 1
	stats.Volatility = s.calculateVolatility(returns) * math.Sqrt(252)
	if stats.Volatility > 0 {
		stats.SharpeRatio = mean(returns) * 252 / stats.Volatility
	}
	stats.MaxDrawdown = s.calculateMaxDrawdown(curve)

	s.logger.WithFields(map[string]interface{}{
		"trades":       stats.Trades,
		"total_return": stats.TotalReturn,
		"buy_and_hold": stats.BuyAndHold,
		"max_drawdown": stats.MaxDrawdown,
	}).Debug("Simulated prediction-following strategy")

	return stats
}

// calculateVolatility calculates population standard deviation
func (s *Simulator) calculateVolatility(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	m := mean(returns)
	variance := 0.0
	for _, r := range returns {
		diff := r - m
		variance += diff * diff
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// calculateMaxDrawdown calculates maximum drawdown from an equity curve
func (s *Simulator) calculateMaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	maxDrawdown := 0.0
	peak := curve[0]
	for _, equity := range curve {
		if equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
