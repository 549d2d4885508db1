package technical

import (
	"fmt"
	"math"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

// Column names
const (
	ColDailyReturn = "daily_return"
	colMAPrefix    = "ma_"
	colVolPrefix   = "volatility_"
)

// Config holds window settings
type Config struct {
	MAWindows         []int
	VolatilityWindows []int
}

// DefaultConfig returns MA [5, 10] and volatility [5]
func DefaultConfig() Config {
	return Config{
		MAWindows:         []int{5, 10},
		VolatilityWindows: []int{5},
	}
}

// Builder derives price-only features from a daily bar series
// ⭐ SSOT: 기술적 피처 계산은 여기서만
type Builder struct {
	cfg    Config
	logger *logger.Logger
}

// NewBuilder creates a new technical feature builder
func NewBuilder(cfg Config, log *logger.Logger) *Builder {
	return &Builder{
		cfg:    cfg,
		logger: log,
	}
}

// Columns returns the feature columns in output order
func (b *Builder) Columns() []string {
	cols := []string{ColDailyReturn}
	for _, k := range b.cfg.MAWindows {
		cols = append(cols, fmt.Sprintf("%s%d", colMAPrefix, k))
	}
	for _, k := range b.cfg.VolatilityWindows {
		cols = append(cols, fmt.Sprintf("%s%d", colVolPrefix, k))
	}
	return cols
}

// WindowLoss returns the number of leading bars that can never form a valid row
func (b *Builder) WindowLoss() int {
	loss := 1 // daily_return needs t >= 1
	for _, k := range b.cfg.MAWindows {
		if k-1 > loss {
			loss = k - 1
		}
	}
	for _, k := range b.cfg.VolatilityWindows {
		if k > loss {
			loss = k
		}
	}
	return loss
}

// Build computes the technical table.
// Rows without enough history are dropped, never padded.
func (b *Builder) Build(bars []contracts.PriceBar) (*contracts.TechnicalTable, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("build technical features: %w", contracts.ErrDataUnavailable)
	}
	if err := b.validateWindows(); err != nil {
		return nil, err
	}
	if err := validateSeries(bars); err != nil {
		return nil, err
	}

	loss := b.WindowLoss()
	if len(bars) <= loss {
		return nil, fmt.Errorf("need more than %d bars, got %d: %w", loss, len(bars), contracts.ErrInsufficientHistory)
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	returns := dailyReturns(closes)

	table := &contracts.TechnicalTable{
		Columns:    b.Columns(),
		Rows:       make([]contracts.TechnicalRow, 0, len(bars)-loss),
		WindowLoss: loss,
	}

	for t := loss; t < len(bars); t++ {
		features := make([]float64, 0, len(table.Columns))
		features = append(features, returns[t])
		for _, k := range b.cfg.MAWindows {
			features = append(features, mean(closes[t-k+1:t+1]))
		}
		for _, k := range b.cfg.VolatilityWindows {
			features = append(features, sampleStd(returns[t-k+1:t+1]))
		}

		bar := bars[t]
		bar.Date = contracts.NormalizeDate(bar.Date)
		table.Rows = append(table.Rows, contracts.TechnicalRow{
			Date:     bar.Date,
			Bar:      bar,
			Features: features,
		})
	}

	b.logger.WithFields(map[string]interface{}{
		"bars":        len(bars),
		"rows":        len(table.Rows),
		"window_loss": loss,
		"columns":     len(table.Columns),
	}).Debug("Built technical features")

	return table, nil
}

func (b *Builder) validateWindows() error {
	for _, k := range b.cfg.MAWindows {
		if k < 1 {
			return fmt.Errorf("invalid ma window %d", k)
		}
	}
	for _, k := range b.cfg.VolatilityWindows {
		// sample std needs at least 2 returns
		if k < 2 {
			return fmt.Errorf("invalid volatility window %d", k)
		}
	}
	return nil
}

// validateSeries checks strictly increasing dates and finite positive closes
func validateSeries(bars []contracts.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !contracts.NormalizeDate(bars[i].Date).After(contracts.NormalizeDate(bars[i-1].Date)) {
			return fmt.Errorf("duplicate or out-of-order date %s: %w",
				contracts.DateKey(bars[i].Date), contracts.ErrInvalidSeries)
		}
	}
	for _, bar := range bars {
		if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) || bar.Close <= 0 {
			return fmt.Errorf("bad close %v on %s: %w", bar.Close, contracts.DateKey(bar.Date), contracts.ErrInvalidSeries)
		}
	}
	return nil
}
