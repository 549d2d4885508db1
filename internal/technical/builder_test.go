package technical

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

func syntheticBars(n int) []contracts.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i) + math.Sin(float64(i))
		bars[i] = contracts.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1000 + i),
		}
	}
	return bars
}

func TestBuilder_DefaultWindows(t *testing.T) {
	b := NewBuilder(DefaultConfig(), logger.NewNop())

	assert.Equal(t, []string{"daily_return", "ma_5", "ma_10", "volatility_5"}, b.Columns())
	assert.Equal(t, 9, b.WindowLoss())

	table, err := b.Build(syntheticBars(40))
	require.NoError(t, err)
	assert.Len(t, table.Rows, 31)
	assert.Equal(t, 9, table.WindowLoss)
	assert.Equal(t, syntheticBars(40)[9].Date, table.Rows[0].Date)

	for _, row := range table.Rows {
		for _, v := range row.Features {
			assert.False(t, math.IsNaN(v), "NaN in row %s", row.Date)
		}
	}
}

func TestBuilder_FeatureValues(t *testing.T) {
	bars := syntheticBars(12)
	closes := []float64{}
	for _, b := range bars {
		closes = append(closes, b.Close)
	}

	b := NewBuilder(Config{MAWindows: []int{3}, VolatilityWindows: []int{3}}, logger.NewNop())
	table, err := b.Build(bars)
	require.NoError(t, err)
	require.Equal(t, 3, table.WindowLoss)

	row := table.Rows[0] // t = 3
	wantReturn := closes[3]/closes[2] - 1
	wantMA := (closes[1] + closes[2] + closes[3]) / 3

	r1 := closes[1]/closes[0] - 1
	r2 := closes[2]/closes[1] - 1
	r3 := wantReturn
	m := (r1 + r2 + r3) / 3
	wantVol := math.Sqrt(((r1-m)*(r1-m) + (r2-m)*(r2-m) + (r3-m)*(r3-m)) / 2)

	assert.InDelta(t, wantReturn, row.Features[0], 1e-12)
	assert.InDelta(t, wantMA, row.Features[1], 1e-12)
	assert.InDelta(t, wantVol, row.Features[2], 1e-12)
	assert.Equal(t, bars[3].Close, row.Bar.Close)
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder(DefaultConfig(), logger.NewNop())

	tests := []struct {
		name    string
		bars    []contracts.PriceBar
		wantErr error
	}{
		{"empty series", nil, contracts.ErrDataUnavailable},
		{"too short", syntheticBars(9), contracts.ErrInsufficientHistory},
		{"duplicate date", func() []contracts.PriceBar {
			bars := syntheticBars(20)
			bars[5].Date = bars[4].Date
			return bars
		}(), contracts.ErrInvalidSeries},
		{"descending", func() []contracts.PriceBar {
			bars := syntheticBars(20)
			bars[3], bars[4] = bars[4], bars[3]
			return bars
		}(), contracts.ErrInvalidSeries},
		{"non-positive close", func() []contracts.PriceBar {
			bars := syntheticBars(20)
			bars[7].Close = 0
			return bars
		}(), contracts.ErrInvalidSeries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.bars)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestBuilder_MinimumBarsGivesOneRow(t *testing.T) {
	b := NewBuilder(DefaultConfig(), logger.NewNop())
	table, err := b.Build(syntheticBars(10))
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestBuilder_StripsTimeOfDay(t *testing.T) {
	bars := syntheticBars(12)
	zone := time.FixedZone("EST", -5*3600)
	for i := range bars {
		d := bars[i].Date
		bars[i].Date = time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, zone)
	}

	table, err := NewBuilder(DefaultConfig(), logger.NewNop()).Build(bars)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), table.Rows[0].Date)
}

func TestBuilder_InvalidWindow(t *testing.T) {
	b := NewBuilder(Config{MAWindows: []int{5}, VolatilityWindows: []int{1}}, logger.NewNop())
	_, err := b.Build(syntheticBars(20))
	assert.Error(t, err)
}
