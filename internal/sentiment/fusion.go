package sentiment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

// Weights of the combined sentiment score
type Weights struct {
	News   float64
	Trends float64
	Wiki   float64
}

// DefaultWeights returns 0.4 news, 0.3 trends, 0.3 wikipedia
func DefaultWeights() Weights {
	return Weights{News: 0.4, Trends: 0.3, Wiki: 0.3}
}

// Validate rejects negative or all-zero weights
func (w Weights) Validate() error {
	if w.News < 0 || w.Trends < 0 || w.Wiki < 0 {
		return fmt.Errorf("fusion weights must be non-negative: %+v", w)
	}
	if w.News+w.Trends+w.Wiki == 0 {
		return fmt.Errorf("fusion weights sum to zero")
	}
	return nil
}

// Fuser combines canonical sources into one score per date
// ⭐ SSOT: combined_sentiment = wN*news + wT*z(trend_delta) + wW*z(wiki_delta)
type Fuser struct {
	weights Weights
	logger  *logger.Logger
}

// NewFuser creates a new sentiment fusion engine
func NewFuser(weights Weights, log *logger.Logger) *Fuser {
	return &Fuser{
		weights: weights,
		logger:  log,
	}
}

// zeroSpread absorbs rounding noise on constant columns
const zeroSpread = 1e-12

type fusedCells struct {
	news       float64
	trendDelta float64
	wikiDelta  float64
}

// Fuse outer-joins the present sources on date.
// Missing cells count as 0; deltas are z-scored over the union of dates.
func (f *Fuser) Fuse(canon contracts.CanonicalSentiment) []contracts.FusedScore {
	cells := make(map[time.Time]*fusedCells)
	cell := func(d time.Time) *fusedCells {
		d = contracts.NormalizeDate(d)
		c, ok := cells[d]
		if !ok {
			c = &fusedCells{}
			cells[d] = c
		}
		return c
	}

	for _, r := range canon.News {
		cell(r.Date).news = r.AvgSentiment
	}
	for _, r := range canon.Trends {
		cell(r.Date).trendDelta = r.TrendDelta7D
	}
	for _, r := range canon.Wiki {
		cell(r.Date).wikiDelta = r.ViewsDelta
	}

	if len(cells) == 0 {
		return []contracts.FusedScore{}
	}

	dates := make([]time.Time, 0, len(cells))
	for d := range cells {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	trend := make([]float64, len(dates))
	wiki := make([]float64, len(dates))
	for i, d := range dates {
		trend[i] = cells[d].trendDelta
		wiki[i] = cells[d].wikiDelta
	}
	zTrend := zScores(trend)
	zWiki := zScores(wiki)

	out := make([]contracts.FusedScore, len(dates))
	for i, d := range dates {
		out[i] = contracts.FusedScore{
			Date: d,
			Combined: f.weights.News*cells[d].news +
				f.weights.Trends*zTrend[i] +
				f.weights.Wiki*zWiki[i],
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"news_days":   len(canon.News),
		"trends_days": len(canon.Trends),
		"wiki_days":   len(canon.Wiki),
		"fused_days":  len(out),
	}).Debug("Fused sentiment")

	return out
}

// zScores standardizes values with the sample std.
// Fewer than 2 values or zero spread yields all zeros.
func zScores(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) < 2 {
		return out
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(values)-1))
	if std <= zeroSpread*math.Max(1, math.Abs(mean)) || math.IsNaN(std) {
		return out
	}

	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}
