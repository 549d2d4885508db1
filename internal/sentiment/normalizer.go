package sentiment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

// DeltaWindow is the trailing window (in rows) of the *_delta columns
const DeltaWindow = 7

// Normalizer converts raw source records into canonical daily series.
// ⭐ SSOT: 날짜 정규화 + 일별 집계 + delta 계산은 여기서만 (fusion에서 재계산 금지)
type Normalizer struct {
	logger *logger.Logger
}

// NewNormalizer creates a new sentiment normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{logger: log}
}

// NormalizeNews collapses scored headlines into one row per date.
// Sentiment is averaged, article counts are summed.
func (n *Normalizer) NormalizeNews(raw []contracts.RawNewsRecord) ([]contracts.NewsDay, error) {
	if len(raw) == 0 {
		return []contracts.NewsDay{}, nil
	}

	type bucket struct {
		sum      float64
		records  int
		articles int
	}
	buckets := make(map[time.Time]*bucket)
	for _, r := range raw {
		if !finite(r.Sentiment) || r.Sentiment < -1 || r.Sentiment > 1 || r.Articles < 0 {
			return []contracts.NewsDay{}, n.reject(contracts.SourceNews, r.Date, fmt.Sprintf("sentiment=%v articles=%d", r.Sentiment, r.Articles))
		}
		d := contracts.NormalizeDate(r.Date)
		b, ok := buckets[d]
		if !ok {
			b = &bucket{}
			buckets[d] = b
		}
		b.sum += r.Sentiment
		b.records++
		b.articles += r.Articles
	}

	out := make([]contracts.NewsDay, 0, len(buckets))
	for d, b := range buckets {
		out = append(out, contracts.NewsDay{
			Date:         d,
			AvgSentiment: b.sum / float64(b.records),
			ArticleCount: b.articles,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	n.logger.WithFields(map[string]interface{}{
		"source":  contracts.SourceNews,
		"records": len(raw),
		"days":    len(out),
	}).Debug("Normalized source")

	return out, nil
}

// NormalizeTrends averages same-day scores and derives trend_delta_7d
func (n *Normalizer) NormalizeTrends(raw []contracts.RawTrendRecord) ([]contracts.TrendDay, error) {
	if len(raw) == 0 {
		return []contracts.TrendDay{}, nil
	}

	samples := make([]sample, 0, len(raw))
	for _, r := range raw {
		if !finite(r.Score) || r.Score < 0 {
			return []contracts.TrendDay{}, n.reject(contracts.SourceTrends, r.Date, fmt.Sprintf("score=%v", r.Score))
		}
		samples = append(samples, sample{date: r.Date, value: r.Score})
	}

	days := aggregate(samples, false)
	deltas := trailingDelta(days, DeltaWindow)

	out := make([]contracts.TrendDay, len(days))
	for i, d := range days {
		out[i] = contracts.TrendDay{
			Date:         d.date,
			TrendScore:   d.value,
			TrendDelta7D: deltas[i],
		}
	}

	n.logger.WithFields(map[string]interface{}{
		"source":  contracts.SourceTrends,
		"records": len(raw),
		"days":    len(out),
	}).Debug("Normalized source")

	return out, nil
}

// NormalizeWiki sums same-day views and derives wiki_views_delta
func (n *Normalizer) NormalizeWiki(raw []contracts.RawViewRecord) ([]contracts.WikiDay, error) {
	if len(raw) == 0 {
		return []contracts.WikiDay{}, nil
	}

	samples := make([]sample, 0, len(raw))
	for _, r := range raw {
		if r.Views < 0 {
			return []contracts.WikiDay{}, n.reject(contracts.SourceWiki, r.Date, fmt.Sprintf("views=%d", r.Views))
		}
		samples = append(samples, sample{date: r.Date, value: float64(r.Views)})
	}

	days := aggregate(samples, true)
	deltas := trailingDelta(days, DeltaWindow)

	out := make([]contracts.WikiDay, len(days))
	for i, d := range days {
		out[i] = contracts.WikiDay{
			Date:       d.date,
			Views:      d.value,
			ViewsDelta: deltas[i],
		}
	}

	n.logger.WithFields(map[string]interface{}{
		"source":  contracts.SourceWiki,
		"records": len(raw),
		"days":    len(out),
	}).Debug("Normalized source")

	return out, nil
}

// reject logs the offending record and returns the schema error.
// One bad record degrades the whole source.
func (n *Normalizer) reject(source contracts.SourceName, date time.Time, detail string) error {
	n.logger.WithFields(map[string]interface{}{
		"source": source,
		"date":   contracts.DateKey(date),
		"detail": detail,
	}).Warn("Source schema mismatch, treating as degraded")

	return fmt.Errorf("%s record on %s (%s): %w", source, contracts.DateKey(date), detail, contracts.ErrSchemaMismatch)
}

type sample struct {
	date  time.Time
	value float64
}

// aggregate collapses samples to one per normalized date, ascending.
// sum=true sums same-day values, otherwise they are averaged.
func aggregate(samples []sample, sum bool) []sample {
	type acc struct {
		total float64
		count int
	}
	byDate := make(map[time.Time]*acc)
	for _, s := range samples {
		d := contracts.NormalizeDate(s.date)
		a, ok := byDate[d]
		if !ok {
			a = &acc{}
			byDate[d] = a
		}
		a.total += s.value
		a.count++
	}

	out := make([]sample, 0, len(byDate))
	for d, a := range byDate {
		v := a.total
		if !sum {
			v = a.total / float64(a.count)
		}
		out = append(out, sample{date: d, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

// trailingDelta returns value[t] - mean(value[max(0,t-window+1)..t])
func trailingDelta(days []sample, window int) []float64 {
	out := make([]float64, len(days))
	for t := range days {
		from := t - window + 1
		if from < 0 {
			from = 0 // min_periods = 1
		}
		var sum float64
		for _, d := range days[from : t+1] {
			sum += d.value
		}
		out[t] = days[t].value - sum/float64(t+1-from)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
