package alignment

import (
	"fmt"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

// Merger aligns sentiment series onto the trading calendar of a technical table
// ⭐ SSOT: 캘린더 = 기술적 테이블 날짜. 매칭 안 되는 셀은 중립값(0)
type Merger struct {
	logger *logger.Logger
}

// NewMerger creates a new feature alignment engine
func NewMerger(log *logger.Logger) *Merger {
	return &Merger{logger: log}
}

// Merge left-joins every canonical source and the fused score onto the technical table's
// trading calendar. The output has exactly the calendar's dates, in calendar order,
// and carries the calendar for the later stages.
func (m *Merger) Merge(
	technical *contracts.TechnicalTable,
	canon contracts.CanonicalSentiment,
	fused []contracts.FusedScore,
) (*contracts.AlignedTable, error) {
	if technical == nil || len(technical.Rows) == 0 {
		return nil, fmt.Errorf("merge features: empty technical table: %w", contracts.ErrInsufficientHistory)
	}

	cal := technical.Calendar()
	if cal.Len() != len(technical.Rows) {
		return nil, fmt.Errorf("merge features: %d technical rows on %d distinct dates: %w",
			len(technical.Rows), cal.Len(), contracts.ErrInvalidSeries)
	}
	byDate := make(map[time.Time]contracts.TechnicalRow, len(technical.Rows))
	for _, row := range technical.Rows {
		byDate[contracts.NormalizeDate(row.Date)] = row
	}

	news := make(map[time.Time]contracts.NewsDay, len(canon.News))
	for _, r := range canon.News {
		news[contracts.NormalizeDate(r.Date)] = r
	}
	trends := make(map[time.Time]contracts.TrendDay, len(canon.Trends))
	for _, r := range canon.Trends {
		trends[contracts.NormalizeDate(r.Date)] = r
	}
	wiki := make(map[time.Time]contracts.WikiDay, len(canon.Wiki))
	for _, r := range canon.Wiki {
		wiki[contracts.NormalizeDate(r.Date)] = r
	}
	combined := make(map[time.Time]float64, len(fused))
	for _, r := range fused {
		combined[contracts.NormalizeDate(r.Date)] = r.Combined
	}

	table := &contracts.AlignedTable{
		TechnicalColumns: append([]string{}, technical.Columns...),
		SentimentColumns: append([]string{}, contracts.SentimentColumns...),
		Rows:             make([]contracts.AlignedRow, cal.Len()),
		Calendar:         cal,
	}

	matched := 0
	for i, d := range cal.Dates() {
		row := byDate[d]

		var values contracts.SentimentValues
		hit := false
		if r, ok := news[d]; ok {
			values.AvgNewsSentiment = r.AvgSentiment
			values.NewsArticleCount = r.ArticleCount
			hit = true
		}
		if r, ok := trends[d]; ok {
			values.TrendScore = r.TrendScore
			values.TrendDelta7D = r.TrendDelta7D
			hit = true
		}
		if r, ok := wiki[d]; ok {
			values.WikiViews = r.Views
			values.WikiViewsDelta = r.ViewsDelta
			hit = true
		}
		if c, ok := combined[d]; ok {
			values.CombinedSentiment = c
			hit = true
		}
		if hit {
			matched++
		}

		table.Rows[i] = contracts.AlignedRow{
			Date:      d,
			Bar:       row.Bar,
			Technical: append([]float64{}, row.Features...),
			Sentiment: values,
		}
	}

	m.logger.WithFields(map[string]interface{}{
		"rows":          len(table.Rows),
		"matched_rows":  matched,
		"neutral_rows":  len(table.Rows) - matched,
		"total_columns": len(table.TechnicalColumns) + len(table.SentimentColumns),
	}).Info("Aligned features to trading calendar")

	return table, nil
}
