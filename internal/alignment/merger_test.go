package alignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
)

func technicalTable(days int) *contracts.TechnicalTable {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	table := &contracts.TechnicalTable{Columns: []string{"daily_return", "ma_5"}}
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		table.Rows = append(table.Rows, contracts.TechnicalRow{
			Date:     d,
			Bar:      contracts.PriceBar{Date: d, Close: 100 + float64(i)},
			Features: []float64{0.01, 100},
		})
	}
	return table
}

func TestMerge_CalendarClosure(t *testing.T) {
	m := NewMerger(logger.NewNop())
	tech := technicalTable(5)

	// sentiment on non-trading dates must not add rows
	canon := contracts.CanonicalSentiment{
		News: []contracts.NewsDay{
			{Date: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), AvgSentiment: 0.9, ArticleCount: 4},
			{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), AvgSentiment: 0.3, ArticleCount: 2},
			{Date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), AvgSentiment: -0.3, ArticleCount: 1},
		},
	}

	table, err := m.Merge(tech, canon, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 5)
	for i, row := range table.Rows {
		assert.Equal(t, tech.Rows[i].Date, row.Date)
	}
	assert.Equal(t, 0.3, table.Rows[1].Sentiment.AvgNewsSentiment)
	assert.Equal(t, 2, table.Rows[1].Sentiment.NewsArticleCount)
	assert.Equal(t, contracts.SentimentValues{}, table.Rows[0].Sentiment)

	// the table carries the technical calendar
	assert.Equal(t, tech.Calendar().Dates(), table.Calendar.Dates())
	assert.False(t, table.Calendar.Contains(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)))
}

func TestMerge_RowsFollowCalendarOrder(t *testing.T) {
	tech := technicalTable(4)
	tech.Rows[0], tech.Rows[3] = tech.Rows[3], tech.Rows[0]

	table, err := NewMerger(logger.NewNop()).Merge(tech, contracts.CanonicalSentiment{}, nil)
	require.NoError(t, err)
	require.Equal(t, 4, table.Calendar.Len())
	for i, row := range table.Rows {
		assert.Equal(t, table.Calendar.At(i), row.Date)
		assert.Equal(t, 100+float64(i), row.Bar.Close)
	}
}

func TestMerge_DuplicateDatesRejected(t *testing.T) {
	tech := technicalTable(3)
	tech.Rows[2].Date = tech.Rows[1].Date

	_, err := NewMerger(logger.NewNop()).Merge(tech, contracts.CanonicalSentiment{}, nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidSeries)
}

func TestMerge_NeutralFillWhenAllSourcesEmpty(t *testing.T) {
	m := NewMerger(logger.NewNop())
	table, err := m.Merge(technicalTable(4), contracts.CanonicalSentiment{}, nil)
	require.NoError(t, err)

	assert.Equal(t, contracts.SentimentColumns, table.SentimentColumns)
	for _, row := range table.Rows {
		assert.Equal(t, contracts.SentimentValues{}, row.Sentiment)
		for _, v := range row.Sentiment.Vector() {
			assert.Equal(t, 0.0, v)
		}
	}
}

func TestMerge_PartialCoverageKeepsRowCount(t *testing.T) {
	m := NewMerger(logger.NewNop())
	tech := technicalTable(10)

	// trends only for the first half of the calendar
	var trends []contracts.TrendDay
	for i := 0; i < 5; i++ {
		trends = append(trends, contracts.TrendDay{Date: tech.Rows[i].Date, TrendScore: 50, TrendDelta7D: 1})
	}
	fused := []contracts.FusedScore{{Date: tech.Rows[2].Date, Combined: 0.7}}

	table, err := m.Merge(tech, contracts.CanonicalSentiment{Trends: trends}, fused)
	require.NoError(t, err)
	require.Len(t, table.Rows, 10)

	assert.Equal(t, 50.0, table.Rows[4].Sentiment.TrendScore)
	assert.Equal(t, 0.0, table.Rows[5].Sentiment.TrendScore)
	assert.Equal(t, 0.0, table.Rows[9].Sentiment.TrendDelta7D)
	assert.Equal(t, 0.7, table.Rows[2].Sentiment.CombinedSentiment)
}

func TestMerge_TimezoneTaggedDatesMatch(t *testing.T) {
	m := NewMerger(logger.NewNop())
	tech := technicalTable(3)

	zone := time.FixedZone("PST", -8*3600)
	wiki := []contracts.WikiDay{
		{Date: time.Date(2024, 3, 2, 23, 0, 0, 0, zone), Views: 1234, ViewsDelta: 10},
	}

	table, err := m.Merge(tech, contracts.CanonicalSentiment{Wiki: wiki}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, table.Rows[1].Sentiment.WikiViews)
	assert.Equal(t, 0.0, table.Rows[2].Sentiment.WikiViews)
}

func TestMerge_EmptyTechnicalTable(t *testing.T) {
	m := NewMerger(logger.NewNop())
	_, err := m.Merge(&contracts.TechnicalTable{}, contracts.CanonicalSentiment{}, nil)
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
}
