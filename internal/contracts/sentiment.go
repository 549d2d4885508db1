package contracts

import "time"

// SourceName identifies a sentiment source
type SourceName string

const (
	SourceNews   SourceName = "news"
	SourceTrends SourceName = "trends"
	SourceWiki   SourceName = "wikipedia"
)

// Raw records as returned by the external collaborators.
// More than one record per date is allowed; the normalizer collapses them.

// RawNewsRecord is one scored headline (or a pre-aggregated bucket of them)
type RawNewsRecord struct {
	Date      time.Time
	Headline  string
	Sentiment float64 // [-1, 1]
	Articles  int     // usually 1
}

// RawTrendRecord is one search-interest sample
type RawTrendRecord struct {
	Date  time.Time
	Score float64 // 0~100 index
}

// RawViewRecord is one page-view sample
type RawViewRecord struct {
	Date  time.Time
	Views int64
}

// Canonical per-source rows produced by the normalizer

// NewsDay is the canonical daily news row
type NewsDay struct {
	Date         time.Time `json:"date"`
	AvgSentiment float64   `json:"avg_sentiment"`
	ArticleCount int       `json:"article_count"`
}

// TrendDay is the canonical daily search-interest row
type TrendDay struct {
	Date         time.Time `json:"date"`
	TrendScore   float64   `json:"trend_score"`
	TrendDelta7D float64   `json:"trend_delta_7d"`
}

// WikiDay is the canonical daily page-view row
type WikiDay struct {
	Date       time.Time `json:"date"`
	Views      float64   `json:"wiki_views"`
	ViewsDelta float64   `json:"wiki_views_delta"`
}

// CanonicalSentiment bundles the three normalized sources; any of them may be empty
type CanonicalSentiment struct {
	News   []NewsDay
	Trends []TrendDay
	Wiki   []WikiDay
}

// FusedScore is the combined sentiment for one date
type FusedScore struct {
	Date     time.Time `json:"date"`
	Combined float64   `json:"combined_sentiment"`
}

// Sentiment column names in the aligned table
const (
	ColAvgNewsSentiment  = "avg_news_sentiment"
	ColNewsArticleCount  = "news_article_count"
	ColTrendScore        = "trend_score"
	ColTrendDelta7D      = "trend_delta_7d"
	ColWikiViews         = "wiki_views"
	ColWikiViewsDelta    = "wiki_views_delta"
	ColCombinedSentiment = "combined_sentiment"
)

// SentimentColumns is the fixed order of sentiment columns
var SentimentColumns = []string{
	ColAvgNewsSentiment,
	ColNewsArticleCount,
	ColTrendScore,
	ColTrendDelta7D,
	ColWikiViews,
	ColWikiViewsDelta,
	ColCombinedSentiment,
}

// SentimentValues holds one row's sentiment columns. The zero value is the neutral default.
type SentimentValues struct {
	AvgNewsSentiment  float64 `json:"avg_news_sentiment"`
	NewsArticleCount  int     `json:"news_article_count"`
	TrendScore        float64 `json:"trend_score"`
	TrendDelta7D      float64 `json:"trend_delta_7d"`
	WikiViews         float64 `json:"wiki_views"`
	WikiViewsDelta    float64 `json:"wiki_views_delta"`
	CombinedSentiment float64 `json:"combined_sentiment"`
}

// Vector returns the values in SentimentColumns order
func (v SentimentValues) Vector() []float64 {
	return []float64{
		v.AvgNewsSentiment,
		float64(v.NewsArticleCount),
		v.TrendScore,
		v.TrendDelta7D,
		v.WikiViews,
		v.WikiViewsDelta,
		v.CombinedSentiment,
	}
}

// SentimentBreakdown is the outward 7-field view of the latest row
type SentimentBreakdown struct {
	NewsSentiment       float64 `json:"news_sentiment"`
	NewsArticleCount    int     `json:"news_article_count"`
	GoogleTrendsScore   float64 `json:"google_trends_score"`
	GoogleTrendsDelta7D float64 `json:"google_trends_delta_7d"`
	WikipediaViews      float64 `json:"wikipedia_views"`
	WikipediaViewsDelta float64 `json:"wikipedia_views_delta"`
	CombinedSentiment   float64 `json:"combined_sentiment"`
}

// Breakdown converts row values to the outward breakdown
func (v SentimentValues) Breakdown() SentimentBreakdown {
	return SentimentBreakdown{
		NewsSentiment:       v.AvgNewsSentiment,
		NewsArticleCount:    v.NewsArticleCount,
		GoogleTrendsScore:   v.TrendScore,
		GoogleTrendsDelta7D: v.TrendDelta7D,
		WikipediaViews:      v.WikiViews,
		WikipediaViewsDelta: v.WikiViewsDelta,
		CombinedSentiment:   v.CombinedSentiment,
	}
}
