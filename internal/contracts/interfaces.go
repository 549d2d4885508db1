package contracts

import (
	"context"
	"time"
)

// PriceSource fetches daily OHLCV bars for [start, end] inclusive
// ⭐ SSOT: 가격 데이터 입력 인터페이스 (실패 시 ErrDataUnavailable)
type PriceSource interface {
	FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
}

// NewsSource fetches scored headlines for a company
type NewsSource interface {
	FetchNews(ctx context.Context, symbol, company string, start, end time.Time) ([]RawNewsRecord, error)
}

// TrendsSource fetches daily search interest for a keyword
type TrendsSource interface {
	FetchTrends(ctx context.Context, keyword string, start, end time.Time) ([]RawTrendRecord, error)
}

// WikiSource fetches daily page views of an article
type WikiSource interface {
	FetchPageViews(ctx context.Context, article string, start, end time.Time) ([]RawViewRecord, error)
}

// SymbolDirectory resolves ticker symbols to search keywords
type SymbolDirectory interface {
	CompanyName(symbol string) string
	WikiArticle(symbol string) string
}

// PredictionRepository persists prediction runs
type PredictionRepository interface {
	SaveRun(ctx context.Context, result *PredictionResult) (int64, error)
	LatestRun(ctx context.Context, symbol string) (*PredictionResult, error)
}
