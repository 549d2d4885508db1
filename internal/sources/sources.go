package sources

import (
	"context"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/redis"
)

// Prices guards a PriceSource
type Prices struct {
	inner contracts.PriceSource
	guard *Guard
}

// NewPrices wraps inner
func NewPrices(inner contracts.PriceSource, guard *Guard) *Prices {
	return &Prices{inner: inner, guard: guard}
}

// FetchPrices implements contracts.PriceSource
func (p *Prices) FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PriceBar, error) {
	key := redis.SeriesKey(p.guard.Name(), symbol, contracts.DateKey(start), contracts.DateKey(end))
	return fetch(ctx, p.guard, key, end, func() ([]contracts.PriceBar, error) {
		return p.inner.FetchPrices(ctx, symbol, start, end)
	})
}

// News guards a NewsSource
type News struct {
	inner contracts.NewsSource
	guard *Guard
}

// NewNews wraps inner
func NewNews(inner contracts.NewsSource, guard *Guard) *News {
	return &News{inner: inner, guard: guard}
}

// FetchNews implements contracts.NewsSource
func (n *News) FetchNews(ctx context.Context, symbol, company string, start, end time.Time) ([]contracts.RawNewsRecord, error) {
	key := redis.SeriesKey(n.guard.Name(), symbol, contracts.DateKey(start), contracts.DateKey(end))
	return fetch(ctx, n.guard, key, end, func() ([]contracts.RawNewsRecord, error) {
		return n.inner.FetchNews(ctx, symbol, company, start, end)
	})
}

// Trends guards a TrendsSource
type Trends struct {
	inner contracts.TrendsSource
	guard *Guard
}

// NewTrends wraps inner
func NewTrends(inner contracts.TrendsSource, guard *Guard) *Trends {
	return &Trends{inner: inner, guard: guard}
}

// FetchTrends implements contracts.TrendsSource
func (t *Trends) FetchTrends(ctx context.Context, keyword string, start, end time.Time) ([]contracts.RawTrendRecord, error) {
	key := redis.SeriesKey(t.guard.Name(), keyword, contracts.DateKey(start), contracts.DateKey(end))
	return fetch(ctx, t.guard, key, end, func() ([]contracts.RawTrendRecord, error) {
		return t.inner.FetchTrends(ctx, keyword, start, end)
	})
}

// Wiki guards a WikiSource
type Wiki struct {
	inner contracts.WikiSource
	guard *Guard
}

// NewWiki wraps inner
func NewWiki(inner contracts.WikiSource, guard *Guard) *Wiki {
	return &Wiki{inner: inner, guard: guard}
}

// FetchPageViews implements contracts.WikiSource
func (w *Wiki) FetchPageViews(ctx context.Context, article string, start, end time.Time) ([]contracts.RawViewRecord, error) {
	key := redis.SeriesKey(w.guard.Name(), article, contracts.DateKey(start), contracts.DateKey(end))
	return fetch(ctx, w.guard, key, end, func() ([]contracts.RawViewRecord, error) {
		return w.inner.FetchPageViews(ctx, article, start, end)
	})
}
