package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/httputil"
	"github.com/wonny/kassandra/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches daily OHLCV history from the Yahoo Finance chart API
// ⭐ SSOT: 가격 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new chart API client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// chartResponse mirrors the parts of /v8/finance/chart we read
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int    `json:"gmtoffset"` // seconds east of UTC
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// FetchPrices fetches daily bars for [start, end] inclusive.
// Any failure or an empty series is reported as contracts.ErrDataUnavailable.
func (c *Client) FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PriceBar, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", contracts.NormalizeDate(start).Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprintf("%d", contracts.NormalizeDate(end).AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return nil, fmt.Errorf("unknown ticker %q: %w", symbol, contracts.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("fetch prices for %s: %v: %w", symbol, err, contracts.ErrDataUnavailable)
	}

	bars, err := parseChart(&resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	bars = clip(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price data for %s between %s and %s: %w",
			symbol, contracts.DateKey(start), contracts.DateKey(end), contracts.ErrDataUnavailable)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched prices")
	return bars, nil
}

// parseChart converts the chart payload to bars, skipping rows with null fields
func parseChart(resp *chartResponse) ([]contracts.PriceBar, error) {
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error %s: %s: %w",
			resp.Chart.Error.Code, resp.Chart.Error.Description, contracts.ErrDataUnavailable)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result: %w", contracts.ErrDataUnavailable)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart result has no quotes: %w", contracts.ErrDataUnavailable)
	}
	quote := result.Indicators.Quote[0]
	offset := time.Duration(result.Meta.GMTOffset) * time.Second

	bars := make([]contracts.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, ok1 := at(quote.Open, i)
		high, ok2 := at(quote.High, i)
		low, ok3 := at(quote.Low, i)
		closePrice, ok4 := at(quote.Close, i)
		if !(ok1 && ok2 && ok3 && ok4) {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		// 거래소 현지 날짜 기준
		local := time.Unix(ts, 0).UTC().Add(offset)
		bars = append(bars, contracts.PriceBar{
			Date:   contracts.NormalizeDate(local),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return dedupe(bars), nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

// dedupe keeps the last bar of each date (intraday duplicates on the current session)
func dedupe(bars []contracts.PriceBar) []contracts.PriceBar {
	out := bars[:0]
	for _, bar := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(bar.Date) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	return out
}

func clip(bars []contracts.PriceBar, start, end time.Time) []contracts.PriceBar {
	from, to := contracts.NormalizeDate(start), contracts.NormalizeDate(end)
	out := make([]contracts.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Date.Before(from) || bar.Date.After(to) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
