package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/httputil"
	"github.com/wonny/kassandra/pkg/logger"
)

// DefaultBaseURL is the Google Trends host
const DefaultBaseURL = "https://trends.google.com"

const (
	hostLanguage = "en-US"
	tzOffset     = "360"
	geo          = "US"
	timeSeriesID = "TIMESERIES"
)

// Client fetches interest-over-time from the Google Trends web API (explore → multiline)
// ⭐ SSOT: 검색 관심도 수집은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Trends client
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

type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

type exploreResponse struct {
	Widgets []struct {
		ID      string          `json:"id"`
		Token   string          `json:"token"`
		Request json.RawMessage `json:"request"`
	} `json:"widgets"`
}

type multilineResponse struct {
	Default struct {
		TimelineData []struct {
			Time    string `json:"time"` // unix seconds as string
			Value   []int  `json:"value"`
			HasData []bool `json:"hasData"`
		} `json:"timelineData"`
	} `json:"default"`
}

// FetchTrends returns the 0~100 interest index of keyword for [start, end]
func (c *Client) FetchTrends(ctx context.Context, keyword string, start, end time.Time) ([]contracts.RawTrendRecord, error) {
	token, widgetReq, err := c.explore(ctx, keyword, start, end)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("hl", hostLanguage)
	params.Set("tz", tzOffset)
	params.Set("req", string(widgetReq))
	params.Set("token", token)

	body, err := c.httpClient.GetBytes(ctx, c.baseURL+"/trends/api/widgetdata/multiline?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("trends multiline for %q: %w", keyword, err)
	}

	var resp multilineResponse
	if err := decodeGuarded(body, &resp); err != nil {
		return nil, fmt.Errorf("trends multiline for %q: %w", keyword, err)
	}

	records := parseTimeline(&resp)
	c.logger.WithFields(map[string]interface{}{
		"keyword": keyword,
		"count":   len(records),
	}).Debug("Fetched search trends")
	return records, nil
}

// explore resolves the TIMESERIES widget token for the keyword and window
func (c *Client) explore(ctx context.Context, keyword string, start, end time.Time) (string, json.RawMessage, error) {
	reqBody, err := json.Marshal(exploreRequest{
		ComparisonItem: []comparisonItem{{
			Keyword: keyword,
			Geo:     geo,
			Time:    contracts.DateKey(start) + " " + contracts.DateKey(end),
		}},
	})
	if err != nil {
		return "", nil, fmt.Errorf("encode explore request: %w", err)
	}

	params := url.Values{}
	params.Set("hl", hostLanguage)
	params.Set("tz", tzOffset)
	params.Set("req", string(reqBody))

	body, err := c.httpClient.GetBytes(ctx, c.baseURL+"/trends/api/explore?"+params.Encode(), nil)
	if err != nil {
		return "", nil, fmt.Errorf("trends explore for %q: %w", keyword, err)
	}

	var resp exploreResponse
	if err := decodeGuarded(body, &resp); err != nil {
		return "", nil, fmt.Errorf("trends explore for %q: %w", keyword, err)
	}
	for _, w := range resp.Widgets {
		if w.ID == timeSeriesID {
			return w.Token, w.Request, nil
		}
	}
	return "", nil, fmt.Errorf("trends explore for %q: no %s widget", keyword, timeSeriesID)
}

// decodeGuarded strips the anti-XSSI prefix (")]}'") before decoding
func decodeGuarded(body []byte, dest interface{}) error {
	idx := bytes.IndexByte(body, '{')
	if idx < 0 {
		return fmt.Errorf("response has no JSON object")
	}
	if err := json.Unmarshal(body[idx:], dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseTimeline(resp *multilineResponse) []contracts.RawTrendRecord {
	records := make([]contracts.RawTrendRecord, 0, len(resp.Default.TimelineData))
	for _, point := range resp.Default.TimelineData {
		if len(point.Value) == 0 {
			continue
		}
		if len(point.HasData) > 0 && !point.HasData[0] {
			continue
		}
		secs, err := strconv.ParseInt(point.Time, 10, 64)
		if err != nil {
			continue
		}
		records = append(records, contracts.RawTrendRecord{
			Date:  contracts.NormalizeDate(time.Unix(secs, 0).UTC()),
			Score: float64(point.Value[0]),
		})
	}
	return records
}
