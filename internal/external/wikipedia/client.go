package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/httputil"
	"github.com/wonny/kassandra/pkg/logger"
)

// DefaultBaseURL is the Wikimedia REST API root
const DefaultBaseURL = "https://wikimedia.org/api/rest_v1"

const timestampLayout = "2006010200"

// Client fetches daily page views from the Wikimedia pageviews API
// ⭐ SSOT: 위키백과 조회수 수집은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	project    string
}

// NewClient creates a client for the English Wikipedia project
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		project:    "en.wikipedia",
	}
}

type pageviewsResponse struct {
	Items []struct {
		Article   string `json:"article"`
		Timestamp string `json:"timestamp"`
		Views     int64  `json:"views"`
	} `json:"items"`
}

// FetchPageViews returns daily views of article for [start, end].
// An article without data (404) yields an empty series, not an error.
func (c *Client) FetchPageViews(ctx context.Context, article string, start, end time.Time) ([]contracts.RawViewRecord, error) {
	fullURL := fmt.Sprintf("%s/metrics/pageviews/per-article/%s/all-access/all-agents/%s/daily/%s/%s",
		c.baseURL, c.project, url.PathEscape(article),
		start.Format("20060102"), end.Format("20060102"))

	var resp pageviewsResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			c.logger.WithField("article", article).Warn("No page view data for article")
			return []contracts.RawViewRecord{}, nil
		}
		return nil, fmt.Errorf("page views for %q: %w", article, err)
	}

	records := make([]contracts.RawViewRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		ts, err := time.Parse(timestampLayout, item.Timestamp)
		if err != nil {
			continue
		}
		records = append(records, contracts.RawViewRecord{
			Date:  contracts.NormalizeDate(ts),
			Views: item.Views,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"article": article,
		"count":   len(records),
	}).Debug("Fetched page views")
	return records, nil
}
