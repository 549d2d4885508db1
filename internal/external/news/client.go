package news

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/httputil"
	"github.com/wonny/kassandra/pkg/logger"
)

// DefaultFeedURL is the Yahoo Finance per-ticker headline feed
const DefaultFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// pubDate layouts seen in the wild
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
}

// Client fetches headlines from an RSS feed and scores them with a lexicon
// ⭐ SSOT: 뉴스 헤드라인 수집은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	feedURL    string
	scorer     *Scorer
}

// NewClient creates a new headline client
func NewClient(httpClient *httputil.Client, feedURL string, log *logger.Logger) *Client {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		feedURL:    feedURL,
		scorer:     NewScorer(),
	}
}

// Headline is one parsed feed item
type Headline struct {
	Title       string
	Description string
	Published   time.Time
}

// FetchNews returns one record per headline published within [start, end].
// The company name is used to drop items that mention neither it nor the ticker.
func (c *Client) FetchNews(ctx context.Context, symbol, company string, start, end time.Time) ([]contracts.RawNewsRecord, error) {
	params := url.Values{}
	params.Set("s", symbol)
	params.Set("region", "US")
	params.Set("lang", "en-US")
	fullURL := fmt.Sprintf("%s?%s", c.feedURL, params.Encode())

	body, err := c.httpClient.GetBytes(ctx, fullURL, map[string]string{
		"Accept": "application/rss+xml, application/xml, text/xml",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch headlines for %s: %w", symbol, err)
	}

	headlines, err := ParseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("parse headlines for %s: %w", symbol, err)
	}

	from, to := contracts.NormalizeDate(start), contracts.NormalizeDate(end)
	records := make([]contracts.RawNewsRecord, 0, len(headlines))
	for _, h := range headlines {
		day := contracts.NormalizeDate(h.Published)
		if day.Before(from) || day.After(to) {
			continue
		}
		if !mentions(h, symbol, company) {
			continue
		}
		records = append(records, contracts.RawNewsRecord{
			Date:      day,
			Headline:  h.Title,
			Sentiment: c.scorer.Score(h.Title + " " + h.Description),
			Articles:  1,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"headlines": len(headlines),
		"in_range":  len(records),
	}).Debug("Fetched news headlines")
	return records, nil
}

// ParseFeed extracts items from an RSS 2.0 document.
// Items without a parseable pubDate are skipped.
func ParseFeed(body []byte) ([]Headline, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := doc.Find("item")
	if items.Length() == 0 && doc.Find("rss, channel").Length() == 0 {
		return nil, fmt.Errorf("document is not an RSS feed")
	}

	var headlines []Headline
	items.Each(func(i int, s *goquery.Selection) {
		// HTML 파서는 태그를 소문자로 바꿈 (pubDate → pubdate)
		published, ok := parsePubDate(cleanText(s.Find("pubdate").First().Text()))
		if !ok {
			return
		}
		title := cleanText(s.Find("title").First().Text())
		if title == "" {
			return
		}
		headlines = append(headlines, Headline{
			Title:       title,
			Description: cleanText(s.Find("description").First().Text()),
			Published:   published,
		})
	})
	return headlines, nil
}

func parsePubDate(raw string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanText strips CDATA markers and collapses whitespace
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<![CDATA[")
	s = strings.TrimSuffix(s, "]]>")
	return strings.Join(strings.Fields(s), " ")
}

func mentions(h Headline, symbol, company string) bool {
	text := strings.ToLower(h.Title + " " + h.Description)
	if company != "" && strings.Contains(text, strings.ToLower(company)) {
		return true
	}
	for _, tok := range tokenize(text) {
		if tok == strings.ToLower(symbol) {
			return true
		}
	}
	// 티커 전용 피드이므로 언급이 없어도 유지
	return company == ""
}
