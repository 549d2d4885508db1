package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/kassandra/pkg/config"
	"github.com/wonny/kassandra/pkg/logger"
	"github.com/wonny/kassandra/pkg/redis"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// RetryConfig controls backoff on 429/5xx and transport errors
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Client wraps http.Client for the market and sentiment sources.
// Every request waits for a rate-limit slot, then retries with backoff.
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	http      *http.Client
	log       *logger.Logger
	userAgent string
	retry     RetryConfig

	shared      *redis.RateLimiter // Redis sliding window (여러 프로세스 공유)
	sharedLimit redis.RateLimitConfig
	local       *rate.Limiter // Redis 비활성 시 프로세스 내 제한
}

// New creates a client from the source settings
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.Sources.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		http:      &http.Client{Timeout: timeout},
		log:       log,
		userAgent: cfg.Sources.UserAgent,
		retry: RetryConfig{
			Enabled:      true,
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
		},
	}
	if rps := cfg.Sources.RatePerSecond; rps > 0 {
		c.local = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return c
}

// WithRetry sets the retry budget and first backoff delay
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retry.Enabled = true
	c.retry.MaxRetries = maxRetries
	c.retry.InitialDelay = initialDelay
	return c
}

// DisableRetry makes every request a single attempt
func (c *Client) DisableRetry() *Client {
	c.retry.Enabled = false
	return c
}

// WithRateLimiter shares a Redis sliding window with other processes.
// The in-process limiter still applies when Redis is disabled.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, limit redis.RateLimitConfig) *Client {
	c.shared = limiter
	c.sharedLimit = limit
	return c
}

// Get performs a GET with optional extra headers. Non-2xx responses are returned as is.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	resp, err := c.send(req)
	fields := map[string]interface{}{
		"url":      url,
		"duration": time.Since(start),
	}
	if err != nil {
		c.log.WithFields(fields).WithError(err).Error("HTTP request failed")
		return nil, err
	}

	fields["status_code"] = resp.StatusCode
	c.log.WithFields(fields).Debug("HTTP request completed")
	return resp, nil
}

// GetBytes performs a GET and returns the body of a 2xx response
func (c *Client) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	resp, err := c.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}
	return body, nil
}

// GetJSON performs a GET and decodes a 2xx JSON body into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	body, err := c.GetBytes(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode JSON from %s: %w", url, err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.shared != nil && c.shared.Enabled() {
		return c.shared.Wait(ctx, c.sharedLimit)
	}
	if c.local != nil {
		return c.local.Wait(ctx)
	}
	return nil
}

// send runs the attempt loop. The last response (even a retryable status) is handed back.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	attempts := 1
	if c.retry.Enabled {
		attempts += c.retry.MaxRetries
	}
	delay := c.retry.InitialDelay

	for attempt := 1; ; attempt++ {
		resp, err := c.http.Do(req)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= attempts {
			return resp, err
		}

		wait := delay
		if resp != nil {
			if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				wait = min(ra, c.retry.MaxDelay)
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		c.log.WithFields(map[string]interface{}{
			"url":     req.URL.String(),
			"attempt": attempt,
			"delay":   wait,
		}).Warn("Retrying HTTP request")

		timer := time.NewTimer(wait)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		delay = min(delay*2, c.retry.MaxDelay)
	}
}

// retryAfter parses the seconds form of a Retry-After header
func retryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// IsRetryableError reports whether a status is worth another attempt (429, 5xx)
func IsRetryableError(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}
