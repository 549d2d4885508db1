package redis

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig is one external API's request budget
type RateLimitConfig struct {
	Key    string
	Limit  int
	Window time.Duration
}

// Per-source budgets (보수적으로 설정)
var (
	YahooRateLimit = RateLimitConfig{Key: "yahoo", Limit: 5, Window: time.Second}
	NewsRateLimit  = RateLimitConfig{Key: "news", Limit: 2, Window: time.Second}
	// Google Trends answers 429 quickly under load
	TrendsRateLimit    = RateLimitConfig{Key: "trends", Limit: 10, Window: time.Minute}
	WikimediaRateLimit = RateLimitConfig{Key: "wikimedia", Limit: 50, Window: time.Second}
)

// minRetryWait bounds polling when the script reports an immediate slot
const minRetryWait = 20 * time.Millisecond

// KEYS[1] = window key
// ARGV = now_ms, window_ms, limit, member
// returns {allowed, remaining, retry_after_ms}
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local used = redis.call('ZCARD', KEYS[1])
if used < limit then
	redis.call('ZADD', KEYS[1], now, ARGV[4])
	redis.call('PEXPIRE', KEYS[1], window)
	return {1, limit - used - 1, 0}
end

local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local wait = window
if oldest[2] then
	wait = tonumber(oldest[2]) + window - now
end
return {0, 0, wait}
`)

// RateLimiter is a sliding-window limiter shared by every process using the same Redis.
// ⭐ SSOT: 외부 API 호출 한도는 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// NewRateLimiter creates a limiter whose keys live under prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Enabled reports whether limits are enforced
func (r *RateLimiter) Enabled() bool {
	return r.client.Enabled()
}

// Allow takes one slot if available and returns the remaining budget.
// Without Redis every request is allowed.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	allowed, remaining, _, err := r.take(ctx, cfg)
	return allowed, remaining, err
}

// Wait blocks until a slot is taken or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, retryAfter, err := r.take(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if retryAfter < minRetryWait {
			retryAfter = minRetryWait
		}

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RateLimiter) take(ctx context.Context, cfg RateLimitConfig) (bool, int, time.Duration, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, 0, nil
	}

	now := time.Now().UnixMilli()
	// 동일 ms 내 여러 프로세스 요청 구분용 member
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatInt(rand.Int63(), 36)

	res, err := slidingWindow.Run(ctx, r.client.Redis(), []string{r.key(cfg)},
		now, cfg.Window.Milliseconds(), cfg.Limit, member,
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("rate limit %s: unexpected reply %v", cfg.Key, res)
	}

	return res[0] == 1, int(res[1]), time.Duration(res[2]) * time.Millisecond, nil
}

func (r *RateLimiter) key(cfg RateLimitConfig) string {
	return r.prefix + ":" + cfg.Key
}
