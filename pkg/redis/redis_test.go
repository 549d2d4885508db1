package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Empty(t, client.Addr())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}}

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "kassandra")
	assert.False(t, limiter.Enabled())

	// 비활성 상태에서는 모두 허용
	allowed, remaining, err := limiter.Allow(context.Background(), TrendsRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, TrendsRateLimit.Limit, remaining)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, limiter.Wait(ctx, YahooRateLimit))
	assert.Equal(t, "kassandra:yahoo", limiter.key(YahooRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "kassandra")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", []int{1, 2}, TTLDaily))

	var result []int
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key", "other"))
}

func TestCacheKeys(t *testing.T) {
	cache := NewCache(disabledClient(t), "kassandra:series")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SeriesKey", SeriesKey("trends", "Tesla Inc", "2024-01-01", "2024-06-30"), "series:trends:tesla_inc:2024-01-01:2024-06-30"},
		{"PredictionKey", PredictionKey("nvda"), "prediction:latest:NVDA"},
		{"Namespaced", cache.Key("x"), "kassandra:series:cache:x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
