package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under "{prefix}:cache:{key}".
// On a disabled client every read misses and every write is dropped.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a cache namespace
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Key returns the namespaced redis key
func (c *Cache) Key(key string) string {
	return c.prefix + ":cache:" + key
}

// Get decodes the value at key into dest. A missing key is (false, nil);
// connection and decode failures are returned so callers can log them.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.Key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// 깨진 값은 다음 쓰기에서 덮어씀
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set encodes value and stores it for ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Redis().Set(ctx, c.Key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.client.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.Key(k)
	}
	return c.client.Redis().Del(ctx, full...).Err()
}

// Cache lifetimes of source series
const (
	TTLIntraday = 15 * time.Minute // 당일 포함 구간
	TTLDaily    = 6 * time.Hour    // 지난 구간 시계열
)

// SeriesKey identifies a fetched source series for one subject and date range
func SeriesKey(source, subject, start, end string) string {
	subject = strings.ReplaceAll(strings.ToLower(subject), " ", "_")
	return fmt.Sprintf("series:%s:%s:%s:%s", source, subject, start, end)
}

// PredictionKey identifies the latest prediction of a symbol
func PredictionKey(symbol string) string {
	return "prediction:latest:" + strings.ToUpper(symbol)
}
