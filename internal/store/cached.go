package store

import (
	"context"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
	"github.com/wonny/kassandra/pkg/redis"
)

// CachedRepository serves LatestRun from Redis in front of another repository
type CachedRepository struct {
	inner  contracts.PredictionRepository
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedRepository wraps inner; a disabled cache makes it a pass-through
func NewCachedRepository(inner contracts.PredictionRepository, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedRepository {
	return &CachedRepository{inner: inner, cache: cache, ttl: ttl, logger: log}
}

// SaveRun writes through and refreshes the cached latest run
func (c *CachedRepository) SaveRun(ctx context.Context, result *contracts.PredictionResult) (int64, error) {
	id, err := c.inner.SaveRun(ctx, result)
	if err != nil {
		return 0, err
	}

	stored := *result
	stored.RunID = id
	key := redis.PredictionKey(result.Symbol)
	if err := c.cache.Set(ctx, key, &stored, c.ttl); err != nil {
		c.logger.WithError(err).WithField("symbol", result.Symbol).Warn("Failed to cache prediction run")
		// 이전 실행이 캐시에 남지 않도록
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.WithError(err).WithField("symbol", result.Symbol).Warn("Failed to evict cached prediction run")
		}
	}
	return id, nil
}

// LatestRun tries the cache first
func (c *CachedRepository) LatestRun(ctx context.Context, symbol string) (*contracts.PredictionResult, error) {
	var cached contracts.PredictionResult
	hit, err := c.cache.Get(ctx, redis.PredictionKey(symbol), &cached)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to read cached prediction run")
	}
	if hit {
		return &cached, nil
	}
	return c.inner.LatestRun(ctx, symbol)
}
