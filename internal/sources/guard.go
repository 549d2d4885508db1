package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/pkg/logger"
	"github.com/wonny/kassandra/pkg/redis"
)

// StateObserver is notified when a source breaker changes state
type StateObserver interface {
	BreakerState(source string, state string)
}

// Options configures a Guard
type Options struct {
	Failures    int           // consecutive failures before the breaker opens
	OpenTimeout time.Duration // open → half-open
	CacheTTL    time.Duration // TTL of fully historical ranges
	Cache       *redis.Cache  // nil disables caching
	Observer    StateObserver
	Now         func() time.Time
}

// DefaultOptions returns 3 failures, 60s open timeout, 6h cache TTL, no cache
func DefaultOptions() Options {
	return Options{
		Failures:    3,
		OpenTimeout: 60 * time.Second,
		CacheTTL:    redis.TTLDaily,
		Now:         time.Now,
	}
}

// Guard wraps one external source with a circuit breaker and a series cache.
// ⭐ SSOT: 외부 소스 보호(서킷/캐시)는 여기서만
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	cache   *redis.Cache
	ttl     time.Duration
	now     func() time.Time
	logger  *logger.Logger
}

// NewGuard creates a guard for the named source
func NewGuard(name string, opts Options, log *logger.Logger) *Guard {
	failures := opts.Failures
	if failures < 1 {
		failures = 1
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0, // 닫힌 상태에서 카운트 초기화 안함
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// 데이터 없음은 소스 장애가 아님
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, contracts.ErrDataUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"source": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Source circuit breaker state changed")
			if opts.Observer != nil {
				opts.Observer.BreakerState(name, to.String())
			}
		},
	}

	return &Guard{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(st),
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		now:     now,
		logger:  log,
	}
}

// Name returns the source name
func (g *Guard) Name() string {
	return g.name
}

// State returns the breaker state ("closed", "open", "half-open")
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// fetch serves key from cache, or calls fn through the breaker and caches the result
func fetch[T any](ctx context.Context, g *Guard, key string, end time.Time, fn func() ([]T, error)) ([]T, error) {
	if g.cache != nil {
		var cached []T
		hit, err := g.cache.Get(ctx, key, &cached)
		if err != nil {
			g.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		} else if hit {
			g.logger.WithField("key", key).Debug("Cache hit")
			return cached, nil
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}
	series, _ := out.([]T)

	if g.cache != nil && len(series) > 0 {
		if err := g.cache.Set(ctx, key, series, g.ttlFor(end)); err != nil {
			g.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
		}
	}
	return series, nil
}

// ttlFor keeps ranges that reach today short-lived
func (g *Guard) ttlFor(end time.Time) time.Duration {
	today := contracts.NormalizeDate(g.now())
	if !contracts.NormalizeDate(end).Before(today) {
		return redis.TTLIntraday
	}
	if g.ttl <= 0 {
		return redis.TTLDaily
	}
	return g.ttl
}
