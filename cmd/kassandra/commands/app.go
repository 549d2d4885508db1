package commands

import (
	"context"
	"fmt"

	"github.com/wonny/kassandra/internal/backtest"
	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/export"
	"github.com/wonny/kassandra/internal/external/news"
	"github.com/wonny/kassandra/internal/external/symbols"
	"github.com/wonny/kassandra/internal/external/trends"
	"github.com/wonny/kassandra/internal/external/wikipedia"
	"github.com/wonny/kassandra/internal/external/yahoo"
	"github.com/wonny/kassandra/internal/metrics"
	"github.com/wonny/kassandra/internal/pipeline"
	"github.com/wonny/kassandra/internal/regressor"
	"github.com/wonny/kassandra/internal/sentiment"
	"github.com/wonny/kassandra/internal/sources"
	"github.com/wonny/kassandra/internal/store"
	"github.com/wonny/kassandra/internal/technical"
	"github.com/wonny/kassandra/pkg/config"
	"github.com/wonny/kassandra/pkg/database"
	"github.com/wonny/kassandra/pkg/httputil"
	"github.com/wonny/kassandra/pkg/logger"
	"github.com/wonny/kassandra/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	redis     *redis.Client
	db        *database.DB // nil without DATABASE_URL
	metrics   *metrics.Recorder
	exporter  *export.Writer
	repo      contracts.PredictionRepository
	regressor regressor.Regressor
	service   *pipeline.Service
}

// newApp loads config, applies flag overrides and wires sources → pipeline → storage
func newApp(ctx context.Context, overrides ...func(*config.Config)) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	for _, override := range overrides {
		override(cfg)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// 3. Redis (disabled config = no-op client)
	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 4. Database (optional)
	if cfg.Database.Enabled() {
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		applied, err := a.db.Migrate(ctx, store.Migrations())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.WithField("migrations", len(applied)).Info("Connected to database")
	}

	// 5. Symbol directory
	directory := symbols.NewDirectory()
	if cfg.Sources.SymbolFile != "" {
		directory, err = symbols.Load(cfg.Sources.SymbolFile)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("load symbol file: %w", err)
		}
	}

	// 6. External sources, each behind its own rate limit, breaker and cache
	srcs := a.buildSources(directory)

	// 7. Regressor
	a.regressor, err = regressor.New(regressor.Config{
		Kind:       cfg.Pipeline.Regressor,
		Trees:      cfg.Pipeline.ForestTrees,
		MaxDepth:   cfg.Pipeline.ForestMaxDepth,
		MinLeaf:    cfg.Pipeline.ForestMinLeaf,
		Seed:       cfg.Pipeline.ModelSeed,
		RidgeAlpha: cfg.Pipeline.RidgeAlpha,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create regressor: %w", err)
	}

	// 8. Storage: postgres or memory, redis read-through on top
	var repo contracts.PredictionRepository = store.NewMemoryRepository()
	if a.db != nil {
		repo = store.NewRunRepository(a.db.Pool)
	}
	a.repo = store.NewCachedRepository(repo, redis.NewCache(a.redis, "kassandra:runs"), redis.TTLDaily, log)

	// 9. Pipeline
	a.exporter = export.NewWriter(cfg.Pipeline.OutputDir, log)
	a.service = pipeline.NewService(srcs, a.regressor, pipelineConfig(cfg), log).
		WithExporter(a.exporter).
		WithRepository(a.repo).
		WithRecorder(a.metrics)

	return a, nil
}

// buildSources wraps every client with a rate limit, a circuit breaker and a series cache
func (a *app) buildSources(directory *symbols.Directory) pipeline.Sources {
	cfg := a.cfg
	limiter := redis.NewRateLimiter(a.redis, "kassandra:ratelimit")
	cache := redis.NewCache(a.redis, "kassandra:series")

	clientFor := func(limit redis.RateLimitConfig) *httputil.Client {
		return httputil.New(cfg, a.log).WithRateLimiter(limiter, limit)
	}

	opts := sources.DefaultOptions()
	opts.Failures = cfg.Sources.BreakerFailures
	opts.CacheTTL = cfg.Sources.CacheTTL
	opts.Cache = cache
	opts.Observer = a.metrics

	return pipeline.Sources{
		Prices: sources.NewPrices(
			yahoo.NewClient(clientFor(redis.YahooRateLimit), cfg.Sources.YahooBaseURL, a.log),
			sources.NewGuard("yahoo", opts, a.log),
		),
		News: sources.NewNews(
			news.NewClient(clientFor(redis.NewsRateLimit), cfg.Sources.NewsFeedURL, a.log),
			sources.NewGuard(string(contracts.SourceNews), opts, a.log),
		),
		Trends: sources.NewTrends(
			trends.NewClient(clientFor(redis.TrendsRateLimit), cfg.Sources.TrendsBaseURL, a.log),
			sources.NewGuard(string(contracts.SourceTrends), opts, a.log),
		),
		Wiki: sources.NewWiki(
			wikipedia.NewClient(clientFor(redis.WikimediaRateLimit), cfg.Sources.WikimediaBaseURL, a.log),
			sources.NewGuard(string(contracts.SourceWiki), opts, a.log),
		),
		Symbols: directory,
	}
}

// pipelineConfig maps env settings onto stage configs
func pipelineConfig(cfg *config.Config) pipeline.Config {
	p := cfg.Pipeline
	return pipeline.Config{
		Technical: technical.Config{
			MAWindows:         p.MAWindows,
			VolatilityWindows: p.VolatilityWindows,
		},
		Weights: sentiment.Weights{
			News:   p.WeightNews,
			Trends: p.WeightTrends,
			Wiki:   p.WeightWiki,
		},
		TrainRatio: p.TrainRatio,
		Backtest: backtest.Config{
			MinTrainSize:     p.MinTrainSize,
			Workers:          p.BacktestWorkers,
			IncludeSentiment: true,
		},
		Commission: p.Commission,
	}
}

// close releases connections
func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
