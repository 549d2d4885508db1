package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, run history)
	Database DatabaseConfig

	// Redis (optional, source cache + rate limit)
	Redis RedisConfig

	// External data sources
	Sources SourcesConfig

	// Prediction pipeline
	Pipeline PipelineConfig

	// Scheduled refresh
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// SourcesConfig holds external data source settings
type SourcesConfig struct {
	YahooBaseURL     string
	NewsFeedURL      string
	TrendsBaseURL    string
	WikimediaBaseURL string
	UserAgent        string
	Timeout          time.Duration
	RatePerSecond    float64
	SymbolFile       string        // optional YAML override of the ticker directory
	BreakerFailures  int           // consecutive failures before a source circuit opens
	CacheTTL         time.Duration // redis cache TTL of fetched series
}

// PipelineConfig holds feature, model and evaluation settings
type PipelineConfig struct {
	MAWindows         []int
	VolatilityWindows []int
	MinTrainSize      int
	TrainRatio        float64

	WeightNews   float64
	WeightTrends float64
	WeightWiki   float64

	Regressor      string // random_forest, ridge
	ForestTrees    int
	ForestMaxDepth int
	ForestMinLeaf  int
	ModelSeed      int64
	RidgeAlpha     float64

	BacktestWorkers int
	Commission      float64
	OutputDir       string
}

// ScheduleConfig holds the daily refresh job settings
type ScheduleConfig struct {
	Enabled      bool
	Symbol       string
	Cron         string
	LookbackDays int
	Retention    time.Duration // exported CSVs older than this are pruned
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Sources
		Sources: SourcesConfig{
			YahooBaseURL:     getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			NewsFeedURL:      getEnv("NEWS_FEED_URL", "https://feeds.finance.yahoo.com/rss/2.0/headline"),
			TrendsBaseURL:    getEnv("TRENDS_BASE_URL", "https://trends.google.com"),
			WikimediaBaseURL: getEnv("WIKIMEDIA_BASE_URL", "https://wikimedia.org/api/rest_v1"),
			UserAgent:        getEnv("SOURCE_USER_AGENT", "Kassandra/1.0 (stock research; contact@kassandra.local)"),
			Timeout:          getEnvAsDuration("SOURCE_TIMEOUT", "15s"),
			RatePerSecond:    getEnvAsFloat("SOURCE_RATE_PER_SECOND", 2),
			SymbolFile:       getEnv("SYMBOL_FILE", ""),
			BreakerFailures:  getEnvAsInt("SOURCE_BREAKER_FAILURES", 3),
			CacheTTL:         getEnvAsDuration("SOURCE_CACHE_TTL", "6h"),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			MAWindows:         getEnvAsIntList("MA_WINDOWS", []int{5, 10}),
			VolatilityWindows: getEnvAsIntList("VOLATILITY_WINDOWS", []int{5}),
			MinTrainSize:      getEnvAsInt("MIN_TRAIN_SIZE", 30),
			TrainRatio:        getEnvAsFloat("TRAIN_RATIO", 0.8),
			WeightNews:        getEnvAsFloat("FUSION_WEIGHT_NEWS", 0.4),
			WeightTrends:      getEnvAsFloat("FUSION_WEIGHT_TRENDS", 0.3),
			WeightWiki:        getEnvAsFloat("FUSION_WEIGHT_WIKI", 0.3),
			Regressor:         getEnv("REGRESSOR", "random_forest"),
			ForestTrees:       getEnvAsInt("FOREST_TREES", 100),
			ForestMaxDepth:    getEnvAsInt("FOREST_MAX_DEPTH", 0),
			ForestMinLeaf:     getEnvAsInt("FOREST_MIN_LEAF", 1),
			ModelSeed:         int64(getEnvAsInt("MODEL_SEED", 42)),
			RidgeAlpha:        getEnvAsFloat("RIDGE_ALPHA", 1.0),
			BacktestWorkers:   getEnvAsInt("BACKTEST_WORKERS", 4),
			Commission:        getEnvAsFloat("BACKTEST_COMMISSION", 0.001),
			OutputDir:         getEnv("OUTPUT_DIR", "output"),
		},

		// Schedule
		Schedule: ScheduleConfig{
			Enabled:      getEnvAsBool("SCHEDULE_ENABLED", false),
			Symbol:       getEnv("SCHEDULE_SYMBOL", "TSLA"),
			Cron:         getEnv("SCHEDULE_CRON", "0 30 21 * * 1-5"),
			LookbackDays: getEnvAsInt("SCHEDULE_LOOKBACK_DAYS", 180),
			Retention:    getEnvAsDuration("EXPORT_RETENTION", "720h"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	p := c.Pipeline
	if len(p.MAWindows) == 0 {
		return fmt.Errorf("MA_WINDOWS must list at least one window")
	}
	for _, k := range p.MAWindows {
		if k < 1 {
			return fmt.Errorf("MA_WINDOWS entries must be >= 1, got %d", k)
		}
	}
	for _, k := range p.VolatilityWindows {
		if k < 2 {
			return fmt.Errorf("VOLATILITY_WINDOWS entries must be >= 2, got %d", k)
		}
	}
	if p.MinTrainSize < 1 {
		return fmt.Errorf("MIN_TRAIN_SIZE must be positive")
	}
	if p.TrainRatio <= 0 || p.TrainRatio >= 1 {
		return fmt.Errorf("TRAIN_RATIO must be in (0, 1), got %v", p.TrainRatio)
	}
	if p.WeightNews < 0 || p.WeightTrends < 0 || p.WeightWiki < 0 {
		return fmt.Errorf("FUSION_WEIGHT_* must be non-negative")
	}
	if p.WeightNews+p.WeightTrends+p.WeightWiki == 0 {
		return fmt.Errorf("FUSION_WEIGHT_* must not all be zero")
	}
	switch strings.ToLower(p.Regressor) {
	case "random_forest", "ridge":
	default:
		return fmt.Errorf("REGRESSOR must be one of: random_forest, ridge")
	}
	if p.ForestTrees < 1 {
		return fmt.Errorf("FOREST_TREES must be positive")
	}
	if p.BacktestWorkers < 1 {
		return fmt.Errorf("BACKTEST_WORKERS must be positive")
	}
	if c.Schedule.LookbackDays < 2 {
		return fmt.Errorf("SCHEDULE_LOOKBACK_DAYS must be at least 2")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsIntList parses "5,10,20"; any bad entry falls back to the default
func getEnvAsIntList(key string, defaultValue []int) []int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return defaultValue
		}
		values = append(values, v)
	}

	return values
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
