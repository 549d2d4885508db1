package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/kassandra/internal/ablation"
	"github.com/wonny/kassandra/internal/alignment"
	"github.com/wonny/kassandra/internal/backtest"
	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/regressor"
	"github.com/wonny/kassandra/internal/sentiment"
	"github.com/wonny/kassandra/internal/technical"
	"github.com/wonny/kassandra/pkg/logger"
)

// Sources bundles the external collaborators
type Sources struct {
	Prices  contracts.PriceSource
	News    contracts.NewsSource
	Trends  contracts.TrendsSource
	Wiki    contracts.WikiSource
	Symbols contracts.SymbolDirectory
}

// Config holds pipeline tuning
type Config struct {
	Technical  technical.Config
	Weights    sentiment.Weights
	TrainRatio float64
	Backtest   backtest.Config
	Commission float64
}

// DefaultConfig returns the defaults of every stage
func DefaultConfig() Config {
	return Config{
		Technical:  technical.DefaultConfig(),
		Weights:    sentiment.DefaultWeights(),
		TrainRatio: ablation.DefaultTrainRatio,
		Backtest:   backtest.DefaultConfig(),
		Commission: 0.001,
	}
}

// Exporter writes run artifacts
type Exporter interface {
	WriteFeatures(symbol, start, end string, table *contracts.AlignedTable) (string, error)
	WritePredictions(symbol, start, end string, log []contracts.PredictionLogEntry) (string, error)
}

// Recorder receives run telemetry
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	ObserveRun(symbol, status string, d time.Duration)
	SourceDegraded(source contracts.SourceName)
	RecordPrediction(symbol string, predicted float64)
}

// RunResult holds everything one run produced
type RunResult struct {
	Prediction      *contracts.PredictionResult
	Technical       *contracts.TechnicalTable
	Aligned         *contracts.AlignedTable
	CompletedStages []string
	Duration        time.Duration
}

// Service runs the end-to-end prediction for one symbol
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Service struct {
	sources    Sources
	cfg        Config
	regressor  regressor.Regressor
	technical  *technical.Builder
	normalizer *sentiment.Normalizer
	fuser      *sentiment.Fuser
	merger     *alignment.Merger
	trainer    *ablation.Trainer
	backtester *backtest.Engine

	exporter Exporter
	repo     contracts.PredictionRepository
	recorder Recorder

	now    func() time.Time
	logger *logger.Logger
}

// NewService wires every stage from cfg
func NewService(sources Sources, reg regressor.Regressor, cfg Config, log *logger.Logger) *Service {
	return &Service{
		sources:    sources,
		cfg:        cfg,
		regressor:  reg,
		technical:  technical.NewBuilder(cfg.Technical, log),
		normalizer: sentiment.NewNormalizer(log),
		fuser:      sentiment.NewFuser(cfg.Weights, log),
		merger:     alignment.NewMerger(log),
		trainer:    ablation.NewTrainer(reg, cfg.TrainRatio, log),
		backtester: backtest.NewEngine(reg, backtest.NewSimulator(cfg.Commission, log), log),
		now:        time.Now,
		logger:     log,
	}
}

// WithExporter enables CSV export
func (s *Service) WithExporter(e Exporter) *Service {
	s.exporter = e
	return s
}

// WithRepository enables run persistence
func (s *Service) WithRepository(r contracts.PredictionRepository) *Service {
	s.repo = r
	return s
}

// WithRecorder enables metrics
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithClock overrides the clock (tests)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run executes validate → prices → technical → sentiment → fuse → align → ablation → walk-forward
func (s *Service) Run(ctx context.Context, symbol, startDate, endDate string) (*RunResult, error) {
	startTime := time.Now()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	result, err := s.run(ctx, symbol, startDate, endDate)

	status := "success"
	if err != nil {
		status = "failed"
	}
	if s.recorder != nil {
		s.recorder.ObserveRun(symbol, status, time.Since(startTime))
	}
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
			"start":  startDate,
			"end":    endDate,
		}).Error("Prediction run failed")
		return nil, err
	}

	result.Duration = time.Since(startTime)
	if s.recorder != nil {
		s.recorder.RecordPrediction(symbol, result.Prediction.PredictedClose)
	}
	s.logger.WithFields(map[string]interface{}{
		"symbol":          symbol,
		"predicted_close": result.Prediction.PredictedClose,
		"rows":            result.Aligned.Len(),
		"stages":          len(result.CompletedStages),
		"duration":        result.Duration.String(),
	}).Info("Prediction run completed")

	return result, nil
}

func (s *Service) run(ctx context.Context, symbol, startDate, endDate string) (*RunResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", contracts.ErrInvalidRange)
	}
	start, end, err := ParseRange(startDate, endDate, s.now())
	if err != nil {
		return nil, err
	}

	result := &RunResult{CompletedStages: make([]string, 0, 8)}
	stage := func(name string, began time.Time) {
		result.CompletedStages = append(result.CompletedStages, name)
		if s.recorder != nil {
			s.recorder.ObserveStage(name, time.Since(began))
		}
	}

	company := symbol
	if s.sources.Symbols != nil {
		company = s.sources.Symbols.CompanyName(symbol)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"company": company,
		"start":   startDate,
		"end":     endDate,
	}).Info("Starting prediction run")

	// 1. prices (fatal)
	began := time.Now()
	bars, err := s.sources.Prices.FetchPrices(ctx, symbol, start, end)
	if err != nil {
		if errors.Is(err, contracts.ErrDataUnavailable) {
			return nil, fmt.Errorf("fetch prices for %s: %w", symbol, err)
		}
		return nil, fmt.Errorf("fetch prices for %s: %v: %w", symbol, err, contracts.ErrDataUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price data for %s between %s and %s: %w", symbol, startDate, endDate, contracts.ErrDataUnavailable)
	}
	stage("prices", began)

	// 2. technical features
	began = time.Now()
	tech, err := s.technical.Build(bars)
	if err != nil {
		return nil, fmt.Errorf("technical features: %w", err)
	}
	result.Technical = tech
	stage("technical", began)

	// 3. sentiment sources (never fatal)
	began = time.Now()
	canon, statuses := s.collectSentiment(ctx, symbol, company, start, end)
	stage("sentiment", began)

	// 4. fuse + align
	began = time.Now()
	fused := s.fuser.Fuse(canon)
	aligned, err := s.merger.Merge(tech, canon, fused)
	if err != nil {
		return nil, fmt.Errorf("align features: %w", err)
	}
	result.Aligned = aligned
	stage("alignment", began)

	// 5. ablation + next-close prediction
	began = time.Now()
	abl, err := s.trainer.Run(aligned)
	if err != nil {
		return nil, fmt.Errorf("ablation: %w", err)
	}
	latest, _ := aligned.Latest()
	asOf, err := aligned.TradingDays().Last()
	if err != nil {
		return nil, fmt.Errorf("align features: %w", err)
	}
	pred, err := abl.Model.Predict([][]float64{aligned.FeatureVector(aligned.Len()-1, true)})
	if err != nil {
		return nil, fmt.Errorf("predict next close: %w", err)
	}
	stage("ablation", began)

	// 6. walk-forward
	began = time.Now()
	bt, err := s.backtester.Run(ctx, aligned, s.cfg.Backtest)
	switch {
	case errors.Is(err, contracts.ErrInsufficientHistory):
		s.logger.WithFields(map[string]interface{}{
			"symbol":         symbol,
			"rows":           aligned.Len(),
			"min_train_size": s.cfg.Backtest.MinTrainSize,
		}).Warn("Range too short for walk-forward, prediction log skipped")
		bt = nil
	case err != nil:
		return nil, fmt.Errorf("walk-forward: %w", err)
	default:
		stage("walkforward", began)
	}

	prediction := &contracts.PredictionResult{
		Symbol:         symbol,
		CompanyName:    company,
		StartDate:      startDate,
		EndDate:        endDate,
		AsOf:           asOf,
		LatestClose:    latest.Bar.Close,
		PredictedClose: pred[0],
		Sentiment:      latest.Sentiment.Breakdown(),
		Ablation:       &abl.Metrics,
		Backtest:       bt,
		Sources:        statuses,
		TrainingRows:   abl.Metrics.TrainRows,
		WindowLoss:     tech.WindowLoss,
		FeatureColumns: abl.FeatureColumns,
		LastUpdated:    s.now(),
	}
	result.Prediction = prediction

	// 7. artifacts (non-fatal)
	if s.exporter != nil {
		began = time.Now()
		s.export(prediction, aligned)
		stage("export", began)
	}
	if s.repo != nil {
		began = time.Now()
		id, err := s.repo.SaveRun(ctx, prediction)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to persist prediction run")
		} else {
			prediction.RunID = id
			stage("persist", began)
		}
	}

	return result, nil
}

// collectSentiment fetches and normalizes each source sequentially.
// A failing or empty source yields an empty series and a degraded status.
func (s *Service) collectSentiment(ctx context.Context, symbol, company string, start, end time.Time) (contracts.CanonicalSentiment, []contracts.SourceStatus) {
	var canon contracts.CanonicalSentiment
	statuses := make([]contracts.SourceStatus, 0, 3)

	// news
	if s.sources.News != nil {
		raw, err := s.sources.News.FetchNews(ctx, symbol, company, start, end)
		if err == nil {
			canon.News, err = s.normalizer.NormalizeNews(raw)
		}
		statuses = append(statuses, s.status(contracts.SourceNews, len(canon.News), err))
	} else {
		statuses = append(statuses, s.status(contracts.SourceNews, 0, errors.New("not configured")))
	}

	// trends
	if s.sources.Trends != nil {
		raw, err := s.sources.Trends.FetchTrends(ctx, company, start, end)
		if err == nil {
			canon.Trends, err = s.normalizer.NormalizeTrends(raw)
		}
		statuses = append(statuses, s.status(contracts.SourceTrends, len(canon.Trends), err))
	} else {
		statuses = append(statuses, s.status(contracts.SourceTrends, 0, errors.New("not configured")))
	}

	// wikipedia
	if s.sources.Wiki != nil {
		article := company
		if s.sources.Symbols != nil {
			article = s.sources.Symbols.WikiArticle(symbol)
		}
		raw, err := s.sources.Wiki.FetchPageViews(ctx, article, start, end)
		if err == nil {
			canon.Wiki, err = s.normalizer.NormalizeWiki(raw)
		}
		statuses = append(statuses, s.status(contracts.SourceWiki, len(canon.Wiki), err))
	} else {
		statuses = append(statuses, s.status(contracts.SourceWiki, 0, errors.New("not configured")))
	}

	// 에러 시 빈 시리즈 보장
	if canon.News == nil {
		canon.News = []contracts.NewsDay{}
	}
	if canon.Trends == nil {
		canon.Trends = []contracts.TrendDay{}
	}
	if canon.Wiki == nil {
		canon.Wiki = []contracts.WikiDay{}
	}
	return canon, statuses
}

func (s *Service) status(source contracts.SourceName, rows int, err error) contracts.SourceStatus {
	st := contracts.SourceStatus{Source: source, Rows: rows}
	switch {
	case err != nil:
		st.Degraded = true
		st.Rows = 0
		st.Reason = err.Error()
	case rows == 0:
		st.Degraded = true
		st.Reason = "no data"
	}
	if st.Degraded {
		s.logger.WithFields(map[string]interface{}{
			"source": source,
			"reason": st.Reason,
		}).Warn("Sentiment source degraded, using neutral defaults")
		if s.recorder != nil {
			s.recorder.SourceDegraded(source)
		}
	}
	return st
}

func (s *Service) export(prediction *contracts.PredictionResult, aligned *contracts.AlignedTable) {
	path, err := s.exporter.WriteFeatures(prediction.Symbol, prediction.StartDate, prediction.EndDate, aligned)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to export feature table")
	} else {
		prediction.FeatureCSVPath = path
	}

	var log []contracts.PredictionLogEntry
	if prediction.Backtest != nil {
		log = prediction.Backtest.Log
	}
	path, err = s.exporter.WritePredictions(prediction.Symbol, prediction.StartDate, prediction.EndDate, log)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to export prediction log")
	} else {
		prediction.PredictionCSVPath = path
	}
}
