package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/pipeline"
	"github.com/wonny/kassandra/pkg/logger"
)

// Predictor runs one end-to-end prediction
type Predictor interface {
	Run(ctx context.Context, symbol, startDate, endDate string) (*pipeline.RunResult, error)
}

// PredictionRefreshJob re-runs the pipeline for one symbol over a trailing window
type PredictionRefreshJob struct {
	predictor    Predictor
	symbol       string
	lookbackDays int
	schedule     string
	now          func() time.Time
	logger       *logger.Logger
}

// NewPredictionRefreshJob creates a refresh job for symbol on the given cron schedule
func NewPredictionRefreshJob(predictor Predictor, symbol string, lookbackDays int, schedule string, log *logger.Logger) *PredictionRefreshJob {
	return &PredictionRefreshJob{
		predictor:    predictor,
		symbol:       strings.ToUpper(strings.TrimSpace(symbol)),
		lookbackDays: lookbackDays,
		schedule:     schedule,
		now:          time.Now,
		logger:       log,
	}
}

// WithClock overrides the clock used to pick the window
func (j *PredictionRefreshJob) WithClock(now func() time.Time) *PredictionRefreshJob {
	j.now = now
	return j
}

// Name returns the job name
func (j *PredictionRefreshJob) Name() string {
	return "prediction_refresh_" + strings.ToLower(j.symbol)
}

// Schedule returns the cron schedule (weekdays after the US close by default)
func (j *PredictionRefreshJob) Schedule() string {
	return j.schedule
}

// Window returns [today-lookback, today] as YYYY-MM-DD.
// "today" is the clock's own calendar date, the same one the pipeline validates against.
func (j *PredictionRefreshJob) Window() (string, string) {
	end := contracts.NormalizeDate(j.now())
	start := end.AddDate(0, 0, -j.lookbackDays)
	return start.Format(contracts.DateLayout), end.Format(contracts.DateLayout)
}

// Run executes one refresh
func (j *PredictionRefreshJob) Run(ctx context.Context) error {
	start, end := j.Window()
	j.logger.WithFields(map[string]interface{}{
		"symbol": j.symbol,
		"start":  start,
		"end":    end,
	}).Info("Starting scheduled prediction refresh")

	result, err := j.predictor.Run(ctx, j.symbol, start, end)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", j.symbol, err)
	}

	degraded := make([]string, 0)
	for _, src := range result.Prediction.Sources {
		if src.Degraded {
			degraded = append(degraded, string(src.Source))
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol":          j.symbol,
		"predicted_close": result.Prediction.PredictedClose,
		"latest_close":    result.Prediction.LatestClose,
		"degraded":        strings.Join(degraded, ","),
		"duration":        result.Duration.Seconds(),
	}).Info("Prediction refresh completed")

	return nil
}
