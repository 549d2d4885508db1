package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/pipeline"
	"github.com/wonny/kassandra/pkg/logger"
)

type fakePredictor struct {
	symbol, start, end string
	err                error
}

func (f *fakePredictor) Run(ctx context.Context, symbol, startDate, endDate string) (*pipeline.RunResult, error) {
	f.symbol, f.start, f.end = symbol, startDate, endDate
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.RunResult{
		Prediction: &contracts.PredictionResult{
			Symbol:         symbol,
			PredictedClose: 101.5,
			Sources: []contracts.SourceStatus{
				{Source: contracts.SourceNews},
				{Source: contracts.SourceTrends, Degraded: true, Reason: "timeout"},
			},
		},
	}, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 14, 22, 0, 0, 0, time.UTC)
}

func TestPredictionRefreshJob(t *testing.T) {
	p := &fakePredictor{}
	job := NewPredictionRefreshJob(p, " tsla ", 90, "0 30 21 * * 1-5", logger.NewNop()).WithClock(fixedClock)

	assert.Equal(t, "prediction_refresh_tsla", job.Name())
	assert.Equal(t, "0 30 21 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "TSLA", p.symbol)
	assert.Equal(t, "2024-03-16", p.start)
	assert.Equal(t, "2024-06-14", p.end)
}

func TestPredictionRefreshJob_WindowUsesLocalDate(t *testing.T) {
	// 뉴욕 21:30 = UTC 다음날 01:30
	edt := time.FixedZone("EDT", -4*60*60)
	clock := func() time.Time { return time.Date(2024, 6, 12, 21, 30, 0, 0, edt) }

	job := NewPredictionRefreshJob(&fakePredictor{}, "TSLA", 180, "0 30 21 * * 1-5", logger.NewNop()).WithClock(clock)
	start, end := job.Window()
	assert.Equal(t, "2023-12-15", start)
	assert.Equal(t, "2024-06-12", end)

	_, _, err := pipeline.ParseRange(start, end, clock())
	assert.NoError(t, err)
}

func TestPredictionRefreshJob_Error(t *testing.T) {
	p := &fakePredictor{err: contracts.ErrDataUnavailable}
	job := NewPredictionRefreshJob(p, "AAPL", 30, "@daily", logger.NewNop()).WithClock(fixedClock)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
}

type fakePruner struct {
	cutoff  time.Time
	removed int
	err     error
}

func (f *fakePruner) Prune(cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.removed, f.err
}

func TestExportCleanupJob(t *testing.T) {
	p := &fakePruner{removed: 2}
	job := NewExportCleanupJob(p, 48*time.Hour, logger.NewNop())
	job.now = fixedClock

	assert.Equal(t, "export_cleanup", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, fixedClock().Add(-48*time.Hour), p.cutoff)

	p.err = errors.New("disk gone")
	assert.Error(t, job.Run(context.Background()))
}

func TestExportCleanupJob_Disabled(t *testing.T) {
	p := &fakePruner{}
	job := NewExportCleanupJob(p, 0, logger.NewNop())

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, p.cutoff.IsZero())
}
