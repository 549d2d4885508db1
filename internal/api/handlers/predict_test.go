package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/export"
	"github.com/wonny/kassandra/internal/pipeline"
	"github.com/wonny/kassandra/internal/store"
	"github.com/wonny/kassandra/pkg/logger"
)

type fakePredictor struct {
	err      error
	gotStock string
}

func (f *fakePredictor) Run(ctx context.Context, symbol, startDate, endDate string) (*pipeline.RunResult, error) {
	f.gotStock = symbol
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.RunResult{
		Prediction: &contracts.PredictionResult{
			Symbol:         strings.ToUpper(symbol),
			StartDate:      startDate,
			EndDate:        endDate,
			PredictedClose: 201.5,
			Sentiment:      contracts.SentimentBreakdown{CombinedSentiment: 0.12},
			LastUpdated:    time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC),
		},
	}, nil
}

func newHandler(t *testing.T, predictor Predictor) (*PredictHandler, *export.Writer, *store.MemoryRepository) {
	t.Helper()
	writer := export.NewWriter(t.TempDir(), logger.NewNop())
	repo := store.NewMemoryRepository()
	return NewPredictHandler(predictor, repo, writer, logger.NewNop()), writer, repo
}

func TestPredict_Success(t *testing.T) {
	predictor := &fakePredictor{}
	h, _, _ := newHandler(t, predictor)

	body := `{"stock":"tsla","start_date":"2024-01-01","end_date":"2024-06-30"}`
	rec := httptest.NewRecorder()
	h.Predict(rec, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tsla", predictor.gotStock)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 201.5, got["predicted_close"])
	assert.Equal(t, "2024-06-30T12:00:00Z", got["last_updated"])

	breakdown, ok := got["sentiment_breakdown"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{
		"news_sentiment", "news_article_count", "google_trends_score", "google_trends_delta_7d",
		"wikipedia_views", "wikipedia_views_delta", "combined_sentiment",
	} {
		assert.Contains(t, breakdown, key)
	}
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid range", fmt.Errorf("bad: %w", contracts.ErrInvalidRange), http.StatusBadRequest},
		{"unknown ticker", fmt.Errorf("prices: %w", contracts.ErrDataUnavailable), http.StatusNotFound},
		{"short history", fmt.Errorf("technical: %w", contracts.ErrInsufficientHistory), http.StatusUnprocessableEntity},
		{"too few rows", fmt.Errorf("ablation: %w", contracts.ErrInsufficientData), http.StatusUnprocessableEntity},
		{"flat prices", fmt.Errorf("ablation: %w", contracts.ErrZeroVariance), http.StatusUnprocessableEntity},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newHandler(t, &fakePredictor{err: tt.err})
			body := `{"stock":"TSLA","start_date":"2024-01-01","end_date":"2024-06-30"}`
			rec := httptest.NewRecorder()
			h.Predict(rec, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestPredict_BadBody(t *testing.T) {
	h, _, _ := newHandler(t, &fakePredictor{})

	for _, body := range []string{`not json`, `{"stock":""}`, `{"stock":"TSLA","extra":1}`} {
		rec := httptest.NewRecorder()
		h.Predict(rec, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestLatest(t *testing.T) {
	h, _, repo := newHandler(t, &fakePredictor{})
	router := mux.NewRouter()
	router.HandleFunc("/api/predictions/{symbol}/latest", h.Latest)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/TSLA/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := repo.SaveRun(context.Background(), &contracts.PredictionResult{Symbol: "TSLA", PredictedClose: 190})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/tsla/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"predicted_close":190`)
}

func TestDownload(t *testing.T) {
	h, writer, _ := newHandler(t, &fakePredictor{})
	log := []contracts.PredictionLogEntry{{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Actual: 1, Predicted: 2}}
	path, err := writer.WritePredictions("TSLA", "2024-01-01", "2024-06-30", log)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.DownloadPredictions(rec, httptest.NewRequest(http.MethodGet, "/download/predictions?path="+path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "predictions_TSLA_2024-01-01_to_2024-06-30.csv")
	assert.Contains(t, rec.Body.String(), "Actual_Closing_Price")

	// a prediction file is not served by the features endpoint
	rec = httptest.NewRecorder()
	h.DownloadFeatures(rec, httptest.NewRequest(http.MethodGet, "/download/features?path="+path, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownload_Rejections(t *testing.T) {
	h, _, _ := newHandler(t, &fakePredictor{})

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"?path=../../etc/passwd", http.StatusForbidden},
		{"?path=/etc/passwd", http.StatusForbidden},
		{"?path=predictions_NONE.csv", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.DownloadPredictions(rec, httptest.NewRequest(http.MethodGet, "/download/predictions"+tt.query, nil))
		assert.Equal(t, tt.want, rec.Code, tt.query)
	}
}

func TestHealth(t *testing.T) {
	ok := NewHealthHandler("kassandra", map[string]Check{
		"redis": func(ctx context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	ok.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	bad := NewHealthHandler("kassandra", map[string]Check{
		"database": func(ctx context.Context) error { return fmt.Errorf("connection refused") },
	})
	rec = httptest.NewRecorder()
	bad.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
