package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kassandra/internal/api/handlers"
	"github.com/wonny/kassandra/internal/contracts"
	"github.com/wonny/kassandra/internal/export"
	"github.com/wonny/kassandra/internal/pipeline"
	"github.com/wonny/kassandra/internal/store"
	"github.com/wonny/kassandra/pkg/logger"
)

type stubPredictor struct{}

func (stubPredictor) Run(ctx context.Context, symbol, startDate, endDate string) (*pipeline.RunResult, error) {
	return &pipeline.RunResult{Prediction: &contracts.PredictionResult{Symbol: symbol, PredictedClose: 100}}, nil
}

type panicPredictor struct{}

func (panicPredictor) Run(ctx context.Context, symbol, startDate, endDate string) (*pipeline.RunResult, error) {
	panic("unexpected")
}

type countingObserver struct {
	mu     sync.Mutex
	routes []string
}

func (c *countingObserver) ObserveRequest(route string, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, route)
}

func newRouter(t *testing.T, predictor handlers.Predictor, observer RequestObserver) http.Handler {
	t.Helper()
	predict := handlers.NewPredictHandler(
		predictor,
		store.NewMemoryRepository(),
		export.NewWriter(t.TempDir(), logger.NewNop()),
		logger.NewNop(),
	)
	return NewRouter(Routes{
		Predict: predict,
		Health:  handlers.NewHealthHandler("kassandra", nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
		Observer: observer,
	}, logger.NewNop())
}

func TestRouter_Endpoints(t *testing.T) {
	observer := &countingObserver{}
	router := newRouter(t, stubPredictor{}, observer)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/predict", `{"stock":"TSLA","start_date":"2024-01-01","end_date":"2024-06-30"}`, http.StatusOK},
		{http.MethodGet, "/api/predict", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/predictions/TSLA/latest", "", http.StatusNotFound},
		{http.MethodDelete, "/api/predictions/TSLA/latest", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/download/features", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Contains(t, observer.routes, "/api/predictions/{symbol}/latest")
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	router := newRouter(t, panicPredictor{}, nil)

	rec := httptest.NewRecorder()
	body := `{"stock":"TSLA","start_date":"2024-01-01","end_date":"2024-06-30"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
