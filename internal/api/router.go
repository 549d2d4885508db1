package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/kassandra/internal/api/handlers"
	"github.com/wonny/kassandra/pkg/logger"
)

// RequestObserver counts served requests
type RequestObserver interface {
	ObserveRequest(route string, code int)
}

// Routes bundles the handlers mounted by NewRouter
type Routes struct {
	Predict  *handlers.PredictHandler
	Health   *handlers.HealthHandler
	Metrics  http.Handler    // nil disables /metrics
	Observer RequestObserver // nil disables request counting
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", rootHandler).Methods("GET")
	r.HandleFunc("/health", routes.Health.Health).Methods("GET")
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods("GET")
	}

	// API
	r.HandleFunc("/api/predict", routes.Predict.Predict).Methods("POST")
	r.HandleFunc("/api/predictions/{symbol}/latest", routes.Predict.Latest).Methods("GET")

	// Downloads
	r.HandleFunc("/download/features", routes.Predict.DownloadFeatures).Methods("GET")
	r.HandleFunc("/download/predictions", routes.Predict.DownloadPredictions).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log, routes.Observer))
	r.Use(recoveryMiddleware(log))

	return r
}

// rootHandler describes the service
func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"service": "kassandra",
		"message": "Next-day close prediction from technical and sentiment features",
		"endpoints": []string{
			"GET /health",
			"POST /api/predict",
			"GET /api/predictions/{symbol}/latest",
			"GET /download/features?path=",
			"GET /download/predictions?path=",
			"GET /metrics",
		},
	})
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and counts them per route template
func loggingMiddleware(log *logger.Logger, observer RequestObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if observer != nil {
				observer.ObserveRequest(route, rec.status)
			}

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"route":    route,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
