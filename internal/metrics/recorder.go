package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/kassandra/internal/contracts"
)

const namespace = "kassandra"

// Recorder exports pipeline, source and HTTP metrics on its own registry.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	runDuration    *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
	degradedTotal  *prometheus.CounterVec
	breakerOpen    *prometheus.GaugeVec
	httpRequests   *prometheus.CounterVec
	predictedClose *prometheus.GaugeVec
}

// New creates a recorder with Go runtime and process collectors registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of prediction pipeline stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_run_duration_seconds",
				Help:      "Duration of full prediction runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of prediction runs by symbol and status",
			},
			[]string{"symbol", "status"},
		),
		degradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_degraded_total",
				Help:      "Total number of runs in which a sentiment source was degraded",
			},
			[]string{"source"},
		),
		breakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "source_breaker_open",
				Help:      "1 when the circuit breaker of a source is open or half-open",
			},
			[]string{"source"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		predictedClose: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "predicted_close",
				Help:      "Latest predicted next-day close by symbol",
			},
			[]string{"symbol"},
		),
	}
}

// ObserveStage records a pipeline stage duration
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records a finished run ("success" or "error")
func (r *Recorder) ObserveRun(symbol, status string, d time.Duration) {
	r.runsTotal.WithLabelValues(symbol, status).Inc()
	r.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

// SourceDegraded counts a degraded sentiment source
func (r *Recorder) SourceDegraded(source contracts.SourceName) {
	r.degradedTotal.WithLabelValues(string(source)).Inc()
}

// BreakerState tracks circuit breaker transitions
func (r *Recorder) BreakerState(source, state string) {
	v := 1.0
	if state == "closed" {
		v = 0
	}
	r.breakerOpen.WithLabelValues(source).Set(v)
}

// RecordPrediction publishes the latest predicted close
func (r *Recorder) RecordPrediction(symbol string, predicted float64) {
	r.predictedClose.WithLabelValues(symbol).Set(predicted)
}

// ObserveRequest counts an API request
func (r *Recorder) ObserveRequest(route string, code int) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
