// Package metrics exposes Prometheus collectors for the prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction modes.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// Prediction outcome labels.
const (
	StatusSuccess      = "success"
	StatusMissingField = "missing_field"
	StatusInvalidField = "invalid_field"
	StatusArithmetic   = "arithmetic"
	StatusScoring      = "scoring"
)

var (
	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_predictions_total",
			Help: "Total number of scored records, labeled by mode and outcome.",
		},
		[]string{"mode", "status"},
	)

	predictedSalary = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salary_predicted_monthly_usd",
			Help:    "Distribution of predicted monthly salaries after clamping.",
			Buckets: []float64{0, 1000, 2000, 3000, 4000, 5000, 6000, 8000, 10000, 15000},
		},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salary_batch_records",
			Help:    "Number of records per batch request.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_prediction_cache_lookups_total",
			Help: "Prediction cache lookups, labeled by result.",
		},
		[]string{"result"},
	)

	modelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salary_model_info",
			Help: "Always 1; labels identify the loaded model.",
		},
		[]string{"model_name", "training_date"},
	)

	sideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_side_effect_failures_total",
			Help: "Best-effort history writes and event publishes that failed.",
		},
		[]string{"target"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePrediction counts one scored record. salary is only observed on
// success.
func ObservePrediction(mode, status string, salary float64) {
	predictionsTotal.WithLabelValues(mode, status).Inc()
	if status == StatusSuccess {
		predictedSalary.Observe(salary)
	}
}

// ObserveBatchSize records the number of records in a batch request.
func ObserveBatchSize(n int) {
	batchSize.Observe(float64(n))
}

// ObserveCacheLookup counts a prediction cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

// SetModelInfo publishes the loaded model's identity.
func SetModelInfo(name, trainingDate string) {
	modelInfo.Reset()
	modelInfo.WithLabelValues(name, trainingDate).Set(1)
}

// ObserveSideEffectFailure counts a failed history write or event publish.
func ObserveSideEffectFailure(target string) {
	sideEffectFailuresTotal.WithLabelValues(target).Inc()
}

// ObserveRateLimited counts a request rejected with 429.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
