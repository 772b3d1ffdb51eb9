// Package metrics provides Prometheus metrics for the assessment server.
// It exports:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - risk_assessments_total: Counter with scoring_path and risk_level labels
//   - risk_model_fallbacks_total: Counter with reason label
//   - risk_model_call_duration_seconds: Histogram of predictor call latency
//   - prediction_cache_events_total: Counter with tier and result labels
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_assessments_total",
			Help: "Risk assessments produced, by scoring path and level",
		},
		[]string{"scoring_path", "risk_level"},
	)

	ModelFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_model_fallbacks_total",
			Help: "Assessments scored by the heuristic because the model path failed",
		},
		[]string{"reason"},
	)

	ModelCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_model_call_duration_seconds",
			Help:    "Latency of predictive model calls, including failures",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	PredictionCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_cache_events_total",
			Help: "Prediction cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(AssessmentsTotal)
	prometheus.MustRegister(ModelFallbacksTotal)
	prometheus.MustRegister(ModelCallDuration)
	prometheus.MustRegister(PredictionCacheEvents)
}
