// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the dialekt gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialekt_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPInFlight tracks requests currently being served, streams included.
	HTTPInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dialekt_http_requests_in_flight",
			Help: "Requests being served",
		},
	)

	// StreamingConnections tracks the number of active SSE streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dialekt_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// CompletionsTotal counts chat completions by model, dialect, mode and outcome.
	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_completions_total",
			Help: "Chat completions",
		},
		[]string{"model", "dialect", "mode", "outcome"},
	)

	// BackendRequestsTotal counts requests sent to the completions backend.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"model", "status"},
	)

	// BackendLatency records backend latency in seconds.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialekt_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// BackendTokensTotal counts tokens processed by direction (input/output).
	BackendTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_backend_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// BackendWordsTotal counts words reported by the backend by direction.
	BackendWordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_backend_words_total",
			Help: "Word count",
		},
		[]string{"model", "direction"},
	)

	// BackendCostTotal accumulates the price reported by the backend.
	BackendCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_backend_cost_total",
			Help: "Backend cost",
		},
		[]string{"model", "currency"},
	)

	// ToolCallsExtractedTotal counts tool calls parsed out of model text.
	ToolCallsExtractedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_tool_calls_extracted_total",
			Help: "Tool calls extracted from completions",
		},
		[]string{"dialect"},
	)

	// HeartbeatsTotal counts heartbeat chunks sent on streams.
	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dialekt_stream_heartbeats_total",
			Help: "Heartbeat chunks",
		},
	)

	// ErrorsTotal counts failed completions by error type.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialekt_errors_total",
			Help: "Errors by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		HTTPInFlight,
		StreamingConnections,
		CompletionsTotal,
		BackendRequestsTotal,
		BackendLatency,
		BackendTokensTotal,
		BackendWordsTotal,
		BackendCostTotal,
		ToolCallsExtractedTotal,
		HeartbeatsTotal,
		ErrorsTotal,
	)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackend records one backend call. status is "ok" or the error type.
func ObserveBackend(model, status string, elapsed time.Duration) {
	BackendRequestsTotal.WithLabelValues(model, status).Inc()
	BackendLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveTokens records prompt and completion token counts.
func ObserveTokens(model string, input, output int) {
	if input > 0 {
		BackendTokensTotal.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		BackendTokensTotal.WithLabelValues(model, "output").Add(float64(output))
	}
}

// ObserveWords records the word counts reported by the backend.
func ObserveWords(model string, input, output int) {
	if input > 0 {
		BackendWordsTotal.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		BackendWordsTotal.WithLabelValues(model, "output").Add(float64(output))
	}
}

// ObserveCost adds a reported price. Non-positive amounts are ignored.
func ObserveCost(model, currency string, total float64) {
	if total <= 0 {
		return
	}
	if currency == "" {
		currency = "unknown"
	}
	BackendCostTotal.WithLabelValues(model, currency).Add(total)
}
