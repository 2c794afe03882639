// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// InboundMessagesTotal tracks inbound webhook messages by routing decision.
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_messages_total",
			Help: "Inbound webhook messages by sender role and routing decision",
		},
		[]string{"role", "decision"},
	)

	// LLMCallDuration tracks LLM call duration by purpose.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"purpose", "model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// AutopilotDecisionsTotal tracks autopilot gate outcomes.
	AutopilotDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_decisions_total",
			Help: "Autopilot decision log entries by type and status",
		},
		[]string{"type", "status"},
	)

	// PendingBucketsActive tracks open debounce buckets.
	PendingBucketsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_buckets_active",
			Help: "Number of open per-tenant debounce buckets",
		},
	)

	// DebounceFlushesTotal tracks debounce flushes by fragment count bucket.
	DebounceFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debounce_flushes_total",
			Help: "Debounce bucket flushes",
		},
		[]string{"bypass"},
	)

	// TransportSendsTotal tracks outbound message sends.
	TransportSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_sends_total",
			Help: "Outbound messages by audience and status",
		},
		[]string{"audience", "status"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for a completed LLM call.
func RecordLLMCall(purpose, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(purpose, model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordAutopilotDecision records a decision log entry.
func RecordAutopilotDecision(entryType, status string) {
	AutopilotDecisionsTotal.WithLabelValues(entryType, status).Inc()
}
