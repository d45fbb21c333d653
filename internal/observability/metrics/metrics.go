// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_interview_engine"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Turn metrics
	TurnsTotal   prometheus.Counter
	TurnsFailed  prometheus.Counter
	TurnDuration prometheus.Histogram

	// Completion-provider metrics
	ProviderCalls     *prometheus.CounterVec
	ProviderFallbacks *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec

	// Progression metrics
	PhaseTransitions   *prometheus.CounterVec
	BoundariesDetected prometheus.Counter
	InterviewsComplete prometheus.Counter

	// Memory metrics
	MemoryTruncations prometheus.Counter

	// Realtime metrics
	RealtimeConnectionsActive prometheus.Gauge
	RealtimeConnectionsTotal  prometheus.Counter
	RealtimeEvictions         prometheus.Counter
	FunctionCallsDispatched   *prometheus.CounterVec
	TranscriptCommits         prometheus.Counter
	TranscriptCommitFailures  prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of interview turns processed",
		}),
		TurnsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_failed_total",
			Help:      "Total number of turns aborted before completion",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end duration of a turn",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Total completion provider calls by operation",
		}, []string{"operation"}),
		ProviderFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Total provider failures recovered with a deterministic fallback",
		}, []string{"operation", "reason"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Completion provider call latency by operation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"operation"}),
		PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Difficulty phase transitions by from/to phase",
		}, []string{"from", "to"}),
		BoundariesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_boundaries_detected_total",
			Help:      "Total skill boundaries detected",
		}),
		InterviewsComplete: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interviews_completed_total",
			Help:      "Total interviews that reached the completion rule",
		}),
		MemoryTruncations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_truncations_total",
			Help:      "Total conversation memory truncations",
		}),
		RealtimeConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections_active",
			Help:      "Number of currently active realtime connections",
		}),
		RealtimeConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_connections_total",
			Help:      "Total realtime connections accepted",
		}),
		RealtimeEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_evictions_total",
			Help:      "Total connections forcibly evicted by a newer connection",
		}),
		FunctionCallsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_calls_dispatched_total",
			Help:      "Provider function calls dispatched by normalized name",
		}, []string{"name"}),
		TranscriptCommits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_commits_total",
			Help:      "Total transcripts durably committed",
		}),
		TranscriptCommitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_commit_failures_total",
			Help:      "Total transcript commits that failed (best-effort path)",
		}),
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total Kafka publish attempts by topic and event type",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total Kafka publish failures by topic and event type",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency by topic",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"topic"}),
	}
}

// RecordProviderCall records a provider call outcome.
func (m *Metrics) RecordProviderCall(operation string, seconds float64) {
	m.ProviderCalls.WithLabelValues(operation).Inc()
	m.ProviderLatency.WithLabelValues(operation).Observe(seconds)
}

// RecordProviderFallback records a provider failure recovered locally.
func (m *Metrics) RecordProviderFallback(operation, reason string) {
	m.ProviderFallbacks.WithLabelValues(operation, reason).Inc()
}

// RecordPhaseTransition records a difficulty phase transition.
func (m *Metrics) RecordPhaseTransition(from, to string) {
	m.PhaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(seconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
