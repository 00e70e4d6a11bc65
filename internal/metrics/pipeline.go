package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Message outcomes recorded per stage.
const (
	OutcomeOK         = "ok"
	OutcomeSkipped    = "skipped"
	OutcomeRetry      = "retry"
	OutcomeDeadLetter = "dead_letter"
)

// Pipeline Prometheus metrics.
var (
	StageMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drastic",
			Name:      "stage_messages_total",
			Help:      "Messages handled per pipeline stage by outcome",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "drastic",
			Name:      "stage_duration_seconds",
			Help:      "Time spent handling one message per stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	RemoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drastic",
			Name:      "remote_calls_total",
			Help:      "Calls to the object store, triple store and search index",
		},
		[]string{"target", "op", "status"},
	)

	RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "drastic",
			Name:      "remote_call_duration_seconds",
			Help:      "Remote call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"target", "op"},
	)

	PagedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drastic",
			Name:      "paged_documents_total",
			Help:      "Paged documents assembled by outcome",
		},
		[]string{"outcome"},
	)

	SearchDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drastic",
			Name:      "search_documents_total",
			Help:      "Search documents published by kind",
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers the pipeline metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			StageMessagesTotal,
			StageDuration,
			RemoteCallsTotal,
			RemoteCallDuration,
			PagedDocumentsTotal,
			SearchDocumentsTotal,
			AdminRequestDuration,
			AdminRequestsTotal,
		)
	})
}

// ObserveStage records one handled message.
func ObserveStage(stage, outcome string, started time.Time) {
	StageMessagesTotal.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// ObserveRemote records one remote call. status is the HTTP status code or
// "error" for transport failures.
func ObserveRemote(target, op, status string, started time.Time) {
	RemoteCallsTotal.WithLabelValues(target, op, status).Inc()
	RemoteCallDuration.WithLabelValues(target, op).Observe(time.Since(started).Seconds())
}
