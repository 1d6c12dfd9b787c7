package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turn pipeline
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waiter_turns_total",
		Help: "Processed turns by intent category and outcome",
	}, []string{"intent", "outcome"})

	TurnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waiter_turn_latency_seconds",
		Help:    "End-to-end turn processing latency",
		Buckets: prometheus.DefBuckets,
	})

	BargeInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waiter_barge_ins_total",
		Help: "In-flight turns cancelled by a newer utterance",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waiter_active_sessions",
		Help: "Sessions currently holding conversation state",
	})

	// Model + retrieval
	ModelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waiter_model_latency_seconds",
		Help:    "Language model call latency by purpose",
		Buckets: prometheus.DefBuckets,
	}, []string{"purpose"})

	ModelRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waiter_model_retries_total",
		Help: "Retried language model calls",
	})

	RetrievalLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waiter_retrieval_latency_seconds",
		Help:    "Menu index search latency",
		Buckets: prometheus.DefBuckets,
	})

	RetrievalResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waiter_retrieval_results",
		Help:    "Number of items returned per search",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})

	// Actions
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waiter_actions_total",
		Help: "Executed action proposals by function name and status",
	}, []string{"action", "status"})

	ExternalCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waiter_external_call_latency_seconds",
		Help:    "Ordering and payment API call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
