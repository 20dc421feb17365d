package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	PoliciesCreated      prometheus.Counter
	StatusTransitions    *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	MessagesConsumed     *prometheus.CounterVec
	MessagesDeadLettered *prometheus.CounterVec
	FraudLookups         *prometheus.CounterVec
	FraudLatency         prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		PoliciesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policyd_policies_created_total",
			Help: "Total number of policy requests received",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policyd_status_transitions_total",
			Help: "Total number of policy status transitions, by resulting status",
		}, []string{"status"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policyd_events_published_total",
			Help: "Total number of lifecycle events published, by topic and outcome",
		}, []string{"topic", "outcome"}),
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policyd_messages_consumed_total",
			Help: "Total number of consumed queue messages, by topic and outcome",
		}, []string{"topic", "outcome"}),
		MessagesDeadLettered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policyd_messages_dead_lettered_total",
			Help: "Total number of messages parked on dead-letter topics",
		}, []string{"topic"}),
		FraudLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policyd_fraud_lookups_total",
			Help: "Total number of fraud analysis lookups, by outcome",
		}, []string{"outcome"}),
		FraudLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "policyd_fraud_lookup_duration_seconds",
			Help:    "Latency of fraud analysis API calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
