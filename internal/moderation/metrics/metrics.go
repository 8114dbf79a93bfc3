package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the moderation module.
type Metrics struct {
	// Transition outcomes by action and result
	TransitionsTotal *prometheus.CounterVec

	// Bulk request sizes
	BulkBatchSize prometheus.Histogram

	// Single transition latency including persistence and audit
	TransitionLatency prometheus.Histogram
}

// New creates a new Metrics instance with all moderation metrics registered.
func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pressroom_moderation_transitions_total",
			Help: "Total moderation transitions by action and outcome",
		}, []string{"action", "outcome"}), // outcome: "accepted", "rejected", "failed"

		BulkBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pressroom_moderation_bulk_batch_size",
			Help:    "Number of target ids per bulk transition request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		TransitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pressroom_moderation_transition_duration_seconds",
			Help:    "Duration of one transition including persistence and audit",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}
}

// IncrementTransition records a transition outcome.
func (m *Metrics) IncrementTransition(action, outcome string) {
	if m != nil {
		m.TransitionsTotal.WithLabelValues(action, outcome).Inc()
	}
}

// ObserveBatchSize records the size of a bulk request.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BulkBatchSize.Observe(float64(n))
	}
}

// ObserveTransitionLatency records the duration of one transition.
func (m *Metrics) ObserveTransitionLatency(d time.Duration) {
	if m != nil {
		m.TransitionLatency.Observe(d.Seconds())
	}
}
