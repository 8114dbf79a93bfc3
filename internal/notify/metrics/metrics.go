package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification fan-out and the live
// channel registry. Swallowed push failures stay visible here even though
// they never surface to callers.
type Metrics struct {
	PushesTotal       *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	DroppedFrames     prometheus.Counter
}

// New creates a new Metrics instance with all notify metrics registered.
func New() *Metrics {
	return &Metrics{
		PushesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pressroom_notify_pushes_total",
			Help: "Total push attempts by event type and result",
		}, []string{"event", "result"}), // result: "delivered", "no_subscriber", "failed"

		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pressroom_notify_active_connections",
			Help: "Currently connected live channel subscribers",
		}),

		DroppedFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pressroom_notify_dropped_frames_total",
			Help: "Frames dropped because a subscriber's buffer was full",
		}),
	}
}

// IncrementPush records one push attempt.
func (m *Metrics) IncrementPush(event, result string) {
	if m != nil {
		m.PushesTotal.WithLabelValues(event, result).Inc()
	}
}

// ConnectionOpened tracks a new live connection.
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.ActiveConnections.Inc()
	}
}

// ConnectionClosed tracks a closed live connection.
func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.ActiveConnections.Dec()
	}
}

// IncrementDropped records a frame dropped on a full subscriber buffer.
func (m *Metrics) IncrementDropped() {
	if m != nil {
		m.DroppedFrames.Inc()
	}
}
