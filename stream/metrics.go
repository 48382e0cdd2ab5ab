package stream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamfan/metric"
)

// Metrics tracks connection and channel activity. A nil *Metrics disables
// collection, so tests can construct connections without a registry.
type Metrics struct {
	connectionsActive prometheus.Gauge
	channelsActive    prometheus.Gauge
	noteSubscriptions prometheus.Gauge
	inboundFrames     *prometheus.CounterVec
	rejectedConnects  *prometheus.CounterVec
}

// NewMetrics creates and registers the stream metrics. Returns nil when the
// registry is nil.
func NewMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamfan",
			Subsystem: "stream",
			Name:      "connections_active",
			Help:      "Number of live WebSocket connections",
		}),
		channelsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamfan",
			Subsystem: "stream",
			Name:      "channels_active",
			Help:      "Number of active channel instances across all connections",
		}),
		noteSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamfan",
			Subsystem: "stream",
			Name:      "note_subscriptions",
			Help:      "Number of distinct note topics with an attached listener",
		}),
		inboundFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "stream",
			Name:      "inbound_frames_total",
			Help:      "Inbound client frames by control type",
		}, []string{"frame_type"}),
		rejectedConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "stream",
			Name:      "rejected_connects_total",
			Help:      "Channel connect requests dropped by admission policy",
		}, []string{"reason"}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.connectionsActive,
		m.channelsActive,
		m.noteSubscriptions,
		m.inboundFrames,
		m.rejectedConnects,
	)

	return m
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) channelAdded() {
	if m == nil {
		return
	}
	m.channelsActive.Inc()
}

func (m *Metrics) channelsRemoved(n int) {
	if m == nil || n == 0 {
		return
	}
	m.channelsActive.Sub(float64(n))
}

func (m *Metrics) noteSubAttached() {
	if m == nil {
		return
	}
	m.noteSubscriptions.Inc()
}

func (m *Metrics) noteSubDetached() {
	if m == nil {
		return
	}
	m.noteSubscriptions.Dec()
}

func (m *Metrics) inboundFrame(frameType string) {
	if m == nil {
		return
	}
	m.inboundFrames.WithLabelValues(frameType).Inc()
}

func (m *Metrics) connectRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedConnects.WithLabelValues(reason).Inc()
}
