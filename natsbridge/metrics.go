package natsbridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamfan/metric"
)

// Metrics tracks bridge traffic. A nil *Metrics disables collection.
type Metrics struct {
	publishedTotal     prometheus.Counter
	publishFailedTotal prometheus.Counter
	mirroredTotal      prometheus.Counter
	droppedTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers bridge metrics. Returns nil when the
// registry is nil.
func NewMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		publishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "natsbridge",
			Name:      "published_total",
			Help:      "Events forwarded to the cluster",
		}),
		publishFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "natsbridge",
			Name:      "publish_failed_total",
			Help:      "Events that failed to reach NATS",
		}),
		mirroredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "natsbridge",
			Name:      "mirrored_total",
			Help:      "Remote events mirrored onto the local bus",
		}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "natsbridge",
			Name:      "dropped_total",
			Help:      "Inbound cluster messages dropped, by reason",
		}, []string{"reason"}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.publishedTotal,
		m.publishFailedTotal,
		m.mirroredTotal,
		m.droppedTotal,
	)
	return m
}

func (m *Metrics) published() {
	if m == nil {
		return
	}
	m.publishedTotal.Inc()
}

func (m *Metrics) publishFailed() {
	if m == nil {
		return
	}
	m.publishFailedTotal.Inc()
}

func (m *Metrics) mirrored() {
	if m == nil {
		return
	}
	m.mirroredTotal.Inc()
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}
