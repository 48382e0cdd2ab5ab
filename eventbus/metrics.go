package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamfan/metric"
)

// Metrics holds Prometheus metrics for the event bus.
type Metrics struct {
	topics        prometheus.Gauge
	subscriptions prometheus.Gauge
	published     *prometheus.CounterVec
	handlerPanics prometheus.Counter
}

// NewMetrics creates and registers bus metrics. Returns nil if no registry is
// provided (nil input = nil feature pattern).
func NewMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		topics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamfan",
			Subsystem: "eventbus",
			Name:      "topics",
			Help:      "Number of live topics",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamfan",
			Subsystem: "eventbus",
			Name:      "subscriptions",
			Help:      "Number of attached subscriptions",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "eventbus",
			Name:      "events_published_total",
			Help:      "Total events published, by event type",
		}, []string{"event_type"}),
		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamfan",
			Subsystem: "eventbus",
			Name:      "handler_panics_total",
			Help:      "Total handler panics recovered during delivery",
		}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.topics,
		m.subscriptions,
		m.published,
		m.handlerPanics,
	)

	return m
}
