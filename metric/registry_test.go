package metric

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	require.NoError(t, registry.Register("stream", "test_counter", counter))
	counter.Inc()

	// Verify the counter landed in the underlying Prometheus registry.
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_counter",
		Help: "A test counter",
	})

	require.NoError(t, registry.Register("stream", "dup_counter", counter))
	assert.Error(t, registry.Register("stream", "dup_counter", counter))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	require.NoError(t, registry.Register("stream", "test_gauge", gauge))
	assert.True(t, registry.Unregister("stream", "test_gauge"))

	// Second unregister reports the metric is gone.
	assert.False(t, registry.Unregister("stream", "test_gauge"))

	// The name is free again after unregistering.
	assert.NoError(t, registry.Register("stream", "test_gauge", gauge))
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "", NewMetricsRegistry())
	require.NoError(t, srv.Start())

	// Starting twice is rejected.
	assert.Error(t, srv.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// Stop after stop is a no-op.
	assert.NoError(t, srv.Stop(ctx))
}
