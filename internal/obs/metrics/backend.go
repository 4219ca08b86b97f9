package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics records storage driver calls.
type BackendMetrics struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "ops_total",
		Help:      "Storage backend calls by operation and result.",
	}, []string{"op", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "op_duration_seconds",
		Help:      "Histogram of storage backend call durations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	_ = reg.Register(ops)
	_ = reg.Register(latency)

	return &BackendMetrics{ops: ops, latency: latency}
}

// Observe records one call. dur must be the total time spent in it.
func (m *BackendMetrics) Observe(op string, err error, dur time.Duration) {
	m.ops.WithLabelValues(op, result(err)).Inc()
	m.latency.WithLabelValues(op).Observe(dur.Seconds())
}
