package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts cache lookups and evictions per key namespace (the
// part of the key before the first ':'). It implements cache.Observer.
type CacheMetrics struct {
	reg     prometheus.Registerer
	lookups *prometheus.CounterVec
	evicts  *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by key namespace and result.",
	}, []string{"ns", "result"}) // result = "hit" | "miss"
	evicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Entries removed by invalidation, reset or expiry sweep.",
	}, []string{"ns"})

	_ = reg.Register(lookups)
	_ = reg.Register(evicts)

	return &CacheMetrics{reg: reg, lookups: lookups, evicts: evicts}
}

// TrackEntries exports size, sampled at scrape time, as the entry count gauge.
func (m *CacheMetrics) TrackEntries(size func() int) {
	_ = m.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Entries held by the cache, expired ones included until swept.",
	}, func() float64 { return float64(size()) }))
}

func keyNamespace(key string) string {
	ns, _, _ := strings.Cut(key, ":")
	return ns
}

func (m *CacheMetrics) Hit(key string) {
	m.lookups.WithLabelValues(keyNamespace(key), "hit").Inc()
}

func (m *CacheMetrics) Miss(key string) {
	m.lookups.WithLabelValues(keyNamespace(key), "miss").Inc()
}

func (m *CacheMetrics) Evict(key string) {
	m.evicts.WithLabelValues(keyNamespace(key)).Inc()
}
