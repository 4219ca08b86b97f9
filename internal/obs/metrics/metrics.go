// Package metrics holds the Prometheus collectors of the client: cache
// efficiency, backend call outcomes and upload results. Every collector is
// registered on a private registry exposed through Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "s3keeper"

type Metrics struct {
	reg     *prometheus.Registry
	Cache   *CacheMetrics
	Backend *BackendMetrics
	Upload  *UploadMetrics
}

// New creates a fresh registry with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		reg:     reg,
		Cache:   NewCacheMetrics(reg),
		Backend: NewBackendMetrics(reg),
		Upload:  NewUploadMetrics(reg),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
