package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics counts finished upload tasks.
type UploadMetrics struct {
	tasks *prometheus.CounterVec
}

func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "tasks_total",
		Help:      "Finished upload tasks by strategy and result.",
	}, []string{"strategy", "result"})

	_ = reg.Register(tasks)

	return &UploadMetrics{tasks: tasks}
}

func (m *UploadMetrics) TaskFinished(strategy string, err error) {
	m.tasks.WithLabelValues(strategy, result(err)).Inc()
}
