package targets

import "github.com/prometheus/client_golang/prometheus"

const (
	BucketTraining   = "training"
	BucketValidation = "validation"
)

// Metrics counts cache activity per bucket. A nil *Metrics is a no-op.
type Metrics struct {
	loaded   *prometheus.CounterVec
	failures *prometheus.CounterVec
	reloads  *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupart",
			Subsystem: "targets",
			Name:      "loaded_total",
			Help:      "Samples loaded into a target pool.",
		}, []string{"bucket"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupart",
			Subsystem: "targets",
			Name:      "load_failures_total",
			Help:      "Sample loads that failed and were skipped.",
		}, []string{"bucket"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupart",
			Subsystem: "targets",
			Name:      "reloads_total",
			Help:      "Target pools published.",
		}, []string{"bucket"}),
	}
	if reg != nil {
		reg.MustRegister(m.loaded, m.failures, m.reloads)
	}
	return m
}

func (m *Metrics) targetLoaded(bucket string) {
	if m == nil {
		return
	}
	m.loaded.WithLabelValues(bucket).Inc()
}

func (m *Metrics) loadFailed(bucket string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(bucket).Inc()
}

func (m *Metrics) published(bucket string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(bucket).Inc()
}
