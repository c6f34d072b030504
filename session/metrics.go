package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	outcomeOK      = "ok"
	outcomeValid   = "valid"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Metrics records per-suite operation counts and durations.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lds_operations_total",
			Help: "Linked-data proof operations by suite, operation and outcome.",
		}, []string{"suite", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lds_operation_duration_seconds",
			Help:    "Duration of linked-data proof operations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"suite", "op"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.operations, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(suite, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(suite, op, outcome).Inc()
	m.duration.WithLabelValues(suite, op).Observe(d.Seconds())
}
