package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics counts outbox rows moving through dispatcher passes. The
// fetched/delivered/deleted triple mirrors the pass boundaries, so a growing
// gap between delivered and deleted flags acknowledge failures.
type RelayMetrics struct {
	fetched   prometheus.Counter
	delivered prometheus.Counter
	deleted   prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewRelayMetrics registers the relay counters on the provided registerer.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	fetched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_rows_fetched_total",
		Help: "Outbox rows fetched from the store.",
	})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_rows_delivered_total",
		Help: "Outbox rows delivered to the event log sink.",
	})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_rows_deleted_total",
		Help: "Outbox rows acknowledged (deleted) after delivery.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_pass_failures_total",
		Help: "Failed dispatcher passes by failure kind.",
	}, []string{"kind"})
	reg.MustRegister(fetched, delivered, deleted, failures)
	return &RelayMetrics{
		fetched:   fetched,
		delivered: delivered,
		deleted:   deleted,
		failures:  failures,
	}
}

// ObservePass records the row counts of one completed or failed pass.
func (m *RelayMetrics) ObservePass(fetched, delivered, deleted int) {
	if m == nil || m.fetched == nil {
		return
	}
	m.fetched.Add(float64(fetched))
	m.delivered.Add(float64(delivered))
	m.deleted.Add(float64(deleted))
}

// IncFailure increments the pass failure counter for the given kind.
func (m *RelayMetrics) IncFailure(kind string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(kind)).Inc()
}
