package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the unified state manager.
type Metrics struct {
	EventsApplied    *prometheus.CounterVec
	Operations       *prometheus.CounterVec
	RefreshFailures  *prometheus.CounterVec
	StaleMarks       prometheus.Counter
	SubscriberDrops  prometheus.Counter
	SnapshotsPersist prometheus.Counter
}

// New creates a new Metrics instance with all state manager metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_state_events_applied_total",
			Help: "Total Core events applied to the published state, by type",
		}, []string{"type"}),

		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_state_operations_total",
			Help: "Total funded-identity operations by result",
		}, []string{"result"}), // result: "completed", "failed", "registration_failed"

		RefreshFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_state_refresh_failures_total",
			Help: "Total refresh subtask failures, by subtask",
		}, []string{"task"}),

		StaleMarks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditbridge_state_stale_marks_total",
			Help: "Total times a cached wallet balance was flagged stale",
		}),

		SubscriberDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditbridge_state_subscriber_drops_total",
			Help: "Total lifecycle events dropped on full subscriber channels",
		}),

		SnapshotsPersist: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditbridge_state_snapshots_persisted_total",
			Help: "Total published-state snapshots written to the snapshot store",
		}),
	}
}

func (m *Metrics) IncrementEventApplied(eventType string) {
	if m != nil {
		m.EventsApplied.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncrementOperation(result string) {
	if m != nil {
		m.Operations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementRefreshFailure(task string) {
	if m != nil {
		m.RefreshFailures.WithLabelValues(task).Inc()
	}
}

func (m *Metrics) IncrementStaleMarks() {
	if m != nil {
		m.StaleMarks.Inc()
	}
}

func (m *Metrics) IncrementSubscriberDrops() {
	if m != nil {
		m.SubscriberDrops.Inc()
	}
}

func (m *Metrics) IncrementSnapshotsPersisted() {
	if m != nil {
		m.SnapshotsPersist.Inc()
	}
}
