package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the funding module.
type Metrics struct {
	// Funding attempts by terminal result
	Attempts *prometheus.CounterVec

	// Retries of transient failures by error class
	Retries *prometheus.CounterVec

	// Broadcast-to-proof latency
	ConfirmationLatency prometheus.Histogram

	// Locks spent on a registration or top-up
	LocksConsumed prometheus.Counter
}

// New creates a new Metrics instance with all funding module metrics registered.
func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_funding_attempts_total",
			Help: "Total funding attempts by terminal result",
		}, []string{"result"}), // result: "success", error code

		Retries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_funding_retries_total",
			Help: "Total transient-failure retries by error class",
		}, []string{"class"}), // class: "broadcast_failed", "confirmation_timeout"

		ConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditbridge_funding_confirmation_duration_seconds",
			Help:    "Duration between broadcast and instant-lock proof",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		LocksConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditbridge_funding_locks_consumed_total",
			Help: "Total asset locks consumed by identity registrations and top-ups",
		}),
	}
}

// IncrementAttempt records a terminal funding result.
func (m *Metrics) IncrementAttempt(result string) {
	if m != nil {
		m.Attempts.WithLabelValues(result).Inc()
	}
}

// IncrementRetry records one retry of a transient failure class.
func (m *Metrics) IncrementRetry(class string) {
	if m != nil {
		m.Retries.WithLabelValues(class).Inc()
	}
}

// ObserveConfirmation records broadcast-to-proof latency.
func (m *Metrics) ObserveConfirmation(d time.Duration) {
	if m != nil {
		m.ConfirmationLatency.Observe(d.Seconds())
	}
}

// IncrementLocksConsumed records a lock spent on a registration or top-up.
func (m *Metrics) IncrementLocksConsumed() {
	if m != nil {
		m.LocksConsumed.Inc()
	}
}
