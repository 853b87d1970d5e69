package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the cross-layer bridge.
type Metrics struct {
	Transfers   *prometheus.CounterVec
	Withdrawals *prometheus.CounterVec
	BatchItems  *prometheus.CounterVec
	SyncErrors  prometheus.Counter
}

// New creates a new Metrics instance with all cross-layer metrics registered.
func New() *Metrics {
	return &Metrics{
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_crosslayer_transfers_total",
			Help: "Total identity-to-identity transfers by result",
		}, []string{"result"}), // result: "confirmed", "failed", "failed_after_funding"

		Withdrawals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_crosslayer_withdrawals_total",
			Help: "Total credit withdrawals to Core by status",
		}, []string{"status"}),

		BatchItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditbridge_crosslayer_batch_items_total",
			Help: "Total batch funding items by result",
		}, []string{"result"}),

		SyncErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditbridge_crosslayer_sync_errors_total",
			Help: "Total non-fatal balance synchronization failures",
		}),
	}
}

func (m *Metrics) IncrementTransfer(result string) {
	if m != nil {
		m.Transfers.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementWithdrawal(status string) {
	if m != nil {
		m.Withdrawals.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementBatchItem(result string) {
	if m != nil {
		m.BatchItems.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) AddSyncErrors(n int) {
	if m != nil && n > 0 {
		m.SyncErrors.Add(float64(n))
	}
}
