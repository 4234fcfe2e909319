package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksSealed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_blocks_sealed_total",
			Help: "Total blocks sealed and appended to the chain",
		},
	)

	chainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_chain_height",
			Help: "Current number of blocks in the chain, genesis included",
		},
	)

	pendingTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_pending_transactions",
			Help: "Transactions waiting to be sealed",
		},
	)

	ticketOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_ticket_operations_total",
			Help: "Ticket commands by operation and result",
		},
		[]string{"operation", "result"},
	)

	sealDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_seal_duration_seconds",
			Help:    "Time spent in the proof-of-work search per block",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	chainVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_chain_verifications_total",
			Help: "Full chain verifications by result",
		},
		[]string{"result"},
	)

	archiveOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_archive_operations_total",
			Help: "Archive reads and writes by status",
		},
		[]string{"operation", "status"},
	)
)

// LedgerStats is the subset of the ledger the collector samples.
type LedgerStats interface {
	Len() int
	PendingCount() int
}

type Monitor struct {
	stats    LedgerStats
	interval time.Duration
}

func NewMonitor(stats LedgerStats) *Monitor {
	return &Monitor{stats: stats, interval: 15 * time.Second}
}

// Run samples the ledger gauges until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collectLedgerMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectLedgerMetrics()
		}
	}
}

func (m *Monitor) collectLedgerMetrics() {
	chainHeight.Set(float64(m.stats.Len()))
	pendingTransactions.Set(float64(m.stats.PendingCount()))
}

func (m *Monitor) TrackTicketOperation(operation, result string) {
	ticketOperations.WithLabelValues(operation, result).Inc()
	m.collectLedgerMetrics()
}

func (m *Monitor) TrackBlockSealed(duration time.Duration) {
	blocksSealed.Inc()
	sealDuration.Observe(duration.Seconds())
	m.collectLedgerMetrics()
}

func (m *Monitor) TrackChainVerification(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	chainVerifications.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackArchiveOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	archiveOperations.WithLabelValues(operation, status).Inc()
}
