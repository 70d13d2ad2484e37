package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger commands by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	concurrentRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_concurrent_modification_retries_total",
			Help: "Retries after a version conflict",
		},
		[]string{"operation"},
	)

	auditFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_audit_write_failures_total",
			Help: "Audit entries that could not be written",
		},
		[]string{"action"},
	)

	summaryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_summary_duration_seconds",
			Help:    "Time spent computing financial summaries",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"cache"},
	)

	tripRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_trip_remaining_seats",
			Help: "Remaining seats per trip as last seen by the ledger",
		},
		[]string{"trip_id"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Notifications handed to the push provider",
		},
		[]string{"type", "status"},
	)
)

// Monitor records ledger metrics. A nil *Monitor records nothing.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackOperation(operation, outcome string) {
	if m == nil {
		return
	}
	ledgerOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Monitor) TrackRetry(operation string) {
	if m == nil {
		return
	}
	concurrentRetries.WithLabelValues(operation).Inc()
}

func (m *Monitor) TrackAuditFailure(action string) {
	if m == nil {
		return
	}
	auditFailures.WithLabelValues(action).Inc()
}

func (m *Monitor) TrackSummary(cache string, duration time.Duration) {
	if m == nil {
		return
	}
	summaryDuration.WithLabelValues(cache).Observe(duration.Seconds())
}

func (m *Monitor) TrackTripRemaining(tripID string, remaining int) {
	if m == nil {
		return
	}
	tripRemaining.WithLabelValues(tripID).Set(float64(remaining))
}

func (m *Monitor) TrackNotification(notificationType, status string) {
	if m == nil {
		return
	}
	notificationsSent.WithLabelValues(notificationType, status).Inc()
}
