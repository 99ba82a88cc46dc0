package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExpiryMetrics tracks expiry check runs and quarantine transitions.
type ExpiryMetrics struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	alerts      *prometheus.CounterVec
	duplicates  prometheus.Counter
	itemErrors  prometheus.Counter
	transitions *prometheus.CounterVec
}

// NewExpiryMetrics registers the expiry metrics on the provided registerer.
func NewExpiryMetrics(reg prometheus.Registerer) *ExpiryMetrics {
	if reg == nil {
		return &ExpiryMetrics{}
	}
	m := &ExpiryMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expiry_check_runs_total",
			Help: "Expiry check runs by trigger and final status.",
		}, []string{"trigger", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "expiry_check_run_duration_seconds",
			Help:    "Wall time of expiry check runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expiry_alerts_generated_total",
			Help: "Expiry alerts created by severity.",
		}, []string{"severity"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expiry_alerts_duplicates_total",
			Help: "Candidates skipped because an open alert already existed.",
		}),
		itemErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expiry_check_item_errors_total",
			Help: "Per-item failures during expiry checks.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quarantine_transitions_total",
			Help: "Quarantine case actions applied.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.alerts, m.duplicates, m.itemErrors, m.transitions)
	return m
}

// ObserveRun records the outcome of a finished check run.
func (m *ExpiryMetrics) ObserveRun(trigger, status string, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(trigger), normalizeLabel(status)).Inc()
	m.runDuration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// AddAlerts counts newly generated alerts for a severity.
func (m *ExpiryMetrics) AddAlerts(severity string, n int) {
	if m == nil || m.alerts == nil || n <= 0 {
		return
	}
	m.alerts.WithLabelValues(normalizeLabel(severity)).Add(float64(n))
}

// AddDuplicates counts skipped duplicate candidates.
func (m *ExpiryMetrics) AddDuplicates(n int) {
	if m == nil || m.duplicates == nil || n <= 0 {
		return
	}
	m.duplicates.Add(float64(n))
}

// AddItemErrors counts per-item failures.
func (m *ExpiryMetrics) AddItemErrors(n int) {
	if m == nil || m.itemErrors == nil || n <= 0 {
		return
	}
	m.itemErrors.Add(float64(n))
}

// IncTransition counts an applied quarantine action.
func (m *ExpiryMetrics) IncTransition(action string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action)).Inc()
}
