package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records reconciliation outcomes per terminal state.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	oversell prometheus.Counter
}

// NewReconcileMetrics registers the reconcile metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of payment reconciliation calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_outcomes_total",
		Help: "Reconciliation calls by terminal outcome.",
	}, []string{"outcome"})
	oversell := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_backorders_total",
		Help: "Completed payments reconciled against insufficient stock.",
	})
	reg.MustRegister(duration, outcomes, oversell)
	return &ReconcileMetrics{
		duration: duration,
		outcomes: outcomes,
		oversell: oversell,
	}
}

// ObserveDuration records the duration for the given outcome.
func (m *ReconcileMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOutcome increments the counter for the named outcome.
func (m *ReconcileMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncBackorder counts a completed payment that could not decrement stock.
func (m *ReconcileMetrics) IncBackorder() {
	if m == nil || m.oversell == nil {
		return
	}
	m.oversell.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
