package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics tracks bounded-retry confirmation loops.
type ReconcileMetrics struct {
	Outcomes *prometheus.CounterVec
	Attempts prometheus.Histogram
}

// NewReconcileMetrics creates and registers reconcile metrics on the given registry.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	m := &ReconcileMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "outcomes_total",
			Help:      "Reconciliation runs by outcome (settled, exhausted, cancelled).",
		}, []string{"operation", "outcome"}),
		Attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "attempts",
			Help:      "Fetches performed per reconciliation run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
		}),
	}

	reg.MustRegister(m.Outcomes, m.Attempts)
	return m
}

// Observe records one finished run.
func (m *ReconcileMetrics) Observe(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, outcome).Inc()
	m.Attempts.Observe(float64(attempts))
}
