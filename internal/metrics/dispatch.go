package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcomes.
const (
	OutcomeDelivered    = "delivered"
	OutcomeParseError   = "parse_error"
	OutcomeHandlerError = "handler_error"
	OutcomePanic        = "panic"
	OutcomeUnrouted     = "unrouted"
	OutcomeDropped      = "dropped"
)

// DispatchMetrics tracks per-handler delivery.
type DispatchMetrics struct {
	Outcomes   *prometheus.CounterVec
	QueueDepth prometheus.Gauge
}

// NewDispatchMetrics creates and registers dispatch metrics on the given registry.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Handler deliveries by outcome.",
		}, []string{"outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Frames waiting for delivery.",
		}),
	}

	reg.MustRegister(m.Outcomes, m.QueueDepth)
	return m
}

// Outcome counts one dispatch outcome.
func (m *DispatchMetrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

// SetQueueDepth records the inbound queue length.
func (m *DispatchMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
