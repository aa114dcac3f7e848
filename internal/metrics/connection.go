package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConnectionStates lists every label value of the state gauge.
var ConnectionStates = []string{"disconnected", "connecting", "connected", "reconnecting", "failed"}

// ConnectionMetrics tracks the shared STOMP connection.
type ConnectionMetrics struct {
	State           *prometheus.GaugeVec
	ConnectAttempts *prometheus.CounterVec
	Reconnects      prometheus.Counter
	FramesReceived  *prometheus.CounterVec
	Subscriptions   prometheus.Gauge
}

// NewConnectionMetrics creates and registers connection metrics on the given registry.
func NewConnectionMetrics(reg prometheus.Registerer) *ConnectionMetrics {
	m := &ConnectionMetrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Current connection state (1 for the active state, 0 otherwise).",
		}, []string{"state"}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "connect_attempts_total",
			Help:      "Connect attempts by result (success, error, timeout).",
		}, []string{"result"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "reconnects_total",
			Help:      "Successful reconnects after a transport drop.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "frames_received_total",
			Help:      "STOMP frames received by command.",
		}, []string{"command"}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "wire_subscriptions",
			Help:      "Topics currently subscribed on the wire.",
		}),
	}

	reg.MustRegister(m.State, m.ConnectAttempts, m.Reconnects, m.FramesReceived, m.Subscriptions)
	return m
}

// SetState marks state as the active connection state.
func (m *ConnectionMetrics) SetState(state string) {
	if m == nil {
		return
	}
	for _, s := range ConnectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.State.WithLabelValues(s).Set(v)
	}
}

// ConnectAttempt counts one connect attempt.
func (m *ConnectionMetrics) ConnectAttempt(result string) {
	if m == nil {
		return
	}
	m.ConnectAttempts.WithLabelValues(result).Inc()
}

// Reconnected counts one successful reconnect.
func (m *ConnectionMetrics) Reconnected() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// FrameReceived counts one inbound frame.
func (m *ConnectionMetrics) FrameReceived(command string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(command).Inc()
}

// SetSubscriptions records the wire subscription count.
func (m *ConnectionMetrics) SetSubscriptions(n int) {
	if m == nil {
		return
	}
	m.Subscriptions.Set(float64(n))
}
