package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilReceiversAreSafe(t *testing.T) {
	var m Metrics
	assert.NotPanics(t, func() {
		m.Connection.SetState("connected")
		m.Connection.ConnectAttempt("success")
		m.Connection.Reconnected()
		m.Connection.FrameReceived("MESSAGE")
		m.Connection.SetSubscriptions(3)
		m.Dispatch.Outcome(OutcomeDelivered)
		m.Dispatch.SetQueueDepth(1)
		m.Reconcile.Observe("handover", "settled", 3)
		m.API.ObserveRequest("GET", "200", time.Millisecond)
		m.API.Error("network")
		m.API.SetBreakerState(2)
	})
}

func TestConnectionMetrics_SetStateIsExclusive(t *testing.T) {
	m := NewConnectionMetrics(prometheus.NewRegistry())

	m.SetState("connecting")
	m.SetState("connected")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("connecting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("failed")))
}

func TestDispatchMetrics_Outcomes(t *testing.T) {
	m := NewDispatchMetrics(prometheus.NewRegistry())

	m.Outcome(OutcomeDelivered)
	m.Outcome(OutcomeDelivered)
	m.Outcome(OutcomePanic)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(OutcomeDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(OutcomePanic)))
}

func TestReconcileMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconcileMetrics(reg)

	m.Observe("handover", "settled", 3)
	m.Observe("handover", "exhausted", 8)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("handover", "settled")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Attempts))
}

func TestNew_RegistersEverything(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.API.Error("auth")
	m.Connection.SetState("connected")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `radiolink_api_errors_total{kind="auth"} 1`))
	assert.True(t, strings.Contains(body, `radiolink_connection_state{state="connected"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
