package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "radiolink"

// Metrics bundles every component's metrics.
type Metrics struct {
	Connection *ConnectionMetrics
	Dispatch   *DispatchMetrics
	Reconcile  *ReconcileMetrics
	API        *APIMetrics
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Connection: NewConnectionMetrics(reg),
		Dispatch:   NewDispatchMetrics(reg),
		Reconcile:  NewReconcileMetrics(reg),
		API:        NewAPIMetrics(reg),
	}
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
