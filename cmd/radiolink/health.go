package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildcastradio/radiolink/internal/connection"
	"github.com/wildcastradio/radiolink/internal/metrics"
)

// statsSource is the part of the Manager the health endpoint reads.
type statsSource interface {
	Stats() connection.Stats
}

type healthResponse struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// createHealthHandler serves /health and, when reg is non-nil, the metrics path.
func createHealthHandler(mgr statsSource, reg *prometheus.Registry, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		st := mgr.Stats()

		health := healthResponse{
			Status:     healthStatus(st.State),
			Components: make(map[string]any),
		}

		conn := map[string]any{
			"state":              st.State.String(),
			"topics":             st.Topics,
			"handlers":           st.Handlers,
			"wire_subscriptions": st.WireSubscriptions,
			"reconnect_attempts": st.ReconnectAttempts,
			"reconnects":         st.Reconnects,
		}
		if !st.ConnectedSince.IsZero() {
			conn["connected_since"] = st.ConnectedSince.UTC().Format(time.RFC3339)
		}
		health.Components["stomp"] = conn

		health.Components["dispatch"] = map[string]any{
			"frames_received": st.Dispatch.FramesReceived,
			"delivered":       st.Dispatch.Delivered,
			"unrouted":        st.Dispatch.Unrouted,
			"parse_errors":    st.Dispatch.ParseErrors,
			"handler_errors":  st.Dispatch.HandlerErrors,
			"panics":          st.Dispatch.Panics,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	})

	if reg != nil {
		mux.Handle(metricsPath, metrics.Handler(reg))
	}

	return mux
}

func healthStatus(s connection.State) string {
	switch s {
	case connection.Connected:
		return "healthy"
	case connection.Connecting, connection.Reconnecting:
		return "degraded"
	default:
		return "unhealthy"
	}
}
