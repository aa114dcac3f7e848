// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - STOMP connection state, connect attempts and reconnects
//   - Frames received and dispatch outcomes per handler
//   - Reconciliation outcomes and attempts to settle
//   - REST request latency and classified errors
//
// Every method is safe to call on a nil receiver so components can run
// without a registry.
package metrics
