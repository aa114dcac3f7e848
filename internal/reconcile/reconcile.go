// Package reconcile confirms that an asynchronous server-side effect has
// become visible by polling the authoritative resource a bounded number of
// times.
//
// A run never fails: exhausting the attempts or being cancelled yields a
// degraded Result carrying the last observed state, so the caller can proceed
// with best-known data and surface a warning.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wildcastradio/radiolink/internal/metrics"
)

// Defaults used by the handover flow.
const (
	DefaultMaxAttempts = 8
	DefaultInterval    = 800 * time.Millisecond
)

// Outcome labels recorded in metrics.
const (
	OutcomeSettled   = "settled"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
)

// ErrInvalidRequest is reported in Result.Err when Fetch or Predicate is nil.
var ErrInvalidRequest = errors.New("reconcile: request needs Fetch and Predicate")

// Config holds the polling policy.
type Config struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultConfig returns 8 attempts spaced 800ms apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultInterval,
	}
}

// Request describes one reconciliation. S is the fetched resource type.
type Request[S any] struct {
	// Operation names the run in logs and metrics.
	Operation string

	Fetch     func(ctx context.Context) (S, error)
	Predicate func(S) bool

	// A zero MaxAttempts falls back to the Runner's Config. Interval is used
	// only when HasInterval is set, so a zero Interval polls back to back.
	MaxAttempts int
	Interval    time.Duration
	HasInterval bool
}

// Result is the outcome of a run.
type Result[S any] struct {
	Settled  bool
	Attempts int

	// LastState is the most recent successful fetch. HasState is false when
	// every fetch failed.
	LastState S
	HasState  bool

	// Err is the final attempt's fetch error, or the context error when the
	// run was cancelled.
	Err error
}

// Degraded reports whether the run ended without confirming the effect.
func (r Result[S]) Degraded() bool {
	return !r.Settled
}

// Runner executes requests. A zero Runner is not usable; use NewRunner.
type Runner struct {
	cfg     Config
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.ReconcileMetrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for sleeps between attempts.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMetrics records run outcomes.
func WithMetrics(m *metrics.ReconcileMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a Runner with the given default policy.
func NewRunner(cfg Config, opts ...Option) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}

	r := &Runner{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Config returns the runner's default policy.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run polls req.Fetch until req.Predicate holds or the attempts run out.
//
// Fetch errors count as non-matching observations. Cancelling ctx stops
// further attempts and returns what has been observed so far.
func Run[S any](ctx context.Context, r *Runner, req Request[S]) Result[S] {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = r.cfg.MaxAttempts
	}
	interval := r.cfg.Interval
	if req.HasInterval {
		interval = max(req.Interval, 0)
	}

	logger := r.logger.With("operation", req.Operation)
	var res Result[S]

	if req.Fetch == nil || req.Predicate == nil {
		res.Err = ErrInvalidRequest
		logger.Error("reconcile request rejected", "error", res.Err)
		return res
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			r.finish(logger, req.Operation, OutcomeCancelled, res.Attempts, res.Err)
			return res
		}

		res.Attempts = attempt
		state, err := req.Fetch(ctx)
		if err != nil {
			logger.Debug("reconcile fetch failed", "attempt", attempt, "error", err)
			if attempt == maxAttempts {
				res.Err = err
			}
		} else {
			res.LastState = state
			res.HasState = true
			if req.Predicate(state) {
				res.Settled = true
				res.Err = nil
				r.finish(logger, req.Operation, OutcomeSettled, res.Attempts, nil)
				return res
			}
		}

		if attempt < maxAttempts && interval > 0 {
			select {
			case <-ctx.Done():
				res.Err = ctx.Err()
				r.finish(logger, req.Operation, OutcomeCancelled, res.Attempts, res.Err)
				return res
			case <-r.clock.After(interval):
			}
		}
	}

	r.finish(logger, req.Operation, OutcomeExhausted, res.Attempts, res.Err)
	return res
}

func (r *Runner) finish(logger *slog.Logger, operation, outcome string, attempts int, err error) {
	r.metrics.Observe(operation, outcome, attempts)

	if outcome == OutcomeSettled {
		logger.Debug("reconcile settled", "attempts", attempts)
		return
	}
	logger.Warn("reconcile degraded", "outcome", outcome, "attempts", attempts, "error", err)
}
