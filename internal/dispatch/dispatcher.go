// Package dispatch delivers inbound frames to the handlers registered for
// their topic.
//
// Every handler gets its own parse of the body and its own invocation. A parse
// failure, returned error or panic in one handler is logged and counted; it
// never reaches the caller or the other handlers of the same frame.
package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/wildcastradio/radiolink/internal/metrics"
	"github.com/wildcastradio/radiolink/internal/model"
	"github.com/wildcastradio/radiolink/internal/subscription"
)

// ParseError reports a body that a handler's parser rejected.
type ParseError struct {
	Topic  string
	Handle subscription.Handle
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse payload on %s: %v", e.Topic, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HandlerError wraps an error returned or a panic raised by a handler.
type HandlerError struct {
	Topic    string
	Handle   subscription.Handle
	Err      error
	Panicked bool
}

func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("handler on %s panicked: %v", e.Topic, e.Err)
	}
	return fmt.Sprintf("handler on %s: %v", e.Topic, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Stats contains runtime statistics.
type Stats struct {
	FramesReceived int64
	Delivered      int64
	Unrouted       int64
	ParseErrors    int64
	HandlerErrors  int64
	Panics         int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.DispatchMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock sets the clock used to stamp frames delivered through OnFrame.
func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

// WithErrorHook is called for every contained parse or handler failure.
func WithErrorHook(fn func(error)) Option {
	return func(d *Dispatcher) { d.onError = fn }
}

// Dispatcher routes frames to registry handlers.
type Dispatcher struct {
	registry *subscription.Registry
	logger   *slog.Logger
	metrics  *metrics.DispatchMetrics
	clock    clockwork.Clock
	onError  func(error)

	received      atomic.Int64
	delivered     atomic.Int64
	unrouted      atomic.Int64
	parseErrors   atomic.Int64
	handlerErrors atomic.Int64
	panics        atomic.Int64
}

// New creates a Dispatcher reading handlers from registry.
func New(registry *subscription.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnFrame delivers a frame received now. It returns the number of handlers
// that completed without error.
func (d *Dispatcher) OnFrame(topic string, body []byte, headers map[string]string) int {
	return d.Deliver(Frame{
		Topic:      topic,
		Body:       body,
		Headers:    headers,
		ReceivedAt: d.clock.Now(),
	})
}

// Deliver invokes every handler registered for f.Topic.
func (d *Dispatcher) Deliver(f Frame) int {
	d.received.Add(1)

	entries := d.registry.Handlers(f.Topic)
	if len(entries) == 0 {
		d.unrouted.Add(1)
		d.metrics.Outcome(metrics.OutcomeUnrouted)
		d.logger.Debug("no handlers for frame", "topic", f.Topic)
		return 0
	}

	delivered := 0
	for _, e := range entries {
		payload, err := parsePayload(e.Handler, f.Body)
		if err != nil {
			d.parseErrors.Add(1)
			d.metrics.Outcome(metrics.OutcomeParseError)
			perr := &ParseError{Topic: f.Topic, Handle: e.Handle, Err: err}
			d.logger.Warn("failed to parse payload",
				"topic", f.Topic,
				"handle", e.Handle.ID,
				"error", err,
			)
			d.report(perr)
			continue
		}

		env := model.Envelope{
			Topic:      f.Topic,
			Body:       f.Body,
			Payload:    payload,
			Headers:    f.Headers,
			ReceivedAt: f.ReceivedAt,
		}
		if d.invoke(e, env) {
			delivered++
		}
	}

	d.delivered.Add(int64(delivered))
	return delivered
}

// invoke runs one handler, containing errors and panics.
func (d *Dispatcher) invoke(e subscription.Entry, env model.Envelope) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			d.metrics.Outcome(metrics.OutcomePanic)
			d.logger.Error("handler panicked",
				"topic", env.Topic,
				"handle", e.Handle.ID,
				"panic", r,
			)
			d.report(&HandlerError{Topic: env.Topic, Handle: e.Handle, Err: fmt.Errorf("%v", r), Panicked: true})
			ok = false
		}
	}()

	if err := e.Handler.Handle(env); err != nil {
		d.handlerErrors.Add(1)
		d.metrics.Outcome(metrics.OutcomeHandlerError)
		d.logger.Warn("handler returned error",
			"topic", env.Topic,
			"handle", e.Handle.ID,
			"error", err,
		)
		d.report(&HandlerError{Topic: env.Topic, Handle: e.Handle, Err: err})
		return false
	}

	d.metrics.Outcome(metrics.OutcomeDelivered)
	return true
}

func (d *Dispatcher) report(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}

// parsePayload uses the handler's parser when it has one, else decodes JSON.
// An empty body yields a nil payload. A panicking parser is a parse error.
func parsePayload(h subscription.Handler, body []byte) (v any, err error) {
	if p, ok := h.(subscription.PayloadParser); ok {
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, fmt.Errorf("parser panicked: %v", r)
			}
		}()
		return p.ParsePayload(body)
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		FramesReceived: d.received.Load(),
		Delivered:      d.delivered.Load(),
		Unrouted:       d.unrouted.Load(),
		ParseErrors:    d.parseErrors.Load(),
		HandlerErrors:  d.handlerErrors.Load(),
		Panics:         d.panics.Load(),
	}
}
