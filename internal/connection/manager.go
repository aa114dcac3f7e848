package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/wildcastradio/radiolink/internal/auth"
	"github.com/wildcastradio/radiolink/internal/backoff"
	"github.com/wildcastradio/radiolink/internal/dispatch"
	"github.com/wildcastradio/radiolink/internal/metrics"
	"github.com/wildcastradio/radiolink/internal/stomp"
	"github.com/wildcastradio/radiolink/internal/subscription"
	"github.com/wildcastradio/radiolink/internal/topic"
	"github.com/wildcastradio/radiolink/internal/transport"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records connection and dispatch metrics.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt.Connection
			m.dispatchMetrics = mt.Dispatch
		}
	}
}

// WithClock sets the clock used for backoff sleeps, timeouts and heart-beats.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithBackoff overrides cfg.Backoff.
func WithBackoff(p backoff.Policy) Option {
	return func(m *Manager) { m.cfg.Backoff = p }
}

// OnStateChange registers fn for state transitions. fn runs synchronously
// while the Manager's lock is held and must not call back into the Manager.
func OnStateChange(fn func(from, to State)) Option {
	return func(m *Manager) { m.onState = fn }
}

// Manager owns the shared STOMP connection, its subscription registry and
// its dispatcher.
type Manager struct {
	cfg             Config
	dial            transport.Dialer
	logger          *slog.Logger
	metrics         *metrics.ConnectionMetrics
	dispatchMetrics *metrics.DispatchMetrics
	clock           clockwork.Clock
	onState         func(from, to State)

	registry   *subscription.Registry
	dispatcher *dispatch.Dispatcher

	connects   singleflight.Group
	state      atomic.Int32
	generation atomic.Uint64 // bumped by Disconnect
	subSeq     atomic.Uint64
	reconnects atomic.Int64

	// Guarded by mu
	mu              sync.Mutex
	sess            *session
	cred            auth.Credential
	wire            map[string]string // topic → subscription id on the current session
	wireTopics      map[string]string // subscription id → topic
	failed          int               // reconnect attempts since the last success
	reconnectCancel context.CancelFunc
	connectCancel   context.CancelFunc
	connectedAt     time.Time
}

// NewManager creates a Connection Manager. dial creates a fresh transport
// for every connect attempt.
func NewManager(cfg Config, dial transport.Dialer, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	m := &Manager{
		cfg:        cfg,
		dial:       dial,
		logger:     slog.Default(),
		clock:      clockwork.NewRealClock(),
		registry:   subscription.NewRegistry(),
		wire:       make(map[string]string),
		wireTopics: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.dispatcher = dispatch.New(m.registry,
		dispatch.WithLogger(m.logger.With("component", "dispatch")),
		dispatch.WithMetrics(m.dispatchMetrics),
		dispatch.WithClock(m.clock),
	)
	m.metrics.SetState(Disconnected.String())

	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Registry returns the subscription registry owned by the Manager.
func (m *Manager) Registry() *subscription.Registry {
	return m.registry
}

// Dispatcher returns the dispatcher owned by the Manager.
func (m *Manager) Dispatcher() *dispatch.Dispatcher {
	return m.dispatcher
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	wire := len(m.wire)
	failed := m.failed
	since := m.connectedAt
	m.mu.Unlock()

	return Stats{
		State:             m.State(),
		Topics:            len(m.registry.Topics()),
		Handlers:          m.registry.Len(),
		WireSubscriptions: wire,
		ReconnectAttempts: failed,
		Reconnects:        m.reconnects.Load(),
		ConnectedSince:    since,
		Dispatch:          m.dispatcher.Stats(),
	}
}

// Connect opens the shared connection with cred. Concurrent calls share one
// attempt. ctx bounds only the caller's wait; the attempt itself is bounded by
// Config.ConnectTimeout and cancelled by Disconnect.
func (m *Manager) Connect(ctx context.Context, cred auth.Credential) error {
	if m.State() == Connected {
		return nil
	}

	m.mu.Lock()
	m.cred = cred
	if m.State() == Failed {
		m.failed = 0
	}
	m.mu.Unlock()

	ch := m.connects.DoChan("connect", func() (any, error) {
		return nil, m.connectOnce()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler on dest and subscribes the topic on the wire
// when it is new. While Reconnecting the registration is kept and replayed
// once the connection is back.
func (m *Manager) Subscribe(ctx context.Context, dest string, handler subscription.Handler, cred auth.Credential) (subscription.Handle, error) {
	if !topic.IsValid(dest) {
		return subscription.Handle{}, fmt.Errorf("%w: %q", ErrInvalidTopic, dest)
	}
	if handler == nil {
		return subscription.Handle{}, fmt.Errorf("subscribe %s: nil handler", dest)
	}

	if s := m.State(); s != Connected && s != Reconnecting {
		if err := m.Connect(ctx, cred); err != nil {
			return subscription.Handle{}, fmt.Errorf("subscribe %s: %w", dest, err)
		}
	}

	h, added := m.registry.Add(dest, handler, cred)
	if !added {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.State() != Connected {
		return h, nil
	}
	if _, ok := m.wire[dest]; ok {
		return h, nil
	}
	m.subscribeLocked(dest, cred)

	return h, nil
}

// Unsubscribe removes the registration. The wire subscription is dropped when
// the topic's last handler goes.
func (m *Manager) Unsubscribe(h subscription.Handle) error {
	empty, ok := m.registry.Remove(h)
	if !ok {
		return ErrUnknownHandle
	}
	if !empty {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A concurrent Subscribe may have re-registered the topic.
	if m.registry.Has(h.Topic) {
		return nil
	}
	id, onWire := m.wire[h.Topic]
	if !onWire {
		return nil
	}
	delete(m.wire, h.Topic)
	delete(m.wireTopics, id)
	m.metrics.SetSubscriptions(len(m.wire))

	if m.sess != nil {
		if err := m.sess.sendFrame(stomp.Unsubscribe(id)); err != nil {
			m.logger.Warn("failed to send unsubscribe", "topic", h.Topic, "error", err)
		}
	}
	m.logger.Debug("unsubscribed", "topic", h.Topic, "id", id)
	return nil
}

// Publish sends payload as JSON to dest. Delivery is fire-and-forget; when
// not connected the message is logged and dropped.
func (m *Manager) Publish(dest string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", dest, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.State() != Connected {
		m.logger.Warn("publish while not connected, dropping", "destination", dest)
		return ErrNotConnected
	}
	if err := m.sess.sendFrame(stomp.Send(dest, body)); err != nil {
		m.logger.Warn("failed to publish", "destination", dest, "error", err)
		return fmt.Errorf("publish %s: %w", dest, err)
	}
	return nil
}

// Disconnect closes the connection, cancels any pending reconnect or
// in-flight connect and clears the registry. Safe to call repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.generation.Add(1)

	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	if m.connectCancel != nil {
		m.connectCancel()
		m.connectCancel = nil
	}

	s := m.sess
	m.sess = nil
	m.clearWireLocked()
	m.registry.Clear()
	m.failed = 0
	m.connectedAt = time.Time{}
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if s != nil {
		if err := s.sendFrame(stomp.Disconnect("")); err != nil {
			m.logger.Debug("failed to send disconnect", "error", err)
		}
		s.close()
		m.logger.Info("disconnected")
	}
}

// connectOnce runs one connect attempt. Only one runs at a time.
func (m *Manager) connectOnce() error {
	m.mu.Lock()
	if m.sess != nil && m.State() == Connected {
		m.mu.Unlock()
		return nil
	}

	gen := m.generation.Load()
	wasReconnecting := m.State() == Reconnecting
	if !wasReconnecting {
		m.setStateLocked(Connecting)
	}
	cred := m.cred

	ctx, cancel := clockwork.WithTimeout(context.Background(), m.clock, m.cfg.ConnectTimeout)
	m.connectCancel = cancel
	m.mu.Unlock()
	defer cancel()

	tr := m.dial()
	hb, err := m.handshake(ctx, tr, cred)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCancel = nil

	if gen != m.generation.Load() {
		tr.Close()
		return ErrClosed
	}

	if err != nil {
		tr.Close()
		result := "error"
		// The context only ends early on timeout; Disconnect was handled above.
		if ctx.Err() != nil {
			result = "timeout"
			err = ErrConnectTimeout
		}
		m.metrics.ConnectAttempt(result)
		m.logger.Warn("connect failed", "error", err, "reconnecting", wasReconnecting)

		if !wasReconnecting {
			m.setStateLocked(Failed)
		}
		return fmt.Errorf("%w: %w", ErrFailed, err)
	}

	m.metrics.ConnectAttempt("success")
	s := newSession(m, tr, gen, hb)
	m.sess = s
	m.failed = 0
	m.connectedAt = m.clock.Now()
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	if wasReconnecting {
		m.reconnects.Add(1)
		m.metrics.Reconnected()
	}
	m.setStateLocked(Connected)
	s.start()

	m.replayLocked()

	m.logger.Info("connected",
		"topics", len(m.wire),
		"heartbeat_send", hb.send,
		"heartbeat_expect", hb.expect,
	)
	return nil
}

// replayLocked subscribes every registry topic on the new session.
func (m *Manager) replayLocked() {
	for _, t := range m.registry.Topics() {
		if _, ok := m.wire[t]; ok {
			continue
		}
		var cred auth.Credential
		if entries := m.registry.Handlers(t); len(entries) > 0 {
			cred = entries[0].Credential
		}
		m.subscribeLocked(t, cred)
	}
}

// subscribeLocked marks dest as subscribed and sends SUBSCRIBE. A failed send
// leaves the mark in place; the transport drop that follows triggers replay.
func (m *Manager) subscribeLocked(dest string, cred auth.Credential) {
	id := "sub-" + strconv.FormatUint(m.subSeq.Add(1), 10)
	m.wire[dest] = id
	m.wireTopics[id] = dest
	m.metrics.SetSubscriptions(len(m.wire))

	f := stomp.Subscribe(id, dest)
	for k, v := range cred.ConnectHeaders() {
		f.Header.Set(k, v)
	}
	if err := m.sess.sendFrame(f); err != nil {
		m.logger.Warn("failed to send subscribe", "topic", dest, "error", err)
		return
	}
	m.logger.Debug("subscribed", "topic", dest, "id", id)
}

func (m *Manager) clearWireLocked() {
	m.wire = make(map[string]string)
	m.wireTopics = make(map[string]string)
	m.metrics.SetSubscriptions(0)
}

// topicFor resolves the registry topic of an inbound MESSAGE.
func (m *Manager) topicFor(f *frame.Frame) string {
	if id := f.Header.Get(frame.Subscription); id != "" {
		m.mu.Lock()
		t, ok := m.wireTopics[id]
		m.mu.Unlock()
		if ok {
			return t
		}
	}
	return f.Header.Get(frame.Destination)
}

// connectionLost handles a transport drop on session s.
func (m *Manager) connectionLost(s *session, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != s {
		return
	}
	m.sess = nil
	m.clearWireLocked()
	m.connectedAt = time.Time{}
	s.close()

	if m.registry.Len() == 0 {
		m.logger.Info("connection closed", "error", cause)
		m.setStateLocked(Disconnected)
		return
	}

	m.logger.Warn("connection lost, reconnecting",
		"error", cause,
		"topics", len(m.registry.Topics()),
	)
	m.setStateLocked(Reconnecting)

	ctx, cancel := context.WithCancel(context.Background())
	m.reconnectCancel = cancel
	go m.reconnectLoop(ctx)
}

// setStateLocked records a transition. Callers hold mu.
func (m *Manager) setStateLocked(to State) {
	from := State(m.state.Swap(int32(to)))
	if from == to {
		return
	}
	m.metrics.SetState(to.String())
	m.logger.Debug("state change", "from", from, "to", to)
	if m.onState != nil {
		m.onState(from, to)
	}
}
