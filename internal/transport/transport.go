package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("transport not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("transport already closed")
	ErrAlreadyDialed   = errors.New("transport already dialed")
	ErrUnknownKind     = errors.New("unknown transport kind")
)

// Kinds accepted by ForKind.
const (
	KindWebSocket = "websocket"
	KindSockJS    = "sockjs"
)

// Message is one application message with its local receive time.
type Message struct {
	Data       []byte    // Raw message bytes
	ReceivedAt time.Time // Local timestamp when the read returned
}

// Transport is a single duplex connection. A Transport is dialed at most once;
// reconnecting means creating a new one through a Dialer.
type Transport interface {
	// Dial opens the connection. header is sent with the upgrade request.
	Dial(ctx context.Context, header http.Header) error

	// Send writes one application message.
	Send(data []byte) error

	// Messages returns received application messages.
	Messages() <-chan Message

	// Errors receives at most one error when the connection drops.
	Errors() <-chan error

	// Close closes the connection. Safe to call more than once.
	Close() error

	// IsConnected reports whether the connection is open.
	IsConnected() bool
}

// Dialer creates a fresh, undialed Transport.
type Dialer func() Transport

// Config configures both adapters.
type Config struct {
	URL              string        // Endpoint, e.g. https://radio.example.com/ws-radio
	Kind             string        // "websocket" or "sockjs"
	HandshakeTimeout time.Duration // Upgrade and SockJS /info timeout
	PingInterval     time.Duration // How often to send WebSocket pings
	PingTimeout      time.Duration // Max time without pong/data before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Kind:             KindWebSocket,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// ForKind returns a Dialer for the named adapter.
func ForKind(kind string, cfg Config, logger *slog.Logger) (Dialer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch kind {
	case "", KindWebSocket:
		return func() Transport { return NewWebSocket(cfg, logger) }, nil
	case KindSockJS:
		return func() Transport { return NewSockJS(cfg, logger) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// websocketURL rewrites http(s) schemes to ws(s).
func websocketURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return u, nil
}

// httpURL rewrites ws(s) schemes to http(s).
func httpURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return u, nil
}
