package connection

import (
	"errors"
	"time"

	"github.com/wildcastradio/radiolink/internal/backoff"
	"github.com/wildcastradio/radiolink/internal/dispatch"
	"github.com/wildcastradio/radiolink/internal/stomp"
)

// Errors
var (
	ErrNotConnected   = errors.New("not connected")
	ErrConnectTimeout = errors.New("connect timeout")
	ErrClosed         = errors.New("connection closed")
	ErrFailed         = errors.New("connect failed")
	ErrHeartBeat      = errors.New("no heart-beat from server")
	ErrUnknownHandle  = errors.New("unknown subscription handle")
	ErrInvalidTopic   = errors.New("invalid topic")
)

// BrokerError is a STOMP ERROR frame received from the server.
type BrokerError struct {
	Message string
}

func (e *BrokerError) Error() string {
	return "broker error: " + e.Message
}

// State is the connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Config configures the Connection Manager.
type Config struct {
	Host           string          // STOMP host header; empty omits it
	ConnectTimeout time.Duration   // Time allowed for transport open plus CONNECTED
	HeartBeat      stomp.HeartBeat // Heart-beat offer sent on CONNECT
	Backoff        backoff.Policy  // Reconnect delays and attempt budget
	QueueSize      int             // Initial capacity of the per-session dispatch queue
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		HeartBeat: stomp.HeartBeat{
			Outgoing: 10 * time.Second,
			Incoming: 10 * time.Second,
		},
		Backoff:   backoff.DefaultPolicy(),
		QueueSize: 256,
	}
}

// Stats provides statistics about the connection manager.
type Stats struct {
	State             State
	Topics            int // Topics in the registry
	Handlers          int // Registered handlers
	WireSubscriptions int // Topics subscribed on the current session
	ReconnectAttempts int // Failed attempts since the last successful connect
	Reconnects        int64
	ConnectedSince    time.Time
	Dispatch          dispatch.Stats
}
