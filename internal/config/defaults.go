package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL      = "http://localhost:8080"
	DefaultAPITimeout   = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 1 * time.Second
	DefaultRateBurst    = 5

	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second

	DefaultAuthMode = "bearer"

	DefaultTransport            = "websocket"
	DefaultWSPath               = "/ws-radio"
	DefaultConnectTimeout       = 30 * time.Second
	DefaultHeartbeat            = 10 * time.Second
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultReconnectJitter      = 0.25
	DefaultMaxReconnectAttempts = 10
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultPingTimeout          = 60 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBufferSize           = 1024
	DefaultQueueSize            = 256

	DefaultReconcileAttempts = 8
	DefaultReconcileInterval = 800 * time.Millisecond

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}
	if c.API.RateLimit > 0 && c.API.RateBurst == 0 {
		c.API.RateBurst = DefaultRateBurst
	}
	if c.API.Breaker.ConsecutiveFailures == 0 {
		c.API.Breaker.ConsecutiveFailures = DefaultBreakerFailures
	}
	if c.API.Breaker.Timeout == 0 {
		c.API.Breaker.Timeout = DefaultBreakerTimeout
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = DefaultAuthMode
	}

	// Connection defaults
	applyConnectionDefaults(&c.Connection)

	// Reconcile defaults
	if c.Reconcile.MaxAttempts == 0 {
		c.Reconcile.MaxAttempts = DefaultReconcileAttempts
	}
	if c.Reconcile.Interval == 0 {
		c.Reconcile.Interval = DefaultReconcileInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyConnectionDefaults(c *ConnectionConfig) {
	if c.Transport == "" {
		c.Transport = DefaultTransport
	}
	if c.WSPath == "" {
		c.WSPath = DefaultWSPath
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.HeartbeatOutgoing == 0 {
		c.HeartbeatOutgoing = DefaultHeartbeat
	}
	if c.HeartbeatIncoming == 0 {
		c.HeartbeatIncoming = DefaultHeartbeat
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.ReconnectJitter == 0 {
		c.ReconnectJitter = DefaultReconnectJitter
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
}
