package config

import (
	"strings"

	"github.com/wildcastradio/radiolink/internal/api"
	"github.com/wildcastradio/radiolink/internal/auth"
	"github.com/wildcastradio/radiolink/internal/backoff"
	"github.com/wildcastradio/radiolink/internal/connection"
	"github.com/wildcastradio/radiolink/internal/reconcile"
	"github.com/wildcastradio/radiolink/internal/stomp"
	"github.com/wildcastradio/radiolink/internal/transport"
)

// Credential resolves the configured token.
func (c *Config) Credential() (auth.Credential, error) {
	return auth.LoadCredential(c.Auth.Token, c.Auth.TokenFile, auth.Mode(c.Auth.Mode))
}

// EndpointURL returns the STOMP endpoint, derived from api.base_url when
// connection.url is empty.
func (c *Config) EndpointURL() string {
	if c.Connection.URL != "" {
		return c.Connection.URL
	}
	return strings.TrimRight(c.API.BaseURL, "/") + "/" + strings.TrimLeft(c.Connection.WSPath, "/")
}

// TransportConfig builds the transport adapter config.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		URL:              c.EndpointURL(),
		Kind:             c.Connection.Transport,
		HandshakeTimeout: c.Connection.HandshakeTimeout,
		PingInterval:     c.Connection.PingInterval,
		PingTimeout:      c.Connection.PingTimeout,
		WriteTimeout:     c.Connection.WriteTimeout,
		BufferSize:       c.Connection.BufferSize,
	}
}

// BackoffPolicy builds the reconnect policy.
func (c *ConnectionConfig) BackoffPolicy() backoff.Policy {
	return backoff.Policy{
		Base:          c.ReconnectBaseDelay,
		Max:           c.ReconnectMaxDelay,
		JitterPercent: c.ReconnectJitter,
		MaxAttempts:   c.MaxReconnectAttempts,
	}
}

// ManagerConfig builds the connection manager config.
func (c *ConnectionConfig) ManagerConfig() connection.Config {
	return connection.Config{
		Host:           c.Host,
		ConnectTimeout: c.ConnectTimeout,
		HeartBeat: stomp.HeartBeat{
			Outgoing: c.HeartbeatOutgoing,
			Incoming: c.HeartbeatIncoming,
		},
		Backoff:   c.BackoffPolicy(),
		QueueSize: c.QueueSize,
	}
}

// RunnerConfig builds the reconciliation policy.
func (c *ReconcileConfig) RunnerConfig() reconcile.Config {
	return reconcile.Config{
		MaxAttempts: c.MaxAttempts,
		Interval:    c.Interval,
	}
}

// ClientOptions builds REST client options. Logger and metrics are added by
// the caller.
func (c *APIConfig) ClientOptions() []api.ClientOption {
	opts := []api.ClientOption{
		api.WithTimeout(c.Timeout),
		api.WithRetries(c.MaxRetries, c.RetryBackoff),
	}
	if c.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(c.RateLimit, c.RateBurst))
	}
	if c.Breaker.Enabled {
		opts = append(opts, api.WithBreaker(api.BreakerConfig{
			ConsecutiveFailures: c.Breaker.ConsecutiveFailures,
			Timeout:             c.Breaker.Timeout,
		}))
	}
	return opts
}
