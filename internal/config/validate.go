package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validateURL("api.base_url", c.API.BaseURL, "http", "https"); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit must be >= 0")
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		return errors.New("api.rate_burst must be >= 1 when api.rate_limit is set")
	}

	switch c.Auth.Mode {
	case "bearer", "cookie":
	default:
		return fmt.Errorf("auth.mode must be bearer or cookie, got %q", c.Auth.Mode)
	}

	if err := c.Connection.validate("connection"); err != nil {
		return err
	}

	if c.Reconcile.MaxAttempts < 1 {
		return errors.New("reconcile.max_attempts must be >= 1")
	}
	if c.Reconcile.Interval < 0 {
		return errors.New("reconcile.interval must be >= 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (c *ConnectionConfig) validate(prefix string) error {
	switch c.Transport {
	case "websocket", "sockjs":
	default:
		return fmt.Errorf("%s.transport must be websocket or sockjs, got %q", prefix, c.Transport)
	}
	if c.URL != "" {
		if err := validateURL(prefix+".url", c.URL, "http", "https", "ws", "wss"); err != nil {
			return err
		}
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%s.connect_timeout must be > 0", prefix)
	}
	if c.HeartbeatOutgoing < 0 || c.HeartbeatIncoming < 0 {
		return fmt.Errorf("%s.heartbeat_outgoing and heartbeat_incoming must be >= 0", prefix)
	}
	if c.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("%s.reconnect_base_delay must be > 0", prefix)
	}
	if c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("%s.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			prefix, c.ReconnectMaxDelay, c.ReconnectBaseDelay)
	}
	if c.ReconnectJitter > 1 {
		return fmt.Errorf("%s.reconnect_jitter must be <= 1, got %g", prefix, c.ReconnectJitter)
	}
	if c.MaxReconnectAttempts < 1 {
		return fmt.Errorf("%s.max_reconnect_attempts must be >= 1", prefix)
	}
	if c.PingInterval > 0 && c.PingTimeout <= c.PingInterval {
		return fmt.Errorf("%s.ping_timeout (%s) must exceed ping_interval (%s)", prefix, c.PingTimeout, c.PingInterval)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("%s.buffer_size must be >= 1", prefix)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%s.queue_size must be >= 1", prefix)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %v URL, got %q", field, schemes, raw)
}
