package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wildcastradio/radiolink/internal/auth"
	"github.com/wildcastradio/radiolink/internal/metrics"
)

// Client provides access to the WildcastRadio REST API.
type Client struct {
	baseURL    string
	cred       auth.Credential
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.APIMetrics

	maxRetries   int
	retryBackoff time.Duration
	maxBackoff   time.Duration

	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	breakerTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// BreakerConfig configures the client-side circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Only network and
	// circuit-breaker responses count as failures.
	ConsecutiveFailures uint32

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// DefaultBreakerConfig trips after 5 consecutive failures and stays open 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
	}
}

// NewClient creates a new REST API client. baseURL is the server root, e.g.
// https://radio.example.com; the /api prefix is added per endpoint.
func NewClient(baseURL string, cred auth.Credential, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cred:    cred,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
		maxBackoff:   10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration. backoff is the base delay of the
// jittered exponential schedule between attempts.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if max < 0 {
			max = 0
		}
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records request durations, classified errors and breaker state.
func WithMetrics(m *metrics.APIMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit caps outgoing requests at perSecond with the given burst.
// A non-positive perSecond disables limiting.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBreaker enables the client-side circuit breaker.
func WithBreaker(cfg BreakerConfig) ClientOption {
	return func(c *Client) {
		if cfg.ConsecutiveFailures == 0 {
			cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = DefaultBreakerConfig().Timeout
		}
		c.breakerTimeout = cfg.Timeout
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "radiolink-api",
			Timeout: cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			IsSuccessful: countsAsSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("api circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
				c.metrics.SetBreakerState(int(to))
			},
		})
	}
}

// BreakerState returns the client-side breaker state, or closed when no
// breaker is configured.
func (c *Client) BreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}
