package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wildcastradio/radiolink/internal/apierror"
	"github.com/wildcastradio/radiolink/internal/backoff"
	"github.com/wildcastradio/radiolink/internal/version"
)

// retryJitter is the jitter applied to the retry schedule.
const retryJitter = 0.25

// doRequest performs one HTTP round trip. Non-2xx responses and transport
// failures come back classified.
func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.cred.Apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, "0", time.Since(start))
		return nil, apierror.FromError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(method, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, apierror.FromError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierror.Classify(resp.StatusCode, data, resp.Header)
	}

	return data, nil
}

// execute runs one attempt through the rate limiter and circuit breaker.
func (c *Client) execute(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierror.FromError(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	if c.breaker == nil {
		return c.doRequest(ctx, method, path, payload)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, method, path, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, c.breakerOpen(err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// breakerOpen builds the local circuit-breaker error returned while the
// client-side breaker rejects requests.
func (c *Client) breakerOpen(cause error) *apierror.Error {
	secs := int((c.breakerTimeout + time.Second - 1) / time.Second)
	header := http.Header{}
	header.Set("Retry-After", strconv.Itoa(secs))

	e := apierror.Classify(http.StatusServiceUnavailable, nil, header)
	e.StatusCode = 0
	e.RawMessage = cause.Error()
	e.Cause = cause
	return e
}

// countsAsSuccess tells the breaker which outcomes are healthy. Client
// mistakes and cancellations never trip it.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch apierror.KindOf(err) {
	case apierror.KindNetwork, apierror.KindCircuitBreaker:
		return false
	default:
		return true
	}
}

// shouldRetry reports whether a classified failure is worth another attempt.
// Writes are only retried when the server refused them outright.
func shouldRetry(method string, err *apierror.Error) bool {
	if err == nil || !err.Retryable {
		return false
	}
	switch err.Kind {
	case apierror.KindRateLimited:
		return true
	case apierror.KindNetwork:
		return method == http.MethodGet
	default:
		return false
	}
}

// doWithRetry performs a request with jittered exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var lastErr *apierror.Error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff.Delay(attempt, c.retryBackoff, c.maxBackoff, retryJitter)
			if lastErr.Kind == apierror.KindRateLimited && lastErr.HasRetryAfter {
				if hint := time.Duration(lastErr.RetryAfterSeconds) * time.Second; hint > wait {
					wait = hint
				}
			}
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", wait,
				"path", path,
				"kind", lastErr.Kind,
			)

			select {
			case <-ctx.Done():
				return nil, c.fail(apierror.FromError(ctx.Err()))
			case <-time.After(wait):
			}
		}

		body, err := c.execute(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}

		classified := apierror.FromError(err)
		if !shouldRetry(method, classified) {
			return nil, c.fail(classified)
		}
		lastErr = classified
	}

	c.logger.Warn("request retries exhausted",
		"method", method,
		"path", path,
		"attempts", c.maxRetries+1,
		"kind", lastErr.Kind,
	)
	return nil, c.fail(lastErr)
}

func (c *Client) fail(err *apierror.Error) *apierror.Error {
	c.metrics.Error(string(err.Kind))
	return err
}

// get performs a GET request with retries.
func (c *Client) get(ctx context.Context, path string, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// post performs a POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, in, result any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.doWithRetry(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}

	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
