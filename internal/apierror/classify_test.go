package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, message string) []byte {
	t.Helper()
	return []byte(fmt.Sprintf(`{"message":%q}`, message))
}

func TestClassify_CircuitBreakerWithRetryAfter(t *testing.T) {
	e := Classify(503, []byte(`{}`), http.Header{"Retry-After": []string{"45"}})

	assert.Equal(t, KindCircuitBreaker, e.Kind)
	assert.True(t, e.Retryable)
	assert.True(t, e.HasRetryAfter)
	assert.Equal(t, 45, e.RetryAfterSeconds)
	assert.Equal(t, "Service temporarily unavailable. Please try again in 45 seconds.", e.UserMessage)
}

func TestClassify_CircuitBreakerDefaultRetryAfter(t *testing.T) {
	e := Classify(503, nil, nil)

	assert.Equal(t, KindCircuitBreaker, e.Kind)
	assert.Equal(t, DefaultCircuitBreakerRetryAfter, e.RetryAfterSeconds)
}

func TestClassify_RetryAfterHeaderCaseInsensitive(t *testing.T) {
	header := http.Header{}
	header["retry-after"] = []string{" 12 "}

	e := Classify(503, nil, header)
	assert.Equal(t, 12, e.RetryAfterSeconds)
}

func TestClassify_RetryAfterHTTPDate(t *testing.T) {
	when := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	e := Classify(503, nil, http.Header{"Retry-After": []string{when}})

	assert.InDelta(t, 90, e.RetryAfterSeconds, 2)
}

func TestClassify_RetryAfterGarbageUsesDefault(t *testing.T) {
	e := Classify(503, nil, http.Header{"Retry-After": []string{"soon"}})
	assert.Equal(t, DefaultCircuitBreakerRetryAfter, e.RetryAfterSeconds)
}

func TestClassify_CircuitBreakerByMessage(t *testing.T) {
	tests := []string{
		"Circuit breaker is OPEN for broadcast operations",
		"Service temporarily unavailable",
	}
	for _, msg := range tests {
		t.Run(msg, func(t *testing.T) {
			e := Classify(500, jsonBody(t, msg), nil)
			assert.Equal(t, KindCircuitBreaker, e.Kind)
			assert.True(t, e.Retryable)
			assert.Equal(t, 60, e.RetryAfterSeconds)
		})
	}
}

func TestClassify_StateConflictTable(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Broadcast already LIVE", "This broadcast is already live. Cannot start again."},
		{"Cannot start a broadcast in ENDED state", "Cannot start broadcast: Cannot start a broadcast in ENDED state"},
		{"Broadcast already ENDED", "This broadcast has already ended."},
		{"Cannot end broadcast that is not LIVE", "Cannot end broadcast: Cannot end broadcast that is not LIVE"},
		{"Broadcast already SCHEDULED", "This broadcast is already scheduled."},
		{"Broadcast already CANCELLED", "This broadcast has been cancelled."},
		{"Something odd", "Invalid operation: Something odd"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			e := Classify(409, jsonBody(t, tt.raw), nil)
			assert.Equal(t, KindStateConflict, e.Kind)
			assert.False(t, e.Retryable)
			assert.Equal(t, tt.want, e.UserMessage)
			assert.Equal(t, tt.raw, e.RawMessage)
		})
	}
}

func TestClassify_StateConflictByPhraseOnOtherStatus(t *testing.T) {
	e := Classify(400, jsonBody(t, "Cannot transition from ENDED to LIVE"), nil)
	assert.Equal(t, KindStateConflict, e.Kind)
	assert.Equal(t, "Invalid operation: Cannot transition from ENDED to LIVE", e.UserMessage)

	e = Classify(500, jsonBody(t, "Broadcast already LIVE"), nil)
	assert.Equal(t, KindStateConflict, e.Kind)
}

func TestClassify_PriorityCircuitBreakerBeatsConflict(t *testing.T) {
	e := Classify(503, jsonBody(t, "Broadcast already LIVE"), nil)
	assert.Equal(t, KindCircuitBreaker, e.Kind)
}

func TestClassify_StatusKinds(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
		message   string
	}{
		{401, KindAuth, false, "Authentication required. Please log in again."},
		{403, KindAuth, false, "You do not have permission to perform this action."},
		{404, KindNotFound, false, "Broadcast not found."},
		{429, KindRateLimited, true, "Too many requests. Please wait a moment and try again."},
		{500, KindNetwork, true, "The server encountered an error. Please try again later."},
		{502, KindNetwork, true, "The server encountered an error. Please try again later."},
		{0, KindNetwork, true, "Unable to reach the server. Please check your connection and try again."},
		{400, KindValidation, false, "Invalid request"},
		{418, KindUnknown, false, "An error occurred. Please try again."},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			e := Classify(tt.status, nil, nil)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, tt.message, e.UserMessage)
			assert.Equal(t, tt.status, e.StatusCode)
		})
	}
}

func TestClassify_RateLimitedCarriesRetryAfter(t *testing.T) {
	e := Classify(429, nil, http.Header{"Retry-After": []string{"5"}})
	assert.True(t, e.HasRetryAfter)
	assert.Equal(t, 5, e.RetryAfterSeconds)

	e = Classify(429, nil, nil)
	assert.False(t, e.HasRetryAfter)
}

func TestClassify_ValidationMessages(t *testing.T) {
	e := Classify(400, jsonBody(t, "title must not be blank"), nil)
	assert.Equal(t, "title must not be blank", e.UserMessage)

	e = Classify(400, jsonBody(t, "Missing Idempotency-Key header"), nil)
	assert.Equal(t, "Invalid request. Please try again.", e.UserMessage)
}

func TestClassify_MessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"from message","error":"from error"}`, "from message"},
		{"error field", `{"error":"from error"}`, "from error"},
		{"non-string error", `{"error":{"detail":"x"}}`, ""},
		{"plain text", "upstream exploded", "upstream exploded"},
		{"json null", "null", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Classify(418, []byte(tt.body), nil)
			assert.Equal(t, tt.want, e.RawMessage)
		})
	}
}

func TestClassify_StructuredCode(t *testing.T) {
	t.Run("replaces phrase matching on 400", func(t *testing.T) {
		e := Classify(400, []byte(`{"code":"state_conflict","message":"Broadcast already ENDED"}`), nil)
		assert.Equal(t, KindStateConflict, e.Kind)
		assert.Equal(t, "This broadcast has already ended.", e.UserMessage)

		e = Classify(400, []byte(`{"code":"VALIDATION_ERROR","message":"cannot transition from draft"}`), nil)
		assert.Equal(t, KindValidation, e.Kind)
	})

	t.Run("circuit code on other status", func(t *testing.T) {
		e := Classify(401, []byte(`{"code":"CIRCUIT_OPEN"}`), nil)
		assert.Equal(t, KindCircuitBreaker, e.Kind)
		assert.Equal(t, DefaultCircuitBreakerRetryAfter, e.RetryAfterSeconds)
	})

	t.Run("503 stays circuit breaker", func(t *testing.T) {
		for _, code := range []string{"STATE_CONFLICT", "NOT_FOUND", "RATE_LIMITED", "BAD_REQUEST", "SOMETHING_ELSE"} {
			body := []byte(fmt.Sprintf(`{"code":%q}`, code))
			e := Classify(503, body, http.Header{"Retry-After": []string{"45"}})
			assert.Equal(t, KindCircuitBreaker, e.Kind, code)
			assert.True(t, e.Retryable, code)
			assert.Equal(t, 45, e.RetryAfterSeconds, code)
		}
	})

	t.Run("409 stays state conflict", func(t *testing.T) {
		e := Classify(409, []byte(`{"code":"BAD_REQUEST","message":"Broadcast already LIVE"}`), nil)
		assert.Equal(t, KindStateConflict, e.Kind)
		assert.False(t, e.Retryable)
		assert.Equal(t, StateConflictMessage("Broadcast already LIVE"), e.UserMessage)
		assert.NotEqual(t, "Broadcast already LIVE", e.UserMessage)
	})

	t.Run("status kinds are not overridden", func(t *testing.T) {
		tests := []struct {
			status int
			code   string
			want   Kind
		}{
			{401, "NOT_FOUND", KindAuth},
			{403, "RATE_LIMITED", KindAuth},
			{404, "UNAUTHORIZED", KindNotFound},
			{429, "BAD_REQUEST", KindRateLimited},
			{500, "RATE_LIMITED", KindNetwork},
			{400, "NOT_FOUND", KindValidation},
		}
		for _, tt := range tests {
			e := Classify(tt.status, []byte(fmt.Sprintf(`{"code":%q}`, tt.code)), nil)
			assert.Equal(t, tt.want, e.Kind, "%d %s", tt.status, tt.code)
		}
	})

	t.Run("unknown status falls back to code", func(t *testing.T) {
		e := Classify(418, []byte(`{"code":"RATE_LIMITED"}`), nil)
		assert.Equal(t, KindRateLimited, e.Kind)

		e = Classify(418, []byte(`{"code":"NOPE"}`), nil)
		assert.Equal(t, KindUnknown, e.Kind)
	})
}

func TestClassify_NeverNil(t *testing.T) {
	for _, status := range []int{-1, 0, 100, 200, 302, 499, 599, 999} {
		require.NotNil(t, Classify(status, []byte("{not json"), nil))
	}
}

func TestFromError(t *testing.T) {
	t.Run("passes through classified", func(t *testing.T) {
		orig := Classify(404, nil, nil)
		wrapped := fmt.Errorf("get broadcast: %w", orig)
		assert.Same(t, orig, FromError(wrapped))
	})

	t.Run("transport failure is network", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		e := FromError(cause)
		assert.Equal(t, KindNetwork, e.Kind)
		assert.True(t, e.Retryable)
		assert.ErrorIs(t, e, cause)
	})

	t.Run("deadline", func(t *testing.T) {
		e := FromError(context.DeadlineExceeded)
		assert.Equal(t, KindNetwork, e.Kind)
		assert.Contains(t, e.UserMessage, "too long")
	})

	t.Run("cancelled is not retryable", func(t *testing.T) {
		e := FromError(context.Canceled)
		assert.False(t, e.Retryable)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, FromError(nil))
	})
}

func TestHelpers(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Classify(429, nil, nil))
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, &Error{Kind: KindRateLimited}))
	assert.False(t, errors.Is(err, &Error{Kind: KindAuth}))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, "no response", StatusText(0))
	assert.Equal(t, "Not Found", StatusText(404))
}
