package apierror

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// phraseMessage maps a state-transition phrase in the server message to the
// sentence shown to the user. Order matters: first match wins.
type phraseMessage struct {
	phrase string
	format string // may contain one %s for the raw server message
}

var stateConflictMessages = []phraseMessage{
	{"already LIVE", "This broadcast is already live. Cannot start again."},
	{"Cannot start", "Cannot start broadcast: %s"},
	{"already ENDED", "This broadcast has already ended."},
	{"Cannot end", "Cannot end broadcast: %s"},
	{"already SCHEDULED", "This broadcast is already scheduled."},
	{"already CANCELLED", "This broadcast has been cancelled."},
}

// Matched case-insensitively; they mark a conflict but have no canned sentence.
var stateConflictFoldedPhrases = []string{
	"cannot transition",
	"invalid state",
}

var circuitBreakerPhrases = []string{
	"circuit breaker",
	"temporarily unavailable",
}

// structuredCodes maps machine-readable "code" values to kinds.
var structuredCodes = map[string]Kind{
	"CIRCUIT_OPEN":             KindCircuitBreaker,
	"SERVICE_UNAVAILABLE":      KindCircuitBreaker,
	"STATE_CONFLICT":           KindStateConflict,
	"INVALID_STATE_TRANSITION": KindStateConflict,
	"UNAUTHORIZED":             KindAuth,
	"FORBIDDEN":                KindAuth,
	"NOT_FOUND":                KindNotFound,
	"RATE_LIMITED":             KindRateLimited,
	"TOO_MANY_REQUESTS":        KindRateLimited,
	"VALIDATION_ERROR":         KindValidation,
	"BAD_REQUEST":              KindValidation,
}

// responseBody is the subset of the server's error JSON we read.
type responseBody struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
	Code    string `json:"code"`
}

// Classify maps a failed response to a classified error. It never panics and
// always returns a non-nil value. status 0 means no response was received.
//
// Status rules are checked in priority order. Where a rule looks at the
// message text, a recognised "code" field in the body is used instead and the
// phrase tables are the fallback.
func Classify(status int, body []byte, header http.Header) *Error {
	message, code := extractMessage(body)
	retryAfter, hasRetryAfter := retryAfterSeconds(header)
	codeKind, hasCode := structuredCodes[strings.ToUpper(code)]

	circuitText := containsFold(message, circuitBreakerPhrases...)
	conflictText := isStateConflictMessage(message)
	if hasCode {
		circuitText = codeKind == KindCircuitBreaker
		conflictText = codeKind == KindStateConflict
	}

	kind := KindUnknown
	switch {
	case status == http.StatusServiceUnavailable || circuitText:
		kind = KindCircuitBreaker
	case status == http.StatusConflict || conflictText:
		kind = KindStateConflict
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500 || status == 0:
		kind = KindNetwork
	case status == http.StatusBadRequest:
		kind = KindValidation
	case hasCode:
		kind = codeKind
	}
	return build(kind, status, message, retryAfter, hasRetryAfter)
}

func build(kind Kind, status int, message string, retryAfter int, hasRetryAfter bool) *Error {
	e := &Error{
		Kind:       kind,
		StatusCode: status,
		RawMessage: message,
	}

	switch kind {
	case KindCircuitBreaker:
		if !hasRetryAfter {
			retryAfter = DefaultCircuitBreakerRetryAfter
		}
		e.Retryable = true
		e.RetryAfterSeconds = retryAfter
		e.HasRetryAfter = true
		e.UserMessage = fmt.Sprintf("Service temporarily unavailable. Please try again in %d seconds.", retryAfter)

	case KindStateConflict:
		e.UserMessage = StateConflictMessage(message)

	case KindAuth:
		if status == http.StatusForbidden {
			e.UserMessage = "You do not have permission to perform this action."
		} else {
			e.UserMessage = "Authentication required. Please log in again."
		}

	case KindNotFound:
		e.UserMessage = "Broadcast not found."

	case KindRateLimited:
		e.Retryable = true
		e.RetryAfterSeconds = retryAfter
		e.HasRetryAfter = hasRetryAfter
		e.UserMessage = "Too many requests. Please wait a moment and try again."

	case KindNetwork:
		e.Retryable = true
		if status == 0 {
			e.UserMessage = "Unable to reach the server. Please check your connection and try again."
		} else {
			e.UserMessage = "The server encountered an error. Please try again later."
		}

	case KindValidation:
		switch {
		case strings.Contains(strings.ToLower(message), "idempotency"):
			e.UserMessage = "Invalid request. Please try again."
		case message != "":
			e.UserMessage = message
		default:
			e.UserMessage = "Invalid request"
		}

	default:
		if message != "" {
			e.UserMessage = message
		} else {
			e.UserMessage = "An error occurred. Please try again."
		}
	}

	return e
}

// StateConflictMessage returns the user-facing sentence for a state-conflict
// server message.
func StateConflictMessage(raw string) string {
	for _, pm := range stateConflictMessages {
		if strings.Contains(raw, pm.phrase) {
			if strings.Contains(pm.format, "%s") {
				return fmt.Sprintf(pm.format, raw)
			}
			return pm.format
		}
	}
	return "Invalid operation: " + raw
}

func isStateConflictMessage(message string) bool {
	if message == "" {
		return false
	}
	for _, pm := range stateConflictMessages {
		if strings.Contains(message, pm.phrase) {
			return true
		}
	}
	return containsFold(message, stateConflictFoldedPhrases...)
}

func containsFold(s string, substrs ...string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// extractMessage reads "message", then "error", then falls back to the raw
// body text.
func extractMessage(body []byte) (message, code string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", ""
	}

	var rb responseBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return trimmed, ""
	}

	if rb.Message != "" {
		return rb.Message, rb.Code
	}
	if s, ok := rb.Error.(string); ok && s != "" {
		return s, rb.Code
	}
	if strings.HasPrefix(trimmed, "{") || trimmed == "null" {
		return "", rb.Code
	}
	return trimmed, rb.Code
}

// retryAfterSeconds reads Retry-After regardless of header key casing. Both
// delta-seconds and HTTP-date forms are accepted.
func retryAfterSeconds(header http.Header) (int, bool) {
	for key, values := range header {
		if !strings.EqualFold(key, "Retry-After") || len(values) == 0 {
			continue
		}

		v := strings.TrimSpace(values[0])
		if secs, err := strconv.Atoi(v); err == nil {
			if secs < 0 {
				return 0, false
			}
			return secs, true
		}

		if t, err := http.ParseTime(v); err == nil {
			secs := int(math.Ceil(time.Until(t).Seconds()))
			if secs < 0 {
				secs = 0
			}
			return secs, true
		}
		return 0, false
	}
	return 0, false
}
