// Package apierror classifies failed REST responses into typed, user-facing
// errors.
//
// Classification is a total function over (status, body, headers). The server
// does not reliably send machine-readable error codes, so free-text phrase
// matching on the body's "message"/"error" fields remains part of the rules.
// A recognised "code" field, when present, replaces the phrase checks in
// rules 1 and 2 and decides rule 8. It never overrides a status rule.
//
// Priority order:
//  1. 503 or circuit-breaker text      -> KindCircuitBreaker (retryable)
//  2. 409 or state-transition phrases  -> KindStateConflict
//  3. 401 / 403                        -> KindAuth
//  4. 404                              -> KindNotFound
//  5. 429                              -> KindRateLimited (retryable)
//  6. >= 500 or 0 (no response)        -> KindNetwork (retryable)
//  7. 400                              -> KindValidation
//  8. anything else                    -> kind of the "code" field, else KindUnknown
package apierror
