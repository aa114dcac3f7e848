// Package backoff computes reconnect delays using capped exponential backoff
// with symmetric jitter.
package backoff

import (
	"math/rand/v2"
	"time"
)

// MinDelay is the floor applied after jitter.
const MinDelay = 100 * time.Millisecond

// Default policy values.
const (
	DefaultBase          = 1 * time.Second
	DefaultMax           = 30 * time.Second
	DefaultJitterPercent = 0.25
	DefaultMaxAttempts   = 10
)

// Delay returns the wait before the given attempt (1-based).
//
// The exponential component is min(base*2^(attempt-1), max). A value is then
// drawn uniformly from [exp*(1-jitter), exp*(1+jitter)] and floored at MinDelay.
func Delay(attempt int, base, max time.Duration, jitterPercent float64) time.Duration {
	return delay(attempt, base, max, jitterPercent, rand.Float64)
}

func delay(attempt int, base, max time.Duration, jitterPercent float64, draw func() float64) time.Duration {
	exp := Exponential(attempt, base, max)

	if jitterPercent < 0 {
		jitterPercent = 0
	}
	if jitterPercent > 1 {
		jitterPercent = 1
	}

	lo := float64(exp) * (1 - jitterPercent)
	hi := float64(exp) * (1 + jitterPercent)
	d := time.Duration(lo + draw()*(hi-lo))

	if d < MinDelay {
		return MinDelay
	}
	return d
}

// Exponential returns min(base*2^(attempt-1), max) without jitter.
// Attempts below 1 are treated as 1.
func Exponential(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		return 0
	}
	if max > 0 && base >= max {
		return max
	}

	d := base
	for i := 1; i < attempt; i++ {
		// Saturate before doubling overflows or passes max.
		if max > 0 && d > max/2 {
			return max
		}
		if d >= time.Duration(1<<62) {
			return d
		}
		d *= 2
	}

	if max > 0 && d > max {
		return max
	}
	return d
}

// Policy bundles backoff parameters with the attempt cap used by reconnect loops.
type Policy struct {
	Base          time.Duration
	Max           time.Duration
	JitterPercent float64
	MaxAttempts   int

	// Rand returns a value in [0, 1). Nil uses math/rand/v2.
	Rand func() float64
}

// DefaultPolicy returns the reconnect policy used by the web client:
// 1s base, 30s cap, ±25% jitter, 10 attempts.
func DefaultPolicy() Policy {
	return Policy{
		Base:          DefaultBase,
		Max:           DefaultMax,
		JitterPercent: DefaultJitterPercent,
		MaxAttempts:   DefaultMaxAttempts,
	}
}

// Delay returns the jittered delay for attempt.
func (p Policy) Delay(attempt int) time.Duration {
	draw := p.Rand
	if draw == nil {
		draw = rand.Float64
	}
	return delay(attempt, p.Base, p.Max, p.JitterPercent, draw)
}

// Exhausted reports whether failed attempts have reached the cap.
// A non-positive MaxAttempts never exhausts.
func (p Policy) Exhausted(failed int) bool {
	return p.MaxAttempts > 0 && failed >= p.MaxAttempts
}
