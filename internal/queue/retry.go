package queue

import (
	"math/rand/v2"
	"time"
)

// defaultSchedule is the base backoff per retry attempt. Attempts past the
// end of the schedule reuse the last entry.
var defaultSchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
}

// RetryPolicy bounds how often a failing message is redelivered before it is
// dead-lettered, and spaces redeliveries with jittered backoff.
type RetryPolicy struct {
	MaxAttempts int
	Schedule    []time.Duration
}

// NewRetryPolicy returns a policy with the default schedule and the given
// delivery budget. A non-positive maxAttempts falls back to 5.
func NewRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Schedule:    defaultSchedule,
	}
}

// Exhausted reports whether a message that has been attempted the given
// number of times has used up its delivery budget.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Backoff returns the jittered delay before the next delivery of a message
// that has failed `attempts` times. Jitter is base * (0.5 + rand * 0.5).
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if len(p.Schedule) == 0 {
		return 0
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Schedule) {
		idx = len(p.Schedule) - 1
	}
	base := p.Schedule[idx]
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(base) * jitter)
}
