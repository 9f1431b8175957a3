package service

import (
	"math/rand/v2"
	"time"

	"inapppay/internal/core/domain"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
	DefaultMaxElapsed  = 30 * time.Second
	DefaultJitter      = 0.2
)

// Decision is the retry policy's verdict after an attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// GiveUp is the zero Decision.
var GiveUp = Decision{}

// RetryPolicy decides whether a failed attempt is retried and after what delay.
// It is a pure function of its inputs apart from the jitter source.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxElapsed  time.Duration
	Jitter      float64 // fraction, 0.2 means +/-20%

	rand func() float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		MaxElapsed:  DefaultMaxElapsed,
		Jitter:      DefaultJitter,
	}
}

// WithRand returns a copy of p drawing jitter from f, which must return values in [0, 1).
func (p RetryPolicy) WithRand(f func() float64) RetryPolicy {
	p.rand = f
	return p
}

// ShouldRetry decides after attemptCount attempts, elapsed time since the
// first attempt started, and the latest outcome. Only transient failures are retried.
func (p RetryPolicy) ShouldRetry(attemptCount int, elapsed time.Duration, last domain.Outcome) Decision {
	p = p.withDefaults()

	if last.Kind != domain.OutcomeTransientFailure {
		return GiveUp
	}
	if attemptCount >= p.MaxAttempts || elapsed >= p.MaxElapsed {
		return GiveUp
	}

	delay := p.jittered(p.backoff(attemptCount))
	if last.RetryAfter > delay {
		delay = last.RetryAfter
	}
	if elapsed+delay > p.MaxElapsed {
		return GiveUp
	}
	return Decision{Retry: true, Delay: delay}
}

// backoff is min(MaxDelay, BaseDelay * 2^(attemptCount-1)).
func (p RetryPolicy) backoff(attemptCount int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attemptCount; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) jittered(d time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return d
	}
	r := rand.Float64
	if p.rand != nil {
		r = p.rand
	}
	factor := 1 + p.Jitter*(2*r()-1)
	out := time.Duration(float64(d) * factor)
	if out < 0 {
		return 0
	}
	return out
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = DefaultMaxElapsed
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}
