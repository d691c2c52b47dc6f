package generation

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy bounds how often and how patiently the orchestrator calls the capability.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Multiplier grows the backoff after each failed attempt.
	Multiplier float64

	// JitterFactor spreads waits by up to this fraction of the backoff (0-1).
	JitterFactor float64

	// Retryable overrides the default classification when set.
	Retryable func(err error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
		JitterFactor:   0.2,
	}
}

// NoBackoff retries up to attempts times without waiting between them.
func NoBackoff(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Multiplier: 1}
}

// IsRetryable reports whether another attempt may succeed after err.
func (p RetryPolicy) IsRetryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsRetryable(err)
}

// IsRetryable is the default classification. Unclassified errors count as
// transport failures and are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var fatal *FatalError
	if errors.As(err, &fatal) || errors.Is(err, ErrInputRejected) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// Backoff returns the wait before attempt+1, given that attempt (1-based) failed.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			d = float64(p.MaxBackoff)
			break
		}
	}
	if p.JitterFactor > 0 {
		d *= 1 + (rand.Float64()*2-1)*p.JitterFactor
	}
	return time.Duration(d)
}

// wait sleeps for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
