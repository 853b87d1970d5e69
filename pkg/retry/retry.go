// Package retry provides a reusable retry policy with pluggable backoff and
// a retryability predicate. Callers decide which error classes are transient;
// the policy owns attempt counting and context-aware waiting.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before the given retry attempt.
// Attempt numbering starts at 1 for the first retry.
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

// Constant waits the same duration between every attempt.
type Constant time.Duration

func (c Constant) Delay(int) time.Duration { return time.Duration(c) }

// Exponential grows the delay by Factor per attempt, capped at Max, with
// optional proportional jitter to avoid thundering retries.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64
}

// DefaultExponential mirrors the backoff used for confirmation polling:
// 500ms doubling up to 30s with 10% jitter.
func DefaultExponential() Exponential {
	return Exponential{
		Initial: 500 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2.0,
		Jitter:  0.1,
	}
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := e.Factor
	if factor <= 0 {
		factor = 2.0
	}
	d := float64(e.Initial) * math.Pow(factor, float64(attempt-1))
	if e.Max > 0 && d > float64(e.Max) {
		d = float64(e.Max)
	}
	if e.Jitter > 0 {
		d += d * e.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Policy bounds retries of an operation. A nil Retryable treats every error
// as transient.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	Retryable   func(error) bool
}

// Do runs op up to MaxAttempts times, waiting Backoff.Delay between attempts.
// It returns nil on the first success, the last error once attempts are
// exhausted or the error is not retryable, and ctx.Err() if the context is
// cancelled while waiting. Cancellation never interrupts a running attempt;
// it only stops further waiting.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff.Delay(attempt)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
