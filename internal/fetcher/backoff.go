package fetcher

import (
	"context"
	"math"
	"time"
)

// BackoffFactor multiplies the delay between consecutive attempts.
const BackoffFactor = 1.5

// Backoff computes the wait before each retry.
type Backoff struct {
	Base time.Duration
}

// Delay returns the wait before retry n (n >= 1): Base * 1.5^(n-1).
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 || b.Base <= 0 {
		return 0
	}
	return time.Duration(float64(b.Base) * math.Pow(BackoffFactor, float64(retry-1)))
}

// Pauser waits between attempts.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// TimerPauser sleeps on a timer and returns early when ctx ends.
type TimerPauser struct{}

// Pause implements Pauser.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
