package services

import (
	"context"
	"sync"
	"time"
)

// throttle gates provider calls behind a process-global minimum interval.
// Holding the mutex across the wait is intentional: concurrent workflows must
// reach the provider strictly one at a time, spaced by at least the interval.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

func (t *throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval <= 0 {
		t.last = time.Now()
		return nil
	}
	wait := time.Until(t.last.Add(t.interval))
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	t.last = time.Now()
	return nil
}
