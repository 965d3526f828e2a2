package loop

import (
	"context"
	"time"
)

// RateLimiter enforces a sliding-window cap on agent invocations: at most
// maxPerHour calls inside any trailing one-hour window. A cap of zero or
// less means unlimited.
type RateLimiter struct {
	maxPerHour int
	timestamps []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing maxPerHour calls per hour.
func NewRateLimiter(maxPerHour int) *RateLimiter {
	return &RateLimiter{
		maxPerHour: maxPerHour,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// evict drops timestamps that have aged out of the trailing window.
func (r *RateLimiter) evict(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(r.timestamps) && !r.timestamps[i].After(cutoff) {
		i++
	}
	r.timestamps = r.timestamps[i:]
}

// CanCall reports whether a call slot is available right now.
func (r *RateLimiter) CanCall() bool {
	if r.maxPerHour <= 0 {
		return true
	}
	r.evict(r.now())
	return len(r.timestamps) < r.maxPerHour
}

// RecordCall marks one call as made at the current time.
func (r *RateLimiter) RecordCall() {
	if r.maxPerHour <= 0 {
		return
	}
	r.timestamps = append(r.timestamps, r.now())
}

// nextFreeIn returns how long until the oldest tracked call ages out of the
// window, freeing a slot.
func (r *RateLimiter) nextFreeIn(now time.Time) time.Duration {
	if len(r.timestamps) == 0 {
		return 0
	}
	free := r.timestamps[0].Add(time.Hour).Sub(now)
	if free < 0 {
		return 0
	}
	return free
}

// WaitAndAcquire blocks until a slot is available, the wait would exceed
// maxWait, or ctx is cancelled. It returns true only when a slot was
// acquired. The caller still records the call separately once it is made.
func (r *RateLimiter) WaitAndAcquire(ctx context.Context, maxWait time.Duration) bool {
	if r.CanCall() {
		return true
	}
	if maxWait <= 0 {
		return false
	}

	deadline := r.now().Add(maxWait)
	for {
		wait := r.nextFreeIn(r.now())
		if wait > deadline.Sub(r.now()) {
			return false
		}
		if err := r.sleep(ctx, wait); err != nil {
			return false
		}
		if r.CanCall() {
			return true
		}
	}
}
