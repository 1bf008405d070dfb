package fetch

import (
	"sync"
	"time"
)

// Throttle enforces a minimum interval between requests to the same origin.
// Different origins are independent. The clock and sleep functions are fields
// so tests can run without real wall-clock waits.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewThrottle creates a throttle with the given per-origin interval. A zero
// interval disables waiting.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until at least the configured interval has passed since the
// previous request to host, then records the new request time.
func (t *Throttle) Wait(host string) {
	if t.interval <= 0 {
		return
	}

	t.mu.Lock()
	now := t.now()
	wait := time.Duration(0)
	if prev, ok := t.last[host]; ok {
		if elapsed := now.Sub(prev); elapsed < t.interval {
			wait = t.interval - elapsed
		}
	}
	t.last[host] = now.Add(wait)
	t.mu.Unlock()

	if wait > 0 {
		t.sleep(wait)
	}
}
