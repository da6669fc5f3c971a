package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim        *rate.Limiter
	lastAccess time.Time
}

// cooldowns holds one token bucket per user.
type cooldowns struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	m     map[string]*limiterEntry
	now   func() time.Time
}

func newCooldowns(perSecond float64, burst int) *cooldowns {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &cooldowns{
		every: rate.Limit(perSecond),
		burst: burst,
		m:     make(map[string]*limiterEntry),
		now:   time.Now,
	}
}

func (c *cooldowns) get(userID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(c.every, c.burst)}
		c.m[userID] = e
	}
	e.lastAccess = c.now()
	return e.lim
}

// take consumes one token for userID. When none is available it returns how
// long until one is, and consumes nothing.
func (c *cooldowns) take(userID string) (time.Duration, bool) {
	r := c.get(userID).ReserveN(c.now(), 1)
	if !r.OK() {
		return 0, false
	}
	if d := r.DelayFrom(c.now()); d > 0 {
		r.CancelAt(c.now())
		return d, false
	}
	return 0, true
}

// sweep drops limiters idle for longer than maxIdle.
func (c *cooldowns) sweep(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-maxIdle)
	n := 0
	for id, e := range c.m {
		if e.lastAccess.Before(cutoff) {
			delete(c.m, id)
			n++
		}
	}
	return n
}
