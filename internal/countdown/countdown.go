// Package countdown implements the cancellable redirect countdown used by
// the registration confirmation page: a short arming delay, a visible
// tick-down, then a single fire. A user-initiated action cancels the pending
// fire before navigating itself, so the timer and the user can never both
// navigate.
package countdown

import (
	"sync"
	"time"
)

type Countdown struct {
	mu        sync.Mutex
	createdAt time.Time
	deadline  time.Time
	seconds   int
	timer     *time.Timer
	fired     bool
	cancelled bool
	onFire    func()
}

// New starts a countdown that fires once after delay + seconds. The delay is
// an arming window that is not part of the visible count; Remaining never
// reports more than seconds. onFire may be nil.
func New(delay time.Duration, seconds int, onFire func()) *Countdown {
	total := delay + time.Duration(seconds)*time.Second
	c := &Countdown{
		createdAt: time.Now(),
		deadline:  time.Now().Add(total),
		seconds:   seconds,
		onFire:    onFire,
	}
	c.timer = time.AfterFunc(total, c.fire)
	return c
}

func (c *Countdown) fire() {
	c.mu.Lock()
	if c.cancelled || c.fired {
		c.mu.Unlock()
		return
	}
	c.fired = true
	f := c.onFire
	c.mu.Unlock()

	if f != nil {
		f()
	}
}

// Cancel stops the pending fire. It reports whether it pre-empted the timer;
// false means the countdown had already fired or was already cancelled.
func (c *Countdown) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired || c.cancelled {
		return false
	}
	c.cancelled = true
	c.timer.Stop()
	return true
}

// Remaining returns the whole seconds left in the visible countdown, floored
// at zero. While the arming delay is still running it reports the full count,
// never delay+seconds.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired || c.cancelled {
		return 0
	}
	left := time.Until(c.deadline)
	if left <= 0 {
		return 0
	}
	// round up so the UI never shows 0 while the timer is still pending
	s := int((left + time.Second - 1) / time.Second)
	if s > c.seconds {
		s = c.seconds
	}
	return s
}

func (c *Countdown) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

func (c *Countdown) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Registry tracks per-session countdowns. Replacing an entry cancels the
// previous one so a reloaded confirmation page cannot leave a stray timer.
type Registry struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]*Countdown
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{ttl: ttl, m: make(map[string]*Countdown)}
}

func (r *Registry) Put(key string, c *Countdown) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.m[key]; ok {
		old.Cancel()
	}
	r.m[key] = c
}

func (r *Registry) Get(key string) (*Countdown, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.m[key]
	return c, ok
}

func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.m[key]; ok {
		c.Cancel()
		delete(r.m, key)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Sweep drops entries older than the registry TTL. Run it from a background
// janitor; abandoned confirmation pages would otherwise accumulate entries.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-r.ttl)
	for key, c := range r.m {
		if c.createdAt.Before(cutoff) {
			c.Cancel()
			delete(r.m, key)
			removed++
		}
	}
	return removed
}
