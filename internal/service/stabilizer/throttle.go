package stabilizer

import "time"

// Throttle lets through at most one event per Interval.
// The first call is always allowed.
type Throttle struct {
	Interval time.Duration

	last  time.Time
	fired bool
}

// NewThrottle creates a Throttle with the given minimum spacing.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{Interval: interval}
}

// Allow reports whether an event may be emitted at now and, if so, records it.
func (t *Throttle) Allow(now time.Time) bool {
	if t.fired && now.Sub(t.last) < t.Interval {
		return false
	}
	t.last = now
	t.fired = true
	return true
}

// Last returns the time of the last allowed event.
func (t *Throttle) Last() (time.Time, bool) {
	return t.last, t.fired
}
