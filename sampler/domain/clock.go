package domain

import "time"

// Clock reports the time elapsed since the process (or a test) started.
type Clock interface {
	Uptime() time.Duration
}

// MonotonicClock measures uptime from its creation using the monotonic clock.
type MonotonicClock struct {
	start time.Time
}

// Uptime returns the elapsed time, truncated to milliseconds.
func (c MonotonicClock) Uptime() time.Duration {
	return time.Since(c.start).Truncate(time.Millisecond)
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() MonotonicClock {
	return MonotonicClock{start: time.Now()}
}
