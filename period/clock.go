package period

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Fixed returns a Clock pinned to t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Current returns the period containing clock.Now().
func Current(clock Clock) Period {
	return Of(clock.Now())
}
