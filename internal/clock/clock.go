// Package clock is the scheduling handle injected into timers and sessions,
// so round timing can be driven by a fake clock in tests.
package clock

import "time"

// Clock creates one-shot timers.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer delivers a single tick on C unless stopped first.
type Timer interface {
	C() <-chan time.Time
	// Stop reports whether the timer was stopped before it fired.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
