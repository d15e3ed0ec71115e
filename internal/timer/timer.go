// Package timer provides a one-shot, cancellable delay that runs a callback on expiry.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"hardbrain-quiz/internal/clock"
)

// ErrInvalidState is returned when Start or Cancel is called from the wrong state.
var ErrInvalidState = errors.New("timer: invalid state")

// State is the externally visible lifecycle of a Timer.
type State int32

const (
	Idle State = iota
	Running
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Settled:
		return "settled"
	}
	return "unknown"
}

// Internal states. starting is reported as Idle; firing (deadline passed, callback
// executing) is reported as Running until the callback returns.
const (
	starting State = 3
	firing   State = 4
)

// Timer invokes its callback once after the duration unless cancelled first.
type Timer struct {
	clock    clock.Clock
	duration time.Duration
	callback func() error

	state   atomic.Int32
	ct      clock.Timer
	stop    chan struct{}
	settled chan struct{}

	// written before settled is closed
	fired bool
	err   error
}

// New returns an idle timer. The callback runs on a background goroutine.
func New(c clock.Clock, d time.Duration, callback func() error) *Timer {
	return &Timer{
		clock:    c,
		duration: d,
		callback: callback,
		stop:     make(chan struct{}),
		settled:  make(chan struct{}),
	}
}

// State reports the current lifecycle state.
func (t *Timer) State() State {
	switch s := State(t.state.Load()); s {
	case starting:
		return Idle
	case firing:
		return Running
	default:
		return s
	}
}

// Start schedules the callback. Only valid from Idle.
func (t *Timer) Start() error {
	if !t.state.CompareAndSwap(int32(Idle), int32(starting)) {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, t.State())
	}
	ct := t.clock.NewTimer(t.duration)
	t.ct = ct
	t.state.Store(int32(Running))
	go t.run(ct)
	return nil
}

// Cancel settles a running timer without invoking the callback and releases all waiters.
// It fails once the timer has settled or its callback has begun.
func (t *Timer) Cancel() error {
	if !t.state.CompareAndSwap(int32(Running), int32(Settled)) {
		return fmt.Errorf("%w: cancel while %s", ErrInvalidState, t.State())
	}
	t.ct.Stop()
	close(t.stop)
	close(t.settled)
	return nil
}

// IsSettled reports whether the timer fired or was cancelled.
func (t *Timer) IsSettled() bool {
	return t.State() == Settled
}

// Fired reports whether the callback ran. Only meaningful after settling.
func (t *Timer) Fired() bool {
	select {
	case <-t.settled:
		return t.fired
	default:
		return false
	}
}

// Done is closed when the timer settles.
func (t *Timer) Done() <-chan struct{} {
	return t.settled
}

// Wait blocks until the timer settles and returns the callback's error, if any.
func (t *Timer) Wait(ctx context.Context) error {
	select {
	case <-t.settled:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Timer) run(ct clock.Timer) {
	select {
	case <-ct.C():
		if !t.state.CompareAndSwap(int32(Running), int32(firing)) {
			return
		}
		t.err = t.invoke()
		t.fired = true
		t.state.Store(int32(Settled))
		close(t.settled)
	case <-t.stop:
	}
}

func (t *Timer) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("timer callback panicked: %v", r)
		}
	}()
	if t.callback == nil {
		return nil
	}
	return t.callback()
}
