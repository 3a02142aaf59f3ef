// Package clock abstracts delayed callbacks so game timing can be driven
// by the wall clock in production and stepped by hand in tests.
package clock

import "time"

// Timer is a cancellable handle for a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback
	// already fired or was stopped before.
	Stop() bool
}

// Clock schedules callbacks and reports the current time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a Clock backed by the runtime timers. Callbacks run on their own goroutine.
type Real struct{}

// NewReal returns the wall clock.
func NewReal() Real {
	return Real{}
}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
