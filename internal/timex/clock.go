package timex

import "time"

// Timer is the subset of *time.Timer used by debounce logic.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the stop
	// happened before the callback ran.
	Stop() bool
}

// Clock abstracts time for components that schedule work, so tests can
// advance virtual time deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }
