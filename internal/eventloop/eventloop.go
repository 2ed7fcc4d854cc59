// Package eventloop provides the single execution context every timer,
// frame step and command of a call session runs on.
package eventloop

import (
	"errors"
	"time"
)

// ErrClosed is returned by Do once the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it already ran or was stopped.
	Stop() bool
}

// Executor runs callbacks serially. Callbacks must not call Do.
type Executor interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Do(fn func()) error
}
