// Package sched provides the single logical thread that owns all trainer
// state. Timer callbacks and input events are funneled through a Scheduler
// so core components never need their own locks.
//
// Loop runs in real time on one goroutine. Manual runs in virtual time and
// is driven explicitly by tests.
package sched

import (
	"fmt"
	"runtime/debug"
	"time"

	ndebug "noteflow/debug"
)

// Scheduler runs callbacks on the owning thread
type Scheduler interface {
	// Now returns the scheduler's notion of current time
	Now() time.Time
	// AfterFunc runs fn on the owning thread once d has elapsed
	AfterFunc(d time.Duration, fn func()) Timer
	// Post queues fn to run on the owning thread as soon as possible
	Post(fn func())
}

// Runner is a Scheduler that can also run a callback synchronously
type Runner interface {
	Scheduler
	// Do runs fn on the owning thread and waits for it. It reports
	// whether fn completed without panicking.
	Do(fn func()) bool
}

// Timer is a cancellable pending callback
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer (false if it already ran or was stopped).
	Stop() bool
}

// Since returns the time elapsed on s since t
func Since(s Scheduler, t time.Time) time.Duration {
	return s.Now().Sub(t)
}

// safeCall runs fn and turns a panic into a log line so one faulty callback
// cannot take the loop down
func safeCall(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sched: callback panic: %v", r)
			ndebug.Log("sched", "%v\n%s", err, debug.Stack())
		}
	}()
	fn()
	return nil
}
