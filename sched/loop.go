package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a real-time Scheduler backed by a single goroutine
type Loop struct {
	queue chan func()
	done  chan struct{}

	closeOnce sync.Once
	running   atomic.Bool
}

// queue depth before Post blocks
const loopQueueSize = 256

// NewLoop creates a loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), loopQueueSize),
		done:  make(chan struct{}),
	}
}

// Run processes callbacks until ctx is cancelled or Close is called.
// Either way the loop is closed when Run returns.
func (l *Loop) Run(ctx context.Context) {
	l.running.Store(true)
	defer l.running.Store(false)
	defer l.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			safeCall(fn)
		}
	}
}

// Close stops the loop. Pending callbacks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Now returns wall-clock time
func (l *Loop) Now() time.Time { return time.Now() }

// Post queues fn. After Close it is silently dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish. It returns false if
// the loop closed first or fn panicked.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan bool, 1)
	l.Post(func() {
		finished <- safeCall(fn) == nil
	})
	select {
	case ok := <-finished:
		return ok
	case <-l.done:
		return false
	}
}

// AfterFunc schedules fn on the loop after d
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			// Stop may have won the race after the runtime timer fired
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.t.Stop()
	return t.stopped.CompareAndSwap(false, true)
}
