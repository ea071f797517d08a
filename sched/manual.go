package sched

import (
	"container/heap"
	"time"
)

// Manual is a virtual-time Scheduler. Nothing runs until Advance or Flush
// is called; callbacks then run on the caller's goroutine in due order.
// It is not safe for concurrent use.
type Manual struct {
	now   time.Time
	seq   uint64
	queue timerHeap
	posts []func()

	// Panics counts callbacks that panicked and were recovered
	Panics int
}

// Epoch is the default start time for NewManual
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewManual returns a scheduler frozen at start (Epoch if zero)
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = Epoch
	}
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time { return m.now }

// Post queues fn to run on the next Advance or Flush
func (m *Manual) Post(fn func()) {
	m.posts = append(m.posts, fn)
}

// AfterFunc schedules fn at Now()+d. Negative d is treated as zero.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, due: m.now.Add(d), seq: m.seq, fn: fn, index: -1}
	heap.Push(&m.queue, t)
	return t
}

// Do runs queued posts and then fn, immediately and on the caller's
// goroutine
func (m *Manual) Do(fn func()) bool {
	m.runPosts()
	if err := safeCall(fn); err != nil {
		m.Panics++
		return false
	}
	return true
}

// Flush runs posted callbacks and timers due at the current instant
func (m *Manual) Flush() {
	m.Advance(0)
}

// Advance moves virtual time forward by d, running every callback that
// becomes due, in order of due time then scheduling order. Callbacks may
// schedule further callbacks; those run too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		m.runPosts()
		if len(m.queue) == 0 || m.queue[0].due.After(end) {
			break
		}
		t := heap.Pop(&m.queue).(*manualTimer)
		t.fired = true
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.run(t.fn)
	}
	m.now = end
}

// AdvanceTo is Advance to an absolute instant
func (m *Manual) AdvanceTo(t time.Time) {
	if t.After(m.now) {
		m.Advance(t.Sub(m.now))
	} else {
		m.Flush()
	}
}

// Pending returns the number of scheduled, unfired timers
func (m *Manual) Pending() int { return len(m.queue) }

// NextDue returns when the earliest pending timer fires
func (m *Manual) NextDue() (time.Time, bool) {
	if len(m.queue) == 0 {
		return time.Time{}, false
	}
	return m.queue[0].due, true
}

func (m *Manual) runPosts() {
	for len(m.posts) > 0 {
		fn := m.posts[0]
		m.posts = m.posts[1:]
		m.run(fn)
	}
}

func (m *Manual) run(fn func()) {
	if err := safeCall(fn); err != nil {
		m.Panics++
	}
}

type manualTimer struct {
	m     *Manual
	due   time.Time
	seq   uint64
	fn    func()
	index int
	fired bool
}

func (t *manualTimer) Stop() bool {
	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&t.m.queue, t.index)
	return true
}

type timerHeap []*manualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
