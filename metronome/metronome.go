// Package metronome is the beat clock. It clicks through a Clicker and
// doubles as the tempo source for the sequencer.
package metronome

import (
	"time"

	"noteflow/debug"
	"noteflow/sched"
	"noteflow/synth"
)

// Tempo limits
const (
	MinBPM     = 40
	MaxBPM     = 240
	DefaultBPM = 120

	DefaultSignature = 4
)

// Clicker sounds a tick
type Clicker interface {
	Click(downbeat bool)
}

// Tick describes one beat
type Tick struct {
	N        int // beats since Start
	Downbeat bool
	At       time.Time
}

// Option configures a Metronome
type Option func(*Metronome)

// WithBPM sets the initial tempo
func WithBPM(bpm int) Option {
	return func(m *Metronome) { m.bpm = ClampBPM(bpm) }
}

// WithSignature sets beats per bar
func WithSignature(n int) Option {
	return func(m *Metronome) {
		if n > 0 {
			m.signature = n
		}
	}
}

// Metronome is driven by a scheduler and must only be used from its thread
type Metronome struct {
	sched   sched.Scheduler
	clicker Clicker

	bpm       int
	signature int
	running   bool
	beat      int
	startedAt time.Time
	timer     sched.Timer
	gen       uint64 // bumped on every start/stop so stale ticks are dropped

	observers []func(Tick)
}

// New creates a stopped metronome. When c is a synth engine the metronome
// registers itself so disposing the engine stops it first.
func New(s sched.Scheduler, c Clicker, opts ...Option) *Metronome {
	m := &Metronome{
		sched:     s,
		clicker:   c,
		bpm:       DefaultBPM,
		signature: DefaultSignature,
	}
	for _, opt := range opts {
		opt(m)
	}
	if e, ok := c.(*synth.Engine); ok {
		e.Attach(m)
	}
	return m
}

// ClampBPM limits bpm to [MinBPM, MaxBPM]
func ClampBPM(bpm int) int {
	return max(MinBPM, min(MaxBPM, bpm))
}

// Start begins ticking at bpm. The first tick sounds immediately; tick n
// lands at start + n*interval so the cadence never drifts. A signature of
// zero or less means 4.
func (m *Metronome) Start(bpm, signature int) {
	m.cancel()
	m.bpm = ClampBPM(bpm)
	if signature <= 0 {
		signature = DefaultSignature
	}
	m.signature = signature
	m.running = true
	m.beat = 0
	m.startedAt = m.sched.Now()
	debug.Log("metro", "start bpm=%d sig=%d", m.bpm, m.signature)
	m.tick(m.gen)
}

// Stop cancels the pending tick. Stopping a stopped metronome does nothing.
func (m *Metronome) Stop() {
	if !m.running {
		return
	}
	m.cancel()
	m.running = false
	debug.Log("metro", "stop after %d beats", m.beat)
}

// Toggle starts or stops at the current tempo
func (m *Metronome) Toggle() {
	if m.running {
		m.Stop()
		return
	}
	m.Start(m.bpm, m.signature)
}

// SetBPM changes the tempo. A running metronome restarts, resetting the
// beat counter.
func (m *Metronome) SetBPM(bpm int) {
	bpm = ClampBPM(bpm)
	if m.running {
		m.Start(bpm, m.signature)
		return
	}
	m.bpm = bpm
}

// SetSignature changes beats per bar, restarting when running
func (m *Metronome) SetSignature(n int) {
	if n <= 0 {
		n = DefaultSignature
	}
	if m.running {
		m.Start(m.bpm, n)
		return
	}
	m.signature = n
}

// OnTick registers an observer called after every click
func (m *Metronome) OnTick(fn func(Tick)) {
	m.observers = append(m.observers, fn)
}

func (m *Metronome) BPM() int       { return m.bpm }
func (m *Metronome) Signature() int { return m.signature }
func (m *Metronome) Running() bool  { return m.running }

// Beat returns the number of ticks since Start
func (m *Metronome) Beat() int { return m.beat }

// Interval returns the time between ticks
func (m *Metronome) Interval() time.Duration {
	return Interval(m.bpm)
}

// BeatDuration converts a beat count to time at the current tempo
func (m *Metronome) BeatDuration(beats float64) time.Duration {
	return time.Duration(beats * float64(m.Interval()))
}

// Interval returns 60000/bpm ms
func Interval(bpm int) time.Duration {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	return time.Minute / time.Duration(bpm)
}

func (m *Metronome) cancel() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Metronome) tick(gen uint64) {
	if gen != m.gen || !m.running {
		return
	}
	n := m.beat
	t := Tick{N: n, Downbeat: n%m.signature == 0, At: m.sched.Now()}

	// schedule first so a failing clicker cannot stall the clock
	m.beat++
	next := m.startedAt.Add(time.Duration(m.beat) * m.Interval())
	m.timer = m.sched.AfterFunc(next.Sub(m.sched.Now()), func() { m.tick(gen) })

	m.clicker.Click(t.Downbeat)
	for _, fn := range m.observers {
		fn(t)
	}
}
