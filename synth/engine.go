// Package synth is the real-time synthesis engine. Note-on/off requests
// become declicked, overlapping voices shaped by automation envelopes; their
// mix is split into a dry path and a convolution reverb, then scaled by the
// master gain. The engine is pull-based: an audio sink reads PCM from it.
package synth

import (
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"noteflow/debug"
	"noteflow/note"
	"noteflow/sched"
)

// Output is an audio sink that pulls float32 little-endian mono PCM from r
type Output interface {
	Start(r io.Reader) error
	Close() error
}

// Stopper is anything Dispose must stop before tearing the graph down
type Stopper interface {
	Stop()
}

// Options configures the engine
type Options struct {
	SampleRate    int
	MasterVolume  float64
	Reverb        bool
	Dry, Wet      float64
	ReverbSeconds float64
	MetronomeGain float64
	Release       time.Duration // StopNote fade
	Seed          uint64        // reverb noise
}

// DefaultOptions returns the standard voicing
func DefaultOptions() Options {
	return Options{
		SampleRate:    44100,
		MasterVolume:  0.8,
		Reverb:        true,
		Dry:           0.7,
		Wet:           0.3,
		ReverbSeconds: 2,
		MetronomeGain: 0.1,
		Release:       60 * time.Millisecond,
		Seed:          1,
	}
}

// Envelope shape
const (
	peakScale       = 0.3 // peak = velocity^2 * peakScale
	attackTime      = 0.01
	decayPoint      = 0.3 // fraction of duration where the first decay lands
	decayLevel      = 0.1 // fraction of peak at decayPoint
	silentLevel     = 0.001
	sustainTime     = 2.0
	sustainLevel    = 0.7
	volumeRampTime  = 0.01
	chordVelocity   = 0.8
	clickAttackTime = 0.01
	clickLength     = 0.1
	clickEndLevel   = 0.01
)

// Metronome click voicing
const (
	DownbeatFreq = 1200.0
	BeatFreq     = 800.0
	downbeatPeak = 0.3
	beatPeak     = 0.2
)

type voice struct {
	id    note.ID
	osc   *oscillator
	gain  *param
	start float64
	stop  float64 // oscillator end on the audio clock, +Inf while held

	teardown sched.Timer
	held     bool // no duration: sounds until StopNote
}

// Engine is the synthesis engine. Control methods are meant to be called
// from the scheduler thread; Read is called from the audio thread.
type Engine struct {
	sched sched.Scheduler
	out   Output
	opts  Options

	mu        sync.Mutex
	voices    map[note.ID]*voice // at most one per normalized id
	fading    []*voice           // released or replaced, still sounding
	clicks    []*voice
	master    *param
	reverb    *convolver
	frame     int64 // frames rendered, the audio clock
	scratch   []float32
	available bool
	disposed  bool
	stoppers  []Stopper
}

// New builds the audio graph and starts out. A nil out leaves the engine
// to be driven through Render. If out fails to start, the engine runs
// degraded: every sound call is a silent no-op.
func New(s sched.Scheduler, out Output, opts Options) *Engine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Release <= 0 {
		opts.Release = 60 * time.Millisecond
	}
	if opts.ReverbSeconds <= 0 {
		opts.ReverbSeconds = 2
	}
	opts.MasterVolume = clamp01(opts.MasterVolume)

	e := &Engine{
		sched:     s,
		out:       out,
		opts:      opts,
		voices:    make(map[note.ID]*voice),
		master:    newParam(opts.MasterVolume),
		available: true,
	}
	if opts.Reverb {
		e.reverb = newConvolver(NoiseImpulse(opts.SampleRate, opts.ReverbSeconds, opts.Seed), reverbBlock)
	}

	if out != nil {
		if err := out.Start(e); err != nil {
			debug.Log("synth", "audio unavailable, running silent: %v", err)
			e.available = false
		}
	}
	debug.Log("synth", "engine ready: rate=%d reverb=%v available=%v", opts.SampleRate, opts.Reverb, e.available)
	return e
}

// Available reports whether sound calls do anything
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usable()
}

func (e *Engine) usable() bool { return e.available && !e.disposed }

// Now returns the audio clock
func (e *Engine) Now() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.now() * float64(time.Second))
}

func (e *Engine) now() float64 {
	return float64(e.frame) / float64(e.opts.SampleRate)
}

// SampleRate returns the output rate in Hz
func (e *Engine) SampleRate() int { return e.opts.SampleRate }

// PlayNote starts a voice for id. With dur > 0 the voice decays to silence
// over dur and tears itself down; with dur == 0 it sustains until StopNote.
// Rests and non-positive velocities are ignored.
func (e *Engine) PlayNote(id note.ID, velocity float64, dur time.Duration) {
	if !id.IsPitch() || velocity <= 0 {
		return
	}
	velocity = clamp01(velocity)
	key := id.Normalize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.usable() {
		return
	}

	if old, ok := e.voices[key]; ok {
		e.release(old)
	}

	now := e.now()
	peak := velocity * velocity * peakScale
	v := &voice{
		id:    key,
		osc:   newOscillator(pianoHarmonics, key.Frequency(), e.opts.SampleRate),
		gain:  newParam(0),
		start: now,
		stop:  math.Inf(1),
	}
	v.gain.setValueAt(0, now)
	v.gain.linearRampTo(peak, now+attackTime)

	if dur > 0 {
		d := dur.Seconds()
		v.gain.exponentialRampTo(peak*decayLevel, now+d*decayPoint)
		v.gain.exponentialRampTo(silentLevel, now+d)
		v.stop = now + d
		v.teardown = e.sched.AfterFunc(dur, func() { e.teardown(v) })
	} else {
		v.held = true
		v.gain.exponentialRampTo(peak*sustainLevel, now+sustainTime)
	}
	e.voices[key] = v
	debug.Log("synth", "play %s vel=%.2f dur=%v", key, velocity, dur)
}

// PlayChord sounds several notes at once, each slightly softer
func (e *Engine) PlayChord(ids []note.ID, velocity float64, dur time.Duration) {
	for _, id := range ids {
		e.PlayNote(id, velocity*chordVelocity, dur)
	}
}

// StopNote releases the voice for id with a short fade. Stopping a note
// that is not sounding does nothing.
func (e *Engine) StopNote(id note.ID) {
	if !id.IsPitch() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.usable() {
		return
	}
	if v, ok := e.voices[id.Normalize()]; ok {
		e.release(v)
	}
}

// StopAll releases every sounding voice
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.voices {
		e.release(v)
	}
}

// release must be called with mu held
func (e *Engine) release(v *voice) {
	now := e.now()
	end := now + e.opts.Release.Seconds()
	if v.stop <= now {
		end = now
	} else {
		v.gain.cancelAndHold(now)
		v.gain.exponentialRampTo(silentLevel, end)
	}
	v.stop = math.Min(v.stop, end)
	if v.teardown != nil {
		v.teardown.Stop()
		v.teardown = nil
	}
	delete(e.voices, v.id)
	e.fading = append(e.fading, v)
}

// teardown runs on the scheduler when a timed voice reaches its end
func (e *Engine) teardown(v *voice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.voices[v.id]; ok && cur == v {
		delete(e.voices, v.id)
	}
}

// Click sounds a metronome tick. It bypasses the reverb.
func (e *Engine) Click(downbeat bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.usable() {
		return
	}
	freq, peak := BeatFreq, beatPeak
	if downbeat {
		freq, peak = DownbeatFreq, downbeatPeak
	}
	now := e.now()
	c := &voice{
		osc:   newOscillator(clickHarmonics, freq, e.opts.SampleRate),
		gain:  newParam(0),
		start: now,
		stop:  now + clickLength,
	}
	c.gain.setValueAt(0, now)
	c.gain.linearRampTo(peak, now+clickAttackTime)
	c.gain.exponentialRampTo(clickEndLevel, now+clickLength)
	e.clicks = append(e.clicks, c)
}

// SetMasterVolume ramps the master gain to v (clamped to [0,1]) over 10ms
func (e *Engine) SetMasterVolume(v float64) {
	v = clamp01(v)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	now := e.now()
	e.master.cancelAndHold(now)
	e.master.linearRampTo(v, now+volumeRampTime)
	e.opts.MasterVolume = v
}

// MasterVolume returns the target master gain
func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.MasterVolume
}

// Attach registers s to be stopped by Dispose
func (e *Engine) Attach(s Stopper) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stoppers = append(e.stoppers, s)
}

// Dispose stops attached components, silences every voice and closes the
// output. The engine is unusable afterwards. Safe to call twice.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	stoppers := e.stoppers
	e.stoppers = nil
	e.mu.Unlock()

	for _, s := range stoppers {
		s.Stop()
	}

	e.mu.Lock()
	for _, v := range e.voices {
		if v.teardown != nil {
			v.teardown.Stop()
		}
	}
	clear(e.voices)
	e.fading = nil
	e.clicks = nil
	if e.reverb != nil {
		e.reverb.reset()
	}
	e.mu.Unlock()

	// close outside the lock: the sink may be blocked in Read
	if e.out != nil && e.available {
		if err := e.out.Close(); err != nil {
			debug.Log("synth", "close output: %v", err)
		}
	}
	debug.Log("synth", "disposed")
}

// ActiveNotes returns the notes with a live voice, lowest first
func (e *Engine) ActiveNotes() []note.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]note.ID, 0, len(e.voices))
	for id := range e.voices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].MIDI() < ids[j].MIDI() })
	return ids
}

// Voices returns the number of live voices
func (e *Engine) Voices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
