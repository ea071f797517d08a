// Package app wires the trainer together. It owns the scheduler loop and
// every core object, and is the only way other goroutines (the TUI, MIDI
// listeners) reach them: each method posts to the loop or runs on it and
// waits.
package app

import (
	"context"
	"fmt"
	"sync"

	"noteflow/config"
	"noteflow/debug"
	"noteflow/keymap"
	"noteflow/metronome"
	"noteflow/midi"
	"noteflow/note"
	"noteflow/sched"
	"noteflow/sequencer"
	"noteflow/songs"
	"noteflow/synth"
)

// Options configures New
type Options struct {
	Config  *config.Config
	Library *songs.Library
	// Output receives rendered audio; nil leaves the engine to be pulled
	// through Engine().Render
	Output synth.Output
	// Runner is the logical thread; nil creates a real-time loop
	Runner sched.Runner
	// PadColors for Launchpad feedback; zero uses DefaultPadColors
	PadColors midi.PadColors
}

// DefaultPadColors light C pads dim blue, the next practice note yellow
// and sounding notes green
var DefaultPadColors = midi.PadColors{
	Root:     [3]uint8{40, 60, 120},
	Active:   [3]uint8{0, 255, 0},
	Expected: [3]uint8{255, 200, 0},
}

// App is the trainer
type App struct {
	cfg     *config.Config
	runner  sched.Runner
	loop    *sched.Loop // nil when the runner was supplied
	engine  *synth.Engine
	metro   *metronome.Metronome
	seq     *sequencer.Sequencer
	lib     *songs.Library
	layout  *keymap.Layout
	tracker *keymap.Tracker
	grid    *midi.PadGrid
	colors  midi.PadColors

	songIdx int

	ctrlMu      sync.Mutex
	controllers map[string]*attached

	// Notify the TUI of updates
	UpdateChan chan struct{}

	closeOnce sync.Once
	cancel    context.CancelFunc
}

// New builds the trainer. Nothing runs until Start.
func New(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	lib := opts.Library
	if lib == nil {
		lib = songs.NewLibrary(songs.Builtin()...)
	}

	a := &App{
		cfg:         cfg,
		runner:      opts.Runner,
		lib:         lib,
		colors:      opts.PadColors,
		songIdx:     -1,
		controllers: make(map[string]*attached),
		UpdateChan:  make(chan struct{}, 1),
	}
	if a.runner == nil {
		a.loop = sched.NewLoop()
		a.runner = a.loop
	}
	if a.colors == (midi.PadColors{}) {
		a.colors = DefaultPadColors
	}

	so := synth.DefaultOptions()
	so.SampleRate = cfg.Audio.SampleRate
	so.MasterVolume = cfg.Audio.MasterVolume
	so.Reverb = cfg.Audio.Reverb
	so.Release = cfg.Release()
	a.engine = synth.New(a.runner, opts.Output, so)

	a.metro = metronome.New(a.runner, a.engine,
		metronome.WithBPM(cfg.Metronome.BPM),
		metronome.WithSignature(cfg.Metronome.Signature))
	a.metro.OnTick(func(metronome.Tick) { a.notify() })

	a.seq = sequencer.New(a.runner, a.engine, a.metro)
	a.seq.SetVelocity(cfg.Audio.Velocity)

	a.layout = keymap.NewLayout(cfg.Keyboard.RowOctaves)
	a.tracker = keymap.NewTracker(a.runner, a.layout, cfg.Hold(),
		func(id note.ID) { a.seq.NoteOn(id, sequencer.SourceUser) },
		func(id note.ID) { a.seq.NoteOff(id) })

	base, ok := note.ParseLenient(cfg.MIDI.PadBaseNote)
	if !ok || cfg.MIDI.PadBaseNote == "" {
		base = note.New(note.C, note.Natural, 3)
	}
	a.grid = midi.NewPadGrid(base)

	if !a.engine.Available() {
		debug.Log("app", "audio unavailable, running silent")
	}
	return a
}

// Start runs the loop (when owned) and applies the startup settings. It
// returns immediately; cancel ctx or call Close to stop.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	if a.loop != nil {
		go a.loop.Run(ctx)
	}
	go a.forward(ctx)

	a.runner.Do(func() {
		if a.cfg.Song != "" {
			if err := a.selectTitle(a.cfg.Song); err != nil {
				debug.Log("app", "startup song: %v", err)
			}
		}
		if a.cfg.Metronome.Enabled {
			a.metro.Start(a.metro.BPM(), a.metro.Signature())
		}
	})
}

// forward relays sequencer changes to UpdateChan
func (a *App) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.seq.Updates():
			a.notify()
		}
	}
}

func (a *App) notify() {
	select {
	case a.UpdateChan <- struct{}{}:
	default:
	}
	a.ctrlMu.Lock()
	for _, c := range a.controllers {
		c.markDirty()
	}
	a.ctrlMu.Unlock()
}

// do runs fn on the loop and signals an update
func (a *App) do(fn func()) bool {
	ok := a.runner.Do(fn)
	a.notify()
	return ok
}

// Engine exposes the synth, e.g. to render audio manually
func (a *App) Engine() *synth.Engine { return a.engine }

// Library returns the song library
func (a *App) Library() *songs.Library { return a.lib }

// NoteOn plays a note named by raw. Garbled names play A4.
func (a *App) NoteOn(raw string) {
	id := parse(raw)
	a.runner.Post(func() {
		a.seq.NoteOn(id, sequencer.SourceUser)
	})
}

// NoteOff releases a note named by raw
func (a *App) NoteOff(raw string) {
	id := parse(raw)
	a.runner.Post(func() {
		a.seq.NoteOff(id)
	})
}

func parse(raw string) note.ID {
	id, ok := note.ParseLenient(raw)
	if !ok {
		debug.Log("app", "bad note %q, using %s", raw, id)
	}
	return id
}

// NoteOnID plays id at velocity (0-1)
func (a *App) NoteOnID(id note.ID, velocity float64) {
	a.runner.Post(func() {
		a.seq.NoteOnVelocity(id, sequencer.SourceUser, velocity)
	})
}

// NoteOffID releases id
func (a *App) NoteOffID(id note.ID) {
	a.runner.Post(func() {
		a.seq.NoteOff(id)
	})
}

// Key handles a computer-keyboard press and reports whether it plays a
// note
func (a *App) Key(r rune, alt bool) bool {
	var handled bool
	a.do(func() { handled = a.tracker.Key(r, alt) })
	return handled
}

// ReleaseKeys lets go of every held computer key
func (a *App) ReleaseKeys() {
	a.do(a.tracker.ReleaseAll)
}

// ShiftOctave moves the keyboard layout up or down
func (a *App) ShiftOctave(delta int) {
	a.do(func() {
		a.tracker.ReleaseAll()
		a.layout.Shift(delta)
	})
}

// Play starts playback of the selected song
func (a *App) Play() error {
	var err error
	a.do(func() { err = a.seq.Play() })
	return err
}

// Stop halts playback or practice
func (a *App) Stop() {
	a.do(a.seq.Stop)
}

// TogglePlay starts or stops playback
func (a *App) TogglePlay() error {
	var err error
	a.do(func() { err = a.seq.TogglePlay() })
	return err
}

// TogglePractice enters or leaves practice mode
func (a *App) TogglePractice() error {
	var err error
	a.do(func() { err = a.seq.TogglePractice() })
	return err
}

// Select chooses a song by title or slug
func (a *App) Select(title string) error {
	var err error
	a.do(func() { err = a.selectTitle(title) })
	return err
}

func (a *App) selectTitle(title string) error {
	s, err := a.lib.ByTitle(title)
	if err != nil {
		return err
	}
	a.songIdx = a.lib.Index(s.Title)
	a.seq.Select(s)
	return nil
}

// NextSong cycles through the library by delta
func (a *App) NextSong(delta int) error {
	var err error
	a.do(func() {
		n := a.lib.Len()
		if n == 0 {
			err = fmt.Errorf("no songs")
			return
		}
		var i int
		switch {
		case a.songIdx >= 0:
			i = ((a.songIdx+delta)%n + n) % n
		case delta < 0:
			i = n - 1
		}
		a.songIdx = i
		a.seq.Select(a.lib.At(i))
	})
	return err
}

// SetBPM sets the tempo of the metronome and of the sequencer's next note
func (a *App) SetBPM(bpm int) {
	a.do(func() { a.metro.SetBPM(bpm) })
}

// NudgeBPM changes the tempo by delta
func (a *App) NudgeBPM(delta int) {
	a.do(func() { a.metro.SetBPM(a.metro.BPM() + delta) })
}

// ToggleMetronome starts or stops the click
func (a *App) ToggleMetronome() {
	a.do(a.metro.Toggle)
}

// SetVolume sets the master volume (0-1)
func (a *App) SetVolume(v float64) {
	a.do(func() { a.engine.SetMasterVolume(v) })
}

// NudgeVolume changes the master volume by delta
func (a *App) NudgeVolume(delta float64) {
	a.do(func() { a.engine.SetMasterVolume(a.engine.MasterVolume() + delta) })
}

// Close stops everything and releases the audio device. Safe to call
// more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.loop != nil && a.cancel == nil {
			// never started: nothing would serve Do
			a.loop.Close()
		}
		ok := a.runner.Do(func() {
			a.tracker.ReleaseAll()
			a.seq.Stop()
			a.engine.Dispose()
		})
		if !ok {
			// the loop is gone, so nothing else touches the core
			a.engine.Dispose()
		}
		a.detachAll()
		if a.cancel != nil {
			a.cancel()
		}
		if a.loop != nil {
			a.loop.Close()
		}
		debug.Log("app", "closed")
	})
}
