package app

import (
	"noteflow/keymap"
	"noteflow/note"
	"noteflow/sequencer"
)

// State is everything the UI shows, copied off the loop
type State struct {
	Seq sequencer.Snapshot

	Metronome bool
	BPM       int
	Signature int
	Beat      int // ticks since the metronome started

	Volume  float64
	Audio   bool // false when running silent
	Octaves [3]int
	Held    []note.ID // computer keys currently down
	Hint    string    // key binding for the expected note, practice only

	SongIndex   int
	Controllers []string
}

// State returns a consistent copy of the trainer state
func (a *App) State() State {
	var st State
	a.runner.Do(func() {
		st = State{
			Seq:       a.seq.Snapshot(),
			Metronome: a.metro.Running(),
			BPM:       a.metro.BPM(),
			Signature: a.metro.Signature(),
			Beat:      a.metro.Beat(),
			Volume:    a.engine.MasterVolume(),
			Audio:     a.engine.Available(),
			Octaves:   a.layout.Octaves(),
			Held:      a.tracker.Held(),
			SongIndex: a.songIdx,
		}
		if st.Seq.Expected.IsPitch() {
			if b, ok := a.layout.BindingFor(st.Seq.Expected); ok {
				st.Hint = b.String()
			}
		}
	})
	st.Controllers = a.Controllers()
	return st
}

// Layout returns a copy of the current keyboard layout
func (a *App) Layout() *keymap.Layout {
	var octaves [3]int
	a.runner.Do(func() { octaves = a.layout.Octaves() })
	return keymap.NewLayout(octaves)
}
