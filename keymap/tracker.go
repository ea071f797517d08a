package keymap

import (
	"sort"
	"time"

	"noteflow/debug"
	"noteflow/note"
	"noteflow/sched"
)

// DefaultHold is how long a key counts as held after its last press or
// auto-repeat. It must exceed the terminal's initial repeat delay.
const DefaultHold = 550 * time.Millisecond

type heldKey struct {
	id    note.ID
	timer sched.Timer
}

// Tracker turns a stream of key presses (with auto-repeat) into note-on
// and note-off pairs. A repeat of a held key only extends the hold; the
// note is released once no repeat arrives within the hold window.
// Use only from the scheduler's thread.
type Tracker struct {
	sched  sched.Scheduler
	layout *Layout
	hold   time.Duration

	held map[rune]*heldKey

	press   func(note.ID)
	release func(note.ID)
}

// NewTracker creates a tracker calling press and release on note changes
func NewTracker(s sched.Scheduler, l *Layout, hold time.Duration, press, release func(note.ID)) *Tracker {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Tracker{
		sched:   s,
		layout:  l,
		hold:    hold,
		held:    make(map[rune]*heldKey),
		press:   press,
		release: release,
	}
}

// Key handles a key press and reports whether the key plays a note
func (t *Tracker) Key(r rune, alt bool) bool {
	id, ok := t.layout.Resolve(r, alt)
	if !ok {
		return false
	}
	base := BaseKey(r)

	if hk, ok := t.held[base]; ok {
		if hk.id == id {
			// auto-repeat: keep holding
			hk.timer.Stop()
			hk.timer = t.sched.AfterFunc(t.hold, func() { t.up(base, hk) })
			return true
		}
		// same key cap, different modifier: a new note
		t.up(base, hk)
	}

	hk := &heldKey{id: id}
	hk.timer = t.sched.AfterFunc(t.hold, func() { t.up(base, hk) })
	t.held[base] = hk
	debug.Log("keys", "down %q -> %s", r, id)
	t.press(id)
	return true
}

func (t *Tracker) up(base rune, hk *heldKey) {
	if cur, ok := t.held[base]; !ok || cur != hk {
		return
	}
	hk.timer.Stop()
	delete(t.held, base)
	debug.Log("keys", "up %q -> %s", base, hk.id)
	t.release(hk.id)
}

// ReleaseAll lets go of every held key
func (t *Tracker) ReleaseAll() {
	for base, hk := range t.held {
		t.up(base, hk)
	}
}

// Held returns the notes currently held, lowest first
func (t *Tracker) Held() []note.ID {
	ids := make([]note.ID, 0, len(t.held))
	for _, hk := range t.held {
		ids = append(ids, hk.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].MIDI() < ids[j].MIDI() })
	return ids
}

// Layout returns the layout in use
func (t *Tracker) Layout() *Layout { return t.layout }
