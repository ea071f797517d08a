package sequencer

import (
	"fmt"
	"sort"
	"time"

	"noteflow/debug"
	"noteflow/note"
	"noteflow/sched"
	"noteflow/songs"
)

// Mode is what the sequencer is doing with the selected song
type Mode int

const (
	Idle Mode = iota
	Playback
	Practice
)

func (m Mode) String() string {
	switch m {
	case Playback:
		return "playback"
	case Practice:
		return "practice"
	}
	return "idle"
}

// Source tags who produced a note-on. Only user input is judged in
// practice mode.
type Source int

const (
	SourceUser Source = iota
	SourceSequencer
)

// Synth is the sound generator the sequencer drives
type Synth interface {
	PlayNote(id note.ID, velocity float64, dur time.Duration)
	StopNote(id note.ID)
}

// Tempo supplies the current BPM. It is read each time a note is scheduled.
type Tempo interface {
	BPM() int
}

const (
	// ReleaseBuffer is how early a practice-matched note is released
	ReleaseBuffer = 50 * time.Millisecond
	// MaxArticulationGap caps the silence inserted between repeated notes
	MaxArticulationGap = 50 * time.Millisecond

	DefaultVelocity = 0.8
)

// cue identifies the state a delayed callback was scheduled for
type cue struct {
	gen   uint64
	song  *songs.Song
	index int
}

// activeNote is a sounding note the sequencer knows about
type activeNote struct {
	token uint64
	held  bool // free play: sounds until NoteOff
}

// Sequencer moves a cursor through a song, either on its own (playback)
// or gated on matching input (practice). It also routes free play. All
// methods must be called from the scheduler's thread.
type Sequencer struct {
	sched sched.Scheduler
	synth Synth
	tempo Tempo

	song     *songs.Song
	index    int
	mode     Mode
	complete bool
	gen      uint64
	velocity float64

	active    map[note.ID]activeNote
	nextToken uint64

	timers    map[uint64]sched.Timer
	nextTimer uint64

	updates chan struct{}
}

// New creates an idle sequencer
func New(s sched.Scheduler, synth Synth, tempo Tempo) *Sequencer {
	return &Sequencer{
		sched:    s,
		synth:    synth,
		tempo:    tempo,
		velocity: DefaultVelocity,
		active:   make(map[note.ID]activeNote),
		timers:   make(map[uint64]sched.Timer),
		updates:  make(chan struct{}, 1),
	}
}

// Updates signals (coalesced) whenever the snapshot changes
func (s *Sequencer) Updates() <-chan struct{} { return s.updates }

func (s *Sequencer) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// SetVelocity sets the velocity used for every note the sequencer sounds
func (s *Sequencer) SetVelocity(v float64) {
	s.velocity = max(0, min(1, v))
}

func (s *Sequencer) Velocity() float64 { return s.velocity }

func (s *Sequencer) Mode() Mode { return s.mode }

func (s *Sequencer) Song() *songs.Song { return s.song }

func (s *Sequencer) Index() int { return s.index }

func (s *Sequencer) Complete() bool { return s.complete }

// PendingTimers returns how many callbacks are scheduled
func (s *Sequencer) PendingTimers() int { return len(s.timers) }

// Select makes song current, abandoning any playback or practice. A nil
// song clears the selection.
func (s *Sequencer) Select(song *songs.Song) {
	s.reset()
	s.song = song
	s.mode = Idle
	s.index = 0
	s.complete = false
	title := ""
	if song != nil {
		title = song.Title
	}
	debug.Log("seq", "select %q", title)
	s.notify()
}

// Play starts automatic playback of the selected song from the top.
// A malformed song is refused and the sequencer stays idle.
func (s *Sequencer) Play() error {
	if err := s.song.Validate(); err != nil {
		s.reset()
		s.mode = Idle
		s.notify()
		return fmt.Errorf("play: %w", err)
	}
	s.reset()
	s.mode = Playback
	s.index = 0
	s.complete = false
	debug.Log("seq", "playback %q (%d notes, %d bpm)", s.song.Title, s.song.Len(), s.bpm())
	s.playStep()
	return nil
}

// Stop ends playback or practice. The song stays selected.
func (s *Sequencer) Stop() {
	if s.mode == Idle && !s.complete && s.index == 0 {
		return
	}
	s.reset()
	s.mode = Idle
	s.index = 0
	s.complete = false
	debug.Log("seq", "stop")
	s.notify()
}

// TogglePlay plays when idle and stops otherwise
func (s *Sequencer) TogglePlay() error {
	if s.mode == Playback {
		s.Stop()
		return nil
	}
	return s.Play()
}

// StartPractice puts the cursor at the top of the selected song and waits
// for the player to reproduce each note
func (s *Sequencer) StartPractice() error {
	if err := s.song.Validate(); err != nil {
		s.reset()
		s.mode = Idle
		s.notify()
		return fmt.Errorf("practice: %w", err)
	}
	s.reset()
	s.mode = Practice
	s.index = 0
	s.complete = false
	debug.Log("seq", "practice %q", s.song.Title)
	s.enterPosition()
	s.notify()
	return nil
}

// ExitPractice leaves practice mode without completing
func (s *Sequencer) ExitPractice() {
	if s.mode != Practice {
		return
	}
	s.Stop()
}

// TogglePractice enters or leaves practice mode
func (s *Sequencer) TogglePractice() error {
	if s.mode == Practice {
		s.ExitPractice()
		return nil
	}
	return s.StartPractice()
}

// NoteOn handles a note-on. In practice mode a user note matching the
// expected note sounds for its written length and advances the cursor;
// anything else is free play and sustains until NoteOff.
func (s *Sequencer) NoteOn(id note.ID, src Source) {
	s.NoteOnVelocity(id, src, s.velocity)
}

// NoteOnVelocity is NoteOn with an explicit velocity, as reported by a
// MIDI keyboard
func (s *Sequencer) NoteOnVelocity(id note.ID, src Source, velocity float64) {
	if !id.IsPitch() {
		return
	}
	velocity = max(0, min(1, velocity))
	key := id.Normalize()

	if s.mode == Practice && src == SourceUser && s.index < s.song.Len() {
		expected := s.song.Notes[s.index]
		if expected.IsPitch() && key == expected.Normalize() {
			s.matched(key, velocity)
			return
		}
		if expected.IsPitch() {
			debug.Log("seq", "practice miss: got %s want %s", key, expected.Normalize())
		}
	}

	s.synth.PlayNote(key, velocity, 0)
	s.mark(key, true)
	s.notify()
}

// NoteOff releases a free-play note. Notes sounding for a fixed length
// finish on their own.
func (s *Sequencer) NoteOff(id note.ID) {
	if !id.IsPitch() {
		return
	}
	key := id.Normalize()
	a, ok := s.active[key]
	if !ok || !a.held {
		return
	}
	s.synth.StopNote(key)
	delete(s.active, key)
	s.notify()
}

func (s *Sequencer) matched(key note.ID, velocity float64) {
	dur := s.beatDuration(s.song.Beats[s.index])
	s.synth.PlayNote(key, velocity, dur)
	tok := s.mark(key, false)
	s.releaseAfter(max(0, dur-ReleaseBuffer), key, tok)

	debug.Log("seq", "practice hit %s at %d/%d", key, s.index+1, s.song.Len())
	s.index++
	s.enterPosition()
	s.notify()
}

// enterPosition runs whenever the practice cursor lands on a new index:
// it completes the song at the end and schedules the skip over rests
func (s *Sequencer) enterPosition() {
	if s.index >= s.song.Len() {
		s.mode = Idle
		s.complete = true
		debug.Log("seq", "practice complete %q", s.song.Title)
		return
	}
	if s.song.Notes[s.index].IsRest() {
		rest := s.beatDuration(s.song.Beats[s.index])
		s.after(rest, s.cue(), func() {
			s.index++
			s.enterPosition()
			s.notify()
		})
	}
}

func (s *Sequencer) playStep() {
	if s.index >= s.song.Len() {
		debug.Log("seq", "playback finished %q", s.song.Title)
		s.gen++
		s.song = nil
		s.mode = Idle
		s.index = 0
		s.notify()
		return
	}

	i := s.index
	id := s.song.Notes[i]
	dur := s.beatDuration(s.song.Beats[i])

	if id.IsPitch() {
		key := id.Normalize()
		if s.repeated(i) {
			gap := ArticulationGap(dur)
			s.synth.StopNote(key)
			delete(s.active, key)
			s.after(gap, s.cue(), func() { s.sound(key, dur-gap) })
		} else {
			s.sound(key, dur)
		}
	}

	s.after(dur, s.cue(), func() {
		s.index++
		s.playStep()
	})
	s.notify()
}

// ArticulationGap is the silence before a repeated note: 10% of its
// length, at most MaxArticulationGap
func ArticulationGap(dur time.Duration) time.Duration {
	return min(MaxArticulationGap, dur/10)
}

// repeated reports whether note i repeats the sounding note before it
func (s *Sequencer) repeated(i int) bool {
	if i == 0 {
		return false
	}
	prev, cur := s.song.Notes[i-1], s.song.Notes[i]
	return cur.IsPitch() && prev.IsPitch() && prev.Normalize() == cur.Normalize()
}

func (s *Sequencer) sound(key note.ID, dur time.Duration) {
	s.synth.PlayNote(key, s.velocity, dur)
	tok := s.mark(key, false)
	s.releaseAfter(dur, key, tok)
	s.notify()
}

func (s *Sequencer) mark(key note.ID, held bool) uint64 {
	s.nextToken++
	s.active[key] = activeNote{token: s.nextToken, held: held}
	return s.nextToken
}

// releaseAfter stops key after d unless something re-triggered it since
func (s *Sequencer) releaseAfter(d time.Duration, key note.ID, tok uint64) {
	s.schedule(d, func() {
		if a, ok := s.active[key]; !ok || a.token != tok {
			return
		}
		s.synth.StopNote(key)
		delete(s.active, key)
		s.notify()
	})
}

func (s *Sequencer) cue() cue {
	return cue{gen: s.gen, song: s.song, index: s.index}
}

func (s *Sequencer) valid(c cue) bool {
	return c.gen == s.gen && c.song == s.song && c.index == s.index
}

// after runs fn after d if the cursor is still where it was
func (s *Sequencer) after(d time.Duration, c cue, fn func()) {
	s.schedule(d, func() {
		if !s.valid(c) {
			debug.Log("seq", "stale callback dropped (gen %d/%d index %d/%d)", c.gen, s.gen, c.index, s.index)
			return
		}
		fn()
	})
}

func (s *Sequencer) schedule(d time.Duration, fn func()) {
	s.nextTimer++
	id := s.nextTimer
	s.timers[id] = s.sched.AfterFunc(d, func() {
		delete(s.timers, id)
		fn()
	})
}

// reset invalidates every pending callback and silences notes the
// sequencer started. Free-play notes keep sounding.
func (s *Sequencer) reset() {
	s.gen++
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	for key, a := range s.active {
		if !a.held {
			s.synth.StopNote(key)
			delete(s.active, key)
		}
	}
}

func (s *Sequencer) bpm() int {
	if s.tempo == nil {
		return 120
	}
	if bpm := s.tempo.BPM(); bpm > 0 {
		return bpm
	}
	return 120
}

func (s *Sequencer) beatDuration(beats float64) time.Duration {
	return time.Duration(beats * float64(time.Minute) / float64(s.bpm()))
}

// Snapshot is a copy of the sequencer state for display
type Snapshot struct {
	Title    string
	Notes    []note.ID
	Beats    []float64
	Index    int
	Mode     Mode
	Complete bool
	Active   []note.ID // sounding notes, lowest first
	Expected note.ID   // practice only; zero otherwise
	BPM      int
}

// Snapshot returns the current state
func (s *Sequencer) Snapshot() Snapshot {
	snap := Snapshot{
		Index:    s.index,
		Mode:     s.mode,
		Complete: s.complete,
		BPM:      s.bpm(),
	}
	if s.song != nil {
		snap.Title = s.song.Title
		snap.Notes = append([]note.ID(nil), s.song.Notes...)
		snap.Beats = append([]float64(nil), s.song.Beats...)
		if s.mode == Practice && s.index < s.song.Len() {
			snap.Expected = s.song.Notes[s.index]
		}
	}
	for key := range s.active {
		snap.Active = append(snap.Active, key)
	}
	sort.Slice(snap.Active, func(i, j int) bool { return snap.Active[i].MIDI() < snap.Active[j].MIDI() })
	return snap
}

// Progress returns the fraction of the song behind the cursor
func (s Snapshot) Progress() float64 {
	if len(s.Notes) == 0 {
		return 0
	}
	return float64(s.Index) / float64(len(s.Notes))
}
