package sequencer

import (
	"errors"
	"testing"
	"time"

	"noteflow/note"
	"noteflow/sched"
	"noteflow/songs"
)

type synthEvent struct {
	at   time.Duration
	op   string // "play" or "stop"
	id   note.ID
	dur  time.Duration
	velo float64
}

type fakeSynth struct {
	s      *sched.Manual
	events []synthEvent
}

func (f *fakeSynth) PlayNote(id note.ID, velocity float64, dur time.Duration) {
	f.events = append(f.events, synthEvent{at: sched.Since(f.s, sched.Epoch), op: "play", id: id, dur: dur, velo: velocity})
}

func (f *fakeSynth) StopNote(id note.ID) {
	f.events = append(f.events, synthEvent{at: sched.Since(f.s, sched.Epoch), op: "stop", id: id})
}

func (f *fakeSynth) plays() []synthEvent {
	var out []synthEvent
	for _, e := range f.events {
		if e.op == "play" {
			out = append(out, e)
		}
	}
	return out
}

type fixedTempo int

func (t fixedTempo) BPM() int { return int(t) }

// knobTempo can be turned while a song runs
type knobTempo struct{ bpm int }

func (t *knobTempo) BPM() int { return t.bpm }

func newTest(t *testing.T, bpm int) (*Sequencer, *fakeSynth, *sched.Manual) {
	t.Helper()
	s := sched.NewManual(time.Time{})
	fs := &fakeSynth{s: s}
	return New(s, fs, fixedTempo(bpm)), fs, s
}

func song(t *testing.T, notes []string, beats []float64) *songs.Song {
	t.Helper()
	s, err := songs.New("test", notes, beats)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

var (
	c4 = note.MustParse("C4")
	d4 = note.MustParse("D4")
	e4 = note.MustParse("E4")
)

func TestPlaybackTiming(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4", "E4"}, []float64{1, 1, 2}))
	if err := seq.Play(); err != nil {
		t.Fatal(err)
	}

	s.Advance(1999 * time.Millisecond)
	if seq.Mode() != Playback {
		t.Fatalf("mode = %v before the song ends", seq.Mode())
	}
	s.Advance(time.Millisecond)
	if seq.Mode() != Idle || seq.Song() != nil || seq.Index() != 0 {
		t.Errorf("after 2000ms: mode=%v song=%v index=%d, want idle, cleared, 0",
			seq.Mode(), seq.Song(), seq.Index())
	}

	want := []synthEvent{
		{at: 0, id: c4, dur: 500 * time.Millisecond},
		{at: 500 * time.Millisecond, id: d4, dur: 500 * time.Millisecond},
		{at: 1000 * time.Millisecond, id: e4, dur: 1000 * time.Millisecond},
	}
	got := fs.plays()
	if len(got) != len(want) {
		t.Fatalf("plays = %+v", got)
	}
	for i := range want {
		if got[i].at != want[i].at || got[i].id != want[i].id || got[i].dur != want[i].dur {
			t.Errorf("play %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if seq.PendingTimers() != 0 || s.Pending() != 0 {
		t.Errorf("timers left: seq=%d sched=%d", seq.PendingTimers(), s.Pending())
	}
	if len(seq.Snapshot().Active) != 0 {
		t.Errorf("active notes left: %v", seq.Snapshot().Active)
	}
}

func TestPlaybackRestsAreSilentButTimed(t *testing.T) {
	seq, fs, s := newTest(t, 60)
	seq.Select(song(t, []string{"C4", "rest", "D4"}, []float64{1, 0.5, 1}))
	seq.Play()

	s.Advance(time.Second)
	if seq.Index() != 1 {
		t.Fatalf("index = %d at the rest", seq.Index())
	}
	s.Advance(500 * time.Millisecond)
	if seq.Index() != 2 {
		t.Fatalf("index = %d after the rest", seq.Index())
	}
	plays := fs.plays()
	if len(plays) != 2 || plays[1].at != 1500*time.Millisecond {
		t.Errorf("plays = %+v", plays)
	}
}

func TestPlaybackArticulationGap(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "C4", "Bb4", "A#4"}, []float64{1, 1, 0.25, 0.25}))
	seq.Play()
	s.Advance(2 * time.Second)

	plays := fs.plays()
	if len(plays) != 4 {
		t.Fatalf("plays = %+v", plays)
	}
	// second C4: 50ms gap, shortened by the gap
	if plays[1].at != 550*time.Millisecond || plays[1].dur != 450*time.Millisecond {
		t.Errorf("repeated C4 = %+v", plays[1])
	}
	// A#4 after Bb4 counts as repeated; 125ms note gets a 12.5ms gap
	gap := 12500 * time.Microsecond
	if plays[3].at != 1125*time.Millisecond+gap || plays[3].dur != 125*time.Millisecond-gap {
		t.Errorf("repeated A#4 = %+v", plays[3])
	}
	for i := 1; i < len(plays); i++ {
		if d := plays[i].at - (plays[i-1].at + plays[i-1].dur); d > MaxArticulationGap {
			t.Errorf("gap before play %d = %v", i, d)
		}
	}

	// the repeat stops the previous voice at the boundary
	stoppedAt := time.Duration(-1)
	for _, e := range fs.events {
		if e.op == "stop" && e.id == c4 && e.at == 500*time.Millisecond {
			stoppedAt = e.at
		}
	}
	if stoppedAt < 0 {
		t.Error("previous C4 not stopped before the repeat")
	}
}

func TestArticulationGap(t *testing.T) {
	tests := []struct{ dur, want time.Duration }{
		{time.Second, 50 * time.Millisecond},
		{500 * time.Millisecond, 50 * time.Millisecond},
		{200 * time.Millisecond, 20 * time.Millisecond},
		{0, 0},
	}
	for _, tt := range tests {
		if got := ArticulationGap(tt.dur); got != tt.want {
			t.Errorf("ArticulationGap(%v) = %v, want %v", tt.dur, got, tt.want)
		}
	}
}

func TestPlaybackStop(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4", "E4"}, []float64{1, 1, 1}))
	seq.Play()
	s.Advance(600 * time.Millisecond)
	seq.Stop()

	n := len(fs.plays())
	s.Advance(5 * time.Second)
	if len(fs.plays()) != n {
		t.Error("notes played after Stop")
	}
	if seq.Song() == nil {
		t.Error("Stop should keep the song selected")
	}
	if s.Pending() != 0 {
		t.Errorf("%d timers left after Stop", s.Pending())
	}
	last := fs.events[len(fs.events)-1]
	if last.op != "stop" || last.id != d4 {
		t.Errorf("sounding D4 should be stopped, last event %+v", last)
	}
}

func TestStaleCallbacksAfterReselect(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	a := song(t, []string{"C4", "C4", "C4"}, []float64{1, 1, 1})
	b := song(t, []string{"E4", "E4"}, []float64{4, 4})

	seq.Select(a)
	seq.Play()
	s.Advance(100 * time.Millisecond)
	seq.Select(b)
	seq.Select(a)
	seq.Select(b)
	seq.Play()
	s.Advance(1500 * time.Millisecond)

	for _, p := range fs.plays() {
		if p.id == c4 && p.at > 0 {
			t.Errorf("stale playback of first song: %+v", p)
		}
	}
	if seq.Index() != 0 || seq.Song() != b {
		t.Errorf("index=%d song=%v", seq.Index(), seq.Song())
	}
}

func TestMalformedSongRefused(t *testing.T) {
	seq, fs, _ := newTest(t, 120)
	bad := &songs.Song{Title: "bad", Notes: []note.ID{c4, d4}, Beats: []float64{1}}
	seq.Select(bad)

	if err := seq.Play(); !errors.Is(err, songs.ErrInvalidSong) {
		t.Errorf("Play() = %v, want ErrInvalidSong", err)
	}
	if err := seq.StartPractice(); !errors.Is(err, songs.ErrInvalidSong) {
		t.Errorf("StartPractice() = %v, want ErrInvalidSong", err)
	}
	if seq.Mode() != Idle || len(fs.events) != 0 {
		t.Errorf("mode=%v events=%v", seq.Mode(), fs.events)
	}

	seq.Select(nil)
	if err := seq.Play(); !errors.Is(err, songs.ErrInvalidSong) {
		t.Errorf("Play() with no song = %v", err)
	}
}

func TestPracticeMatchAdvances(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4"}, []float64{1, 2}))
	if err := seq.StartPractice(); err != nil {
		t.Fatal(err)
	}
	if got := seq.Snapshot().Expected; got != c4 {
		t.Fatalf("expected = %v", got)
	}

	seq.NoteOn(c4, SourceUser)
	if seq.Index() != 1 {
		t.Fatalf("index = %d after a match", seq.Index())
	}
	p := fs.plays()[0]
	if p.id != c4 || p.dur != 500*time.Millisecond {
		t.Errorf("matched note played as %+v", p)
	}
	if !contains(seq.Snapshot().Active, c4) {
		t.Error("matched note not marked active")
	}

	s.Advance(449 * time.Millisecond)
	if !contains(seq.Snapshot().Active, c4) {
		t.Error("marker released too early")
	}
	s.Advance(time.Millisecond)
	if contains(seq.Snapshot().Active, c4) {
		t.Error("marker should release 50ms before the end")
	}
	last := fs.events[len(fs.events)-1]
	if last.op != "stop" || last.id != c4 || last.at != 450*time.Millisecond {
		t.Errorf("release event = %+v", last)
	}
}

func TestPracticeMismatchDoesNotAdvance(t *testing.T) {
	seq, fs, _ := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4"}, []float64{1, 1}))
	seq.StartPractice()

	seq.NoteOn(e4, SourceUser)
	if seq.Index() != 0 {
		t.Fatalf("mismatch advanced to %d", seq.Index())
	}
	p := fs.plays()[0]
	if p.id != e4 || p.dur != 0 {
		t.Errorf("mismatch should sound as free play, got %+v", p)
	}

	seq.NoteOff(e4)
	if contains(seq.Snapshot().Active, e4) {
		t.Error("NoteOff did not release free-play note")
	}

	// other octave is not a match
	seq.NoteOn(note.MustParse("C5"), SourceUser)
	if seq.Index() != 0 {
		t.Error("wrong octave accepted")
	}
	// sequencer-sourced note-ons are never judged
	seq.NoteOn(c4, SourceSequencer)
	if seq.Index() != 0 {
		t.Error("sequencer-sourced note advanced the cursor")
	}
}

func TestPracticeEnharmonicMatch(t *testing.T) {
	seq, _, _ := newTest(t, 120)
	seq.Select(song(t, []string{"Bb4"}, []float64{1}))
	seq.StartPractice()
	seq.NoteOn(note.MustParse("A#4"), SourceUser)
	if !seq.Complete() {
		t.Error("A#4 should match Bb4")
	}
}

func TestPracticeRestSkip(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "rest", "D4"}, []float64{1, 1, 1}))
	seq.StartPractice()

	seq.NoteOn(c4, SourceUser)
	if seq.Index() != 1 {
		t.Fatalf("index = %d", seq.Index())
	}

	// input on a rest is free play, not judged
	seq.NoteOn(d4, SourceUser)
	if seq.Index() != 1 {
		t.Fatal("input on a rest moved the cursor")
	}
	if p := fs.plays()[1]; p.dur != 0 {
		t.Errorf("input on a rest should sustain, got %+v", p)
	}
	seq.NoteOff(d4)

	s.Advance(499 * time.Millisecond)
	if seq.Index() != 1 {
		t.Fatal("rest skipped early")
	}
	s.Advance(time.Millisecond)
	if seq.Index() != 2 {
		t.Fatalf("rest not skipped after 500ms, index %d", seq.Index())
	}
	if seq.Mode() != Practice {
		t.Errorf("mode = %v", seq.Mode())
	}
}

func TestPlaybackTempoChangeAppliesToNextNote(t *testing.T) {
	s := sched.NewManual(time.Time{})
	fs := &fakeSynth{s: s}
	tempo := &knobTempo{bpm: 120}
	seq := New(s, fs, tempo)
	seq.Select(song(t, []string{"C4", "D4", "E4"}, []float64{1, 1, 1}))
	seq.Play()

	s.Advance(100 * time.Millisecond)
	tempo.bpm = 60
	s.Advance(3 * time.Second)

	want := []synthEvent{
		{at: 0, id: c4, dur: 500 * time.Millisecond}, // already sounding
		{at: 500 * time.Millisecond, id: d4, dur: time.Second},
		{at: 1500 * time.Millisecond, id: e4, dur: time.Second},
	}
	got := fs.plays()
	if len(got) != len(want) {
		t.Fatalf("plays = %+v", got)
	}
	for i := range want {
		if got[i].at != want[i].at || got[i].id != want[i].id || got[i].dur != want[i].dur {
			t.Errorf("play %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if seq.Mode() != Idle {
		t.Errorf("mode = %v after the song", seq.Mode())
	}
}

func TestPracticeTempoChange(t *testing.T) {
	s := sched.NewManual(time.Time{})
	fs := &fakeSynth{s: s}
	tempo := &knobTempo{bpm: 120}
	seq := New(s, fs, tempo)
	seq.Select(song(t, []string{"C4", "D4", "rest", "E4"}, []float64{1, 1, 1, 1}))
	seq.StartPractice()

	seq.NoteOn(c4, SourceUser)
	s.Advance(100 * time.Millisecond)
	tempo.bpm = 60
	seq.NoteOn(d4, SourceUser)
	if seq.Index() != 2 {
		t.Fatalf("index = %d, want the rest", seq.Index())
	}

	plays := fs.plays()
	if plays[0].dur != 500*time.Millisecond || plays[1].dur != time.Second {
		t.Errorf("durations = %v, %v", plays[0].dur, plays[1].dur)
	}

	// C4 keeps its release; the rest skip uses the new tempo
	s.Advance(350 * time.Millisecond)
	if contains(seq.Snapshot().Active, c4) {
		t.Error("C4 should release at 450ms")
	}
	s.Advance(649 * time.Millisecond)
	if seq.Index() != 2 {
		t.Fatalf("rest skipped early, index %d", seq.Index())
	}
	s.Advance(time.Millisecond)
	if seq.Index() != 3 {
		t.Fatalf("rest not skipped after one beat at 60bpm, index %d", seq.Index())
	}
}

func TestPracticeLeadingAndTrailingRests(t *testing.T) {
	seq, _, s := newTest(t, 60)
	seq.Select(song(t, []string{"rest", "C4", "rest"}, []float64{1, 1, 2}))
	seq.StartPractice()

	s.Advance(time.Second)
	if seq.Index() != 1 {
		t.Fatalf("leading rest not skipped, index %d", seq.Index())
	}
	seq.NoteOn(c4, SourceUser)
	s.Advance(2 * time.Second)
	if !seq.Complete() || seq.Index() != 3 || seq.Mode() != Idle {
		t.Errorf("complete=%v index=%d mode=%v", seq.Complete(), seq.Index(), seq.Mode())
	}
}

func TestPracticeCompletion(t *testing.T) {
	seq, _, s := newTest(t, 120)
	sg := song(t, []string{"C4", "D4", "E4"}, []float64{1, 1, 1})
	seq.Select(sg)
	seq.StartPractice()

	for _, id := range []note.ID{c4, d4, e4} {
		seq.NoteOn(id, SourceUser)
		seq.NoteOff(id)
	}
	snap := seq.Snapshot()
	if snap.Index != 3 || snap.Mode != Idle || !snap.Complete {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Title != "test" || snap.Progress() != 1 {
		t.Errorf("title=%q progress=%v", snap.Title, snap.Progress())
	}
	if seq.Song() != sg {
		t.Error("song should stay selected after completion")
	}

	// the last note still releases its marker
	s.Advance(time.Second)
	if len(seq.Snapshot().Active) != 0 {
		t.Errorf("markers left: %v", seq.Snapshot().Active)
	}

	// further input is free play
	seq.NoteOn(c4, SourceUser)
	if seq.Index() != 3 {
		t.Error("input after completion moved the cursor")
	}
}

func TestNoteOffLeavesTimedNotes(t *testing.T) {
	seq, fs, _ := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4"}, []float64{1, 1}))
	seq.StartPractice()
	seq.NoteOn(c4, SourceUser)
	n := len(fs.events)
	seq.NoteOff(c4)
	if len(fs.events) != n {
		t.Error("NoteOff stopped a timed practice note")
	}
}

func TestTogglePractice(t *testing.T) {
	seq, _, s := newTest(t, 120)
	seq.Select(song(t, []string{"rest", "C4"}, []float64{1, 1}))
	seq.TogglePractice()
	if seq.Mode() != Practice {
		t.Fatal("not practicing")
	}
	seq.TogglePractice()
	if seq.Mode() != Idle || seq.Index() != 0 {
		t.Errorf("mode=%v index=%d", seq.Mode(), seq.Index())
	}
	s.Advance(time.Second)
	if seq.Index() != 0 {
		t.Error("rest timer survived leaving practice")
	}
}

func TestPlayLeavesPractice(t *testing.T) {
	seq, _, _ := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4"}, []float64{1, 1}))
	seq.StartPractice()
	seq.Play()
	if seq.Mode() != Playback {
		t.Errorf("mode = %v", seq.Mode())
	}
}

func TestFreePlayHeldUntilNoteOff(t *testing.T) {
	seq, fs, s := newTest(t, 120)
	seq.NoteOn(note.MustParse("Db4"), SourceUser)
	s.Advance(time.Minute)
	active := seq.Snapshot().Active
	if len(active) != 1 || active[0] != note.MustParse("C#4") {
		t.Fatalf("active = %v", active)
	}
	seq.NoteOff(note.MustParse("C#4"))
	if len(seq.Snapshot().Active) != 0 {
		t.Error("NoteOff by enharmonic name did not release")
	}
	if fs.events[0].dur != 0 {
		t.Error("free play should have no duration")
	}

	seq.NoteOn(note.Rest, SourceUser)
	seq.NoteOff(note.Rest)
	if len(fs.events) != 2 {
		t.Errorf("rest produced synth events: %+v", fs.events)
	}
}

func TestUpdatesSignal(t *testing.T) {
	seq, _, _ := newTest(t, 120)
	seq.NoteOn(c4, SourceUser)
	seq.NoteOff(c4)
	select {
	case <-seq.Updates():
	default:
		t.Fatal("no update signalled")
	}
	select {
	case <-seq.Updates():
		t.Error("updates should coalesce")
	default:
	}
}

func TestSetVelocity(t *testing.T) {
	seq, fs, _ := newTest(t, 120)
	seq.SetVelocity(3)
	seq.NoteOn(c4, SourceUser)
	if fs.events[0].velo != 1 {
		t.Errorf("velocity = %v, want clamped 1", fs.events[0].velo)
	}
}

func TestNoteOnVelocity(t *testing.T) {
	seq, fs, _ := newTest(t, 120)
	seq.Select(song(t, []string{"C4", "D4"}, []float64{1, 1}))
	if err := seq.StartPractice(); err != nil {
		t.Fatal(err)
	}
	seq.NoteOnVelocity(c4, SourceUser, 0.25)
	seq.NoteOnVelocity(e4, SourceUser, -1)
	plays := fs.plays()
	if len(plays) != 2 {
		t.Fatalf("plays = %+v", plays)
	}
	if plays[0].velo != 0.25 || plays[0].dur != 500*time.Millisecond {
		t.Errorf("matched note = %+v", plays[0])
	}
	if plays[1].velo != 0 {
		t.Errorf("velocity = %v, want clamped 0", plays[1].velo)
	}
	if seq.Index() != 1 {
		t.Errorf("index = %d", seq.Index())
	}
}

func contains(ids []note.ID, id note.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
