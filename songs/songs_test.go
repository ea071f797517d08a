package songs

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"noteflow/note"
)

func TestBuiltinSongsAreValid(t *testing.T) {
	want := map[string]int{
		"Happy Birthday":         28,
		"Twinkle Star":           16,
		"Mary Had a Little Lamb": 16,
		"Ode to Joy":             16,
		"Jingle Bells":           14,
	}
	all := Builtin()
	if len(all) != len(want) {
		t.Fatalf("got %d built-in songs, want %d", len(all), len(want))
	}
	for _, s := range all {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Title, err)
		}
		if n, ok := want[s.Title]; !ok || s.Len() != n {
			t.Errorf("%s: %d notes, want %d", s.Title, s.Len(), n)
		}
	}
}

func TestValidate(t *testing.T) {
	c4 := note.MustParse("C4")
	tests := []struct {
		name string
		song *Song
	}{
		{"nil", nil},
		{"empty", &Song{Title: "x"}},
		{"length mismatch", &Song{Title: "x", Notes: []note.ID{c4, c4}, Beats: []float64{1}}},
		{"zero beat", &Song{Title: "x", Notes: []note.ID{c4}, Beats: []float64{0}}},
		{"negative beat", &Song{Title: "x", Notes: []note.ID{c4}, Beats: []float64{-1}}},
		{"NaN beat", &Song{Title: "x", Notes: []note.ID{c4}, Beats: []float64{math.NaN()}}},
		{"infinite beat", &Song{Title: "x", Notes: []note.ID{c4}, Beats: []float64{math.Inf(1)}}},
		{"huge beat", &Song{Title: "x", Notes: []note.ID{c4}, Beats: []float64{MaxBeats + 1}}},
		{"zero note", &Song{Title: "x", Notes: []note.ID{{}}, Beats: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.song.Validate(); !errors.Is(err, ErrInvalidSong) {
				t.Errorf("Validate() = %v, want ErrInvalidSong", err)
			}
		})
	}
}

func TestParseRejectsInfiniteBeats(t *testing.T) {
	_, err := Parse([]byte("title: bad\nnotes: [C4, D4]\nbeats: [.inf, 1]\n"))
	if !errors.Is(err, ErrInvalidSong) {
		t.Errorf("Parse() = %v, want ErrInvalidSong", err)
	}
	if _, err := New("long", []string{"C4"}, []float64{MaxBeats}); err != nil {
		t.Errorf("a %d-beat note should load: %v", MaxBeats, err)
	}
}

func TestNewRejectsGarbledNotes(t *testing.T) {
	_, err := New("bad", []string{"C4", "Q9"}, []float64{1, 1})
	if !errors.Is(err, ErrInvalidSong) || !errors.Is(err, note.ErrBadNote) {
		t.Errorf("New() = %v, want ErrInvalidSong wrapping ErrBadNote", err)
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
title: Scale
artist: Nobody
notes: [C4, D4, Eb4, rest, F4]
beats: [1, 1, 0.5, 0.5, 2]
`)
	s, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if s.Title != "Scale" || s.Artist != "Nobody" || s.Len() != 5 {
		t.Errorf("got %+v", s)
	}
	if !s.Notes[3].IsRest() || s.Notes[2] != note.MustParse("Eb4") {
		t.Errorf("notes = %v", s.Notes)
	}
	if s.TotalBeats() != 5 {
		t.Errorf("TotalBeats = %v", s.TotalBeats())
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := map[string]string{
		"no title": "notes: [C4]\nbeats: [1]\n",
		"mismatch": "title: x\nnotes: [C4, D4]\nbeats: [1]\n",
		"garbled":  "title: x\nnotes: [C4, ZZ]\nbeats: [1, 1]\n",
		"syntax":   "title: [x\n",
	}
	for name, in := range tests {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrInvalidSong) {
			t.Errorf("%s: err = %v, want ErrInvalidSong", name, err)
		}
	}
}

func TestEncodeParse(t *testing.T) {
	orig := Builtin()[0]
	data, err := Encode(orig)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Encode()) = %v\n%s", err, data)
	}
	if back.Title != orig.Title || back.Len() != orig.Len() {
		t.Fatalf("got %q/%d", back.Title, back.Len())
	}
	for i := range orig.Notes {
		if back.Notes[i] != orig.Notes[i] || back.Beats[i] != orig.Beats[i] {
			t.Errorf("entry %d: %v/%v != %v/%v", i, back.Notes[i], back.Beats[i], orig.Notes[i], orig.Beats[i])
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.yaml", "title: Bee\nnotes: [C4]\nbeats: [1]\n")
	write("a.yml", "title: Ode to Joy\nnotes: [E4, E4]\nbeats: [1, 1]\n")
	write("broken.yaml", "title: x\nnotes: [C4]\nbeats: []\n")
	write("notes.txt", "ignored")

	files, err := ListSongFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 || filepath.Base(files[0]) != "a.yml" {
		t.Errorf("files = %v", files)
	}

	lib, errs := Load(dir)
	if len(errs) != 1 {
		t.Errorf("errors = %v, want one for broken.yaml", errs)
	}
	if lib.Len() != 6 {
		t.Errorf("library has %d songs, want 5 built-ins + 1 new", lib.Len())
	}
	ode, err := lib.ByTitle("ode to joy")
	if err != nil || ode.Len() != 2 {
		t.Errorf("user file should override built-in: %v %v", ode, err)
	}
	if lib.Index("Ode to Joy") != 3 {
		t.Errorf("override should keep position, got %d", lib.Index("Ode to Joy"))
	}
}

func TestListSongFilesMissingDir(t *testing.T) {
	files, err := ListSongFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(files) != 0 {
		t.Errorf("got %v, %v", files, err)
	}
}

func TestLibraryLookup(t *testing.T) {
	lib := NewLibrary(Builtin()...)
	if _, err := lib.ByTitle("mary-had-a-little-lamb"); err != nil {
		t.Errorf("slug lookup: %v", err)
	}
	if _, err := lib.ByTitle("Stairway"); err == nil {
		t.Error("unknown title should fail")
	}
	if lib.At(-1) != nil || lib.At(99) != nil {
		t.Error("At out of range should be nil")
	}
	if got := lib.Titles()[0]; got != "Happy Birthday" {
		t.Errorf("first title = %q", got)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Ode to Joy":             "ode-to-joy",
		"  Happy   Birthday! ":   "happy-birthday",
		"Mary Had a Little Lamb": "mary-had-a-little-lamb",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPitches(t *testing.T) {
	s := MustNew("x", []string{"Bb4", "A#4", "rest", "C4"}, []float64{1, 1, 1, 1})
	p := s.Pitches()
	if len(p) != 2 || p[0] != note.MustParse("A#4") || p[1] != note.MustParse("C4") {
		t.Errorf("Pitches = %v", p)
	}
}
