package note

import (
	"errors"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"C4", New(C, Natural, 4)},
		{"c4", New(C, Natural, 4)},
		{"F#3", New(F, Sharp, 3)},
		{"Bb5", New(B, Flat, 5)},
		{"bb5", New(B, Flat, 5)},
		{"D♯2", New(D, Sharp, 2)},
		{"E♭4", New(E, Flat, 4)},
		{"  A4 ", New(A, Natural, 4)},
		{"C-1", New(C, Natural, -1)},
		{"rest", Rest},
		{"REST", Rest},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "H4", "C", "C#", "C10", "C-2", "Cx4", "4C", "C#4x"} {
		_, err := Parse(in)
		if !errors.Is(err, ErrBadNote) {
			t.Errorf("Parse(%q) error = %v, want ErrBadNote", in, err)
		}
	}
}

func TestParseLenient(t *testing.T) {
	id, ok := ParseLenient("zz9")
	if ok || id != Fallback {
		t.Errorf("ParseLenient(garbled) = %v, %v; want %v, false", id, ok, Fallback)
	}
	id, ok = ParseLenient("G3")
	if !ok || id != New(G, Natural, 3) {
		t.Errorf("ParseLenient(G3) = %v, %v", id, ok)
	}
}

func TestNormalizeEnharmonics(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Db4", "C#4"},
		{"Eb4", "D#4"},
		{"Gb4", "F#4"},
		{"Ab4", "G#4"},
		{"Bb4", "A#4"},
		{"Cb4", "B3"},
		{"Fb4", "E4"},
		{"E#4", "F4"},
		{"B#3", "C4"},
		{"C#4", "C#4"},
		{"A4", "A4"},
		{"rest", "rest"},
	}
	for _, tt := range tests {
		got := MustParse(tt.in).Normalize()
		if got != MustParse(tt.want) {
			t.Errorf("Normalize(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for key := 0; key < 128; key++ {
		for _, id := range []ID{
			FromMIDI(key),
			New(FromMIDI(key+1).Letter(), Flat, FromMIDI(key+1).Octave()),
		} {
			once := id.Normalize()
			if twice := once.Normalize(); twice != once {
				t.Fatalf("Normalize not idempotent for %s: %s then %s", id, once, twice)
			}
		}
	}
	if Rest.Normalize() != Rest {
		t.Error("Rest changed by Normalize")
	}
}

func TestEnharmonicFrequencyEqual(t *testing.T) {
	pairs := [][2]string{{"Bb4", "A#4"}, {"Db3", "C#3"}, {"Gb5", "F#5"}}
	for _, p := range pairs {
		a, b := MustParse(p[0]), MustParse(p[1])
		if !a.Equal(b) {
			t.Errorf("%s and %s should be equal", p[0], p[1])
		}
		if math.Abs(a.Frequency()-b.Frequency()) > 1e-9 {
			t.Errorf("frequency mismatch %s=%f %s=%f", p[0], a.Frequency(), p[1], b.Frequency())
		}
	}
}

func TestFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"A4", 440},
		{"A3", 220},
		{"A5", 880},
		{"C4", 261.6256},
		{"E4", 329.6276},
	}
	for _, tt := range tests {
		got := MustParse(tt.in).Frequency()
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("Frequency(%s) = %f, want %f", tt.in, got, tt.want)
		}
	}
	if Rest.Frequency() != 0 {
		t.Error("rest should have zero frequency")
	}
}

func TestMIDIRoundTrip(t *testing.T) {
	if got := MustParse("C4").MIDI(); got != 60 {
		t.Errorf("C4 MIDI = %d, want 60", got)
	}
	if got := MustParse("A4").MIDI(); got != 69 {
		t.Errorf("A4 MIDI = %d, want 69", got)
	}
	for key := 0; key < 128; key++ {
		if got := FromMIDI(key).MIDI(); got != key {
			t.Fatalf("FromMIDI(%d).MIDI() = %d", key, got)
		}
	}
	if Rest.MIDI() != -1 {
		t.Error("rest MIDI should be -1")
	}
}

func TestString(t *testing.T) {
	for _, s := range []string{"C4", "F#3", "Bb5", "rest"} {
		if got := MustParse(s).String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
	if (ID{}).String() != "" {
		t.Error("zero ID should stringify empty")
	}
}
