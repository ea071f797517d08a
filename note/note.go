// Package note models musical note identifiers.
//
// An ID is either the rest sentinel or a pitch made of a letter, an
// accidental and an octave. IDs are parsed once at the input boundary and
// compared after Normalize, which spells every pitch with sharps so that
// enharmonic pairs such as Bb4 and A#4 compare equal.
package note

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadNote is returned when a note string cannot be parsed.
var ErrBadNote = errors.New("note: unsupported note identifier")

// Letter is a natural note name
type Letter uint8

const (
	C Letter = iota
	D
	E
	F
	G
	A
	B
)

var letterNames = [...]byte{'C', 'D', 'E', 'F', 'G', 'A', 'B'}

// semitones above C for each letter
var letterSemis = [...]int{0, 2, 4, 5, 7, 9, 11}

func (l Letter) String() string {
	if int(l) >= len(letterNames) {
		return "?"
	}
	return string(letterNames[l])
}

// Accidental raises or lowers a letter by a semitone
type Accidental int8

const (
	Flat    Accidental = -1
	Natural Accidental = 0
	Sharp   Accidental = 1
)

type kind uint8

const (
	kindNone kind = iota
	kindRest
	kindPitch
)

// ID identifies a note. The zero value is not a valid note; use Rest or a
// parsed pitch. IDs are comparable and can be used as map keys.
type ID struct {
	kind       kind
	letter     Letter
	accidental Accidental
	octave     int
}

// Rest denotes silence. It is never normalized or sounded.
var Rest = ID{kind: kindRest}

// Fallback is used in place of garbled input (A4).
var Fallback = New(A, Natural, 4)

// Reference tuning
const (
	ReferenceFrequency = 440.0 // A4
	referenceKey       = 69    // MIDI key of A4
)

// New creates a pitch ID.
func New(l Letter, a Accidental, octave int) ID {
	return ID{kind: kindPitch, letter: l, accidental: a, octave: octave}
}

// IsRest reports whether id is the rest sentinel
func (id ID) IsRest() bool { return id.kind == kindRest }

// IsZero reports whether id is the zero value
func (id ID) IsZero() bool { return id.kind == kindNone }

// IsPitch reports whether id names a sounding pitch
func (id ID) IsPitch() bool { return id.kind == kindPitch }

func (id ID) Letter() Letter         { return id.letter }
func (id ID) Accidental() Accidental { return id.accidental }
func (id ID) Octave() int            { return id.octave }

// MIDI returns the MIDI key number (C4 = 60). Rest and zero IDs return -1.
func (id ID) MIDI() int {
	if id.kind != kindPitch {
		return -1
	}
	return (id.octave+1)*12 + letterSemis[id.letter] + int(id.accidental)
}

// PitchClass returns the semitone index 0-11 (C = 0), or -1 for non-pitches.
func (id ID) PitchClass() int {
	if id.kind != kindPitch {
		return -1
	}
	return mod(letterSemis[id.letter]+int(id.accidental), 12)
}

// Frequency returns the equal-tempered fundamental in Hz, or 0 for rests.
func (id ID) Frequency() float64 {
	if id.kind != kindPitch {
		return 0
	}
	return ReferenceFrequency * math.Pow(2, float64(id.MIDI()-referenceKey)/12)
}

// sharp spelling of each pitch class
var sharpSpelling = [12]struct {
	letter     Letter
	accidental Accidental
}{
	{C, Natural}, {C, Sharp}, {D, Natural}, {D, Sharp}, {E, Natural}, {F, Natural},
	{F, Sharp}, {G, Natural}, {G, Sharp}, {A, Natural}, {A, Sharp}, {B, Natural},
}

// Normalize respells the pitch using sharps only. Flats become their
// enharmonic sharps with the octave preserved (Bb4 -> A#4); spellings that
// cross an octave boundary follow the pitch (Cb4 -> B3, B#3 -> C4).
// Rest and zero IDs are returned unchanged.
func (id ID) Normalize() ID {
	if id.kind != kindPitch {
		return id
	}
	return FromMIDI(id.MIDI())
}

// Equal reports whether two IDs denote the same pitch (or are both rests).
func (id ID) Equal(other ID) bool {
	return id.Normalize() == other.Normalize()
}

// FromMIDI returns the sharp-spelled ID for a MIDI key number.
func FromMIDI(key int) ID {
	s := sharpSpelling[mod(key, 12)]
	return New(s.letter, s.accidental, floorDiv(key, 12)-1)
}

func (id ID) String() string {
	switch id.kind {
	case kindRest:
		return "rest"
	case kindPitch:
		var b strings.Builder
		b.WriteByte(letterNames[id.letter])
		switch id.accidental {
		case Sharp:
			b.WriteByte('#')
		case Flat:
			b.WriteByte('b')
		}
		b.WriteString(strconv.Itoa(id.octave))
		return b.String()
	}
	return ""
}

// Parse parses a note such as "C4", "F#3", "Bb5", "db4" or "rest".
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "rest") {
		return Rest, nil
	}
	if s == "" {
		return ID{}, fmt.Errorf("%w: empty", ErrBadNote)
	}

	l, ok := parseLetter(s[0])
	if !ok {
		return ID{}, fmt.Errorf("%w: %q", ErrBadNote, s)
	}
	rest := s[1:]

	acc := Natural
	switch {
	case strings.HasPrefix(rest, "#"):
		acc, rest = Sharp, rest[1:]
	case strings.HasPrefix(rest, "♯"):
		acc, rest = Sharp, rest[len("♯"):]
	case strings.HasPrefix(rest, "b"):
		acc, rest = Flat, rest[1:]
	case strings.HasPrefix(rest, "♭"):
		acc, rest = Flat, rest[len("♭"):]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil || octave < -1 || octave > 9 {
		return ID{}, fmt.Errorf("%w: %q", ErrBadNote, s)
	}
	return New(l, acc, octave), nil
}

// MustParse is like Parse but panics on error. Use for literals only.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseLenient never fails: garbled input yields Fallback so a single bad
// event cannot halt playback. The second result reports whether s parsed.
func ParseLenient(s string) (ID, bool) {
	id, err := Parse(s)
	if err != nil {
		return Fallback, false
	}
	return id, true
}

// ParseAll parses a list of note strings, stopping at the first error.
func ParseAll(ss []string) ([]ID, error) {
	ids := make([]ID, len(ss))
	for i, s := range ss {
		id, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func parseLetter(c byte) (Letter, bool) {
	if c >= 'a' && c <= 'g' {
		c -= 'a' - 'A'
	}
	for i, n := range letterNames {
		if n == c {
			return Letter(i), true
		}
	}
	return 0, false
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}
