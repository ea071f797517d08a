// Package keymap turns computer-keyboard keys into notes. Three letter
// rows each span an octave from C to the next C; Shift sharpens and Alt
// flattens. Terminals report no key-up, so Tracker synthesizes releases.
package keymap

import (
	"strings"
	"unicode"

	"noteflow/note"
)

// Rows are the key rows from top to bottom. The last key of each row is
// the C that starts the next octave.
var Rows = [3]string{"qwertyui", "asdfghjk", "zxcvbnm,"}

// DefaultOctaves are the base octaves of the three rows
var DefaultOctaves = [3]int{3, 4, 5}

var rowLetters = [8]note.Letter{note.C, note.D, note.E, note.F, note.G, note.A, note.B, note.C}

// shifted punctuation on a US layout
var unshift = map[rune]rune{'<': ','}

// Layout maps keys to notes
type Layout struct {
	octaves [3]int
}

// NewLayout builds a layout with the given row octaves
func NewLayout(octaves [3]int) *Layout {
	for i, o := range octaves {
		if o < 0 || o > 8 {
			octaves[i] = DefaultOctaves[i]
		}
	}
	return &Layout{octaves: octaves}
}

// DefaultLayout uses octaves 3, 4 and 5
func DefaultLayout() *Layout { return NewLayout(DefaultOctaves) }

// Octaves returns the row octaves
func (l *Layout) Octaves() [3]int { return l.octaves }

// Shift moves every row by delta octaves, staying within range
func (l *Layout) Shift(delta int) {
	lo, hi := l.octaves[0]+delta, l.octaves[2]+delta
	if lo < 0 || hi > 8 {
		return
	}
	for i := range l.octaves {
		l.octaves[i] += delta
	}
}

// BaseKey folds a shifted key to the key cap it came from
func BaseKey(r rune) rune {
	if b, ok := unshift[r]; ok {
		return b
	}
	return unicode.ToLower(r)
}

func shifted(r rune) bool {
	_, punct := unshift[r]
	return punct || unicode.IsUpper(r)
}

// Resolve returns the note for a key press. Uppercase (or shifted
// punctuation) means Shift: sharp, except on E and B. Alt means flat,
// except on C and F. Shift wins when both are set.
func (l *Layout) Resolve(r rune, alt bool) (note.ID, bool) {
	base := BaseKey(r)
	for row, keys := range Rows {
		i := strings.IndexRune(keys, base)
		if i < 0 {
			continue
		}
		letter := rowLetters[i]
		octave := l.octaves[row]
		if i == len(rowLetters)-1 {
			octave++
		}

		acc := note.Natural
		switch {
		case shifted(r) && letter != note.E && letter != note.B:
			acc = note.Sharp
		case !shifted(r) && alt && letter != note.C && letter != note.F:
			acc = note.Flat
		}
		return note.New(letter, acc, octave), true
	}
	return note.ID{}, false
}

// Binding is a key plus modifiers
type Binding struct {
	Key   rune
	Shift bool
	Alt   bool
}

func (b Binding) String() string {
	var s strings.Builder
	if b.Shift {
		s.WriteString("⇧")
	}
	if b.Alt {
		s.WriteString("⌥")
	}
	s.WriteString(strings.ToUpper(string(b.Key)))
	return s.String()
}

// BindingFor returns how to play id on this layout, preferring plain keys
// over Shift over Alt
func (l *Layout) BindingFor(id note.ID) (Binding, bool) {
	if !id.IsPitch() {
		return Binding{}, false
	}
	want := id.Normalize()
	for _, mod := range []Binding{{}, {Shift: true}, {Alt: true}} {
		for _, keys := range Rows {
			for _, k := range keys {
				r := k
				if mod.Shift {
					r = shiftKey(k)
				}
				got, ok := l.Resolve(r, mod.Alt)
				if ok && got.Normalize() == want {
					return Binding{Key: k, Shift: mod.Shift, Alt: mod.Alt}, true
				}
			}
		}
	}
	return Binding{}, false
}

func shiftKey(k rune) rune {
	for s, b := range unshift {
		if b == k {
			return s
		}
	}
	return unicode.ToUpper(k)
}
