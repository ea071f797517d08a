// Package songs holds melodies for playback and practice: the song type,
// the built-in library and YAML song files.
package songs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"noteflow/note"
)

// ErrInvalidSong marks songs that cannot be played
var ErrInvalidSong = errors.New("invalid song")

// MaxBeats is the longest a single note or rest may last
const MaxBeats = 64

// Song is a monophonic melody. Beats[i] is the length of Notes[i] in
// beats at the current tempo. Treat as immutable once built.
type Song struct {
	Title  string
	Artist string
	Notes  []note.ID
	Beats  []float64
}

// New parses note strings and validates the result
func New(title string, notes []string, beats []float64) (*Song, error) {
	ids, err := note.ParseAll(notes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSong, title, err)
	}
	s := &Song{Title: title, Notes: ids, Beats: beats}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is New for embedded song data
func MustNew(title string, notes []string, beats []float64) *Song {
	s, err := New(title, notes, beats)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate reports why s cannot be played, wrapping ErrInvalidSong
func (s *Song) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: no song", ErrInvalidSong)
	}
	if len(s.Notes) == 0 {
		return fmt.Errorf("%w: %q has no notes", ErrInvalidSong, s.Title)
	}
	if len(s.Notes) != len(s.Beats) {
		return fmt.Errorf("%w: %q has %d notes but %d beat values",
			ErrInvalidSong, s.Title, len(s.Notes), len(s.Beats))
	}
	for i, b := range s.Beats {
		if !(b > 0) || math.IsInf(b, 0) || b > MaxBeats {
			return fmt.Errorf("%w: %q beat %d is %v", ErrInvalidSong, s.Title, i, b)
		}
	}
	for i, id := range s.Notes {
		if !id.IsRest() && !id.IsPitch() {
			return fmt.Errorf("%w: %q note %d is empty", ErrInvalidSong, s.Title, i)
		}
	}
	return nil
}

// Len returns the number of notes including rests
func (s *Song) Len() int { return len(s.Notes) }

// TotalBeats sums the beat values
func (s *Song) TotalBeats() float64 {
	total := 0.0
	for _, b := range s.Beats {
		total += b
	}
	return total
}

// Pitches returns the distinct sounding notes, normalized, in first-use order
func (s *Song) Pitches() []note.ID {
	seen := make(map[note.ID]bool)
	var out []note.ID
	for _, id := range s.Notes {
		if !id.IsPitch() {
			continue
		}
		n := id.Normalize()
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Slug turns a title into a file-friendly name
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
