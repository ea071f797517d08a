package songs

import (
	"fmt"
	"strings"
)

// Library is an ordered, title-indexed set of songs
type Library struct {
	songs []*Song
}

// NewLibrary builds a library. Later songs with a title already present
// replace the earlier one in place, so user files can override built-ins.
func NewLibrary(songs ...*Song) *Library {
	l := &Library{}
	for _, s := range songs {
		l.Add(s)
	}
	return l
}

// Add inserts or replaces s by title
func (l *Library) Add(s *Song) {
	if s == nil {
		return
	}
	for i, cur := range l.songs {
		if strings.EqualFold(cur.Title, s.Title) {
			l.songs[i] = s
			return
		}
	}
	l.songs = append(l.songs, s)
}

// All returns the songs in order
func (l *Library) All() []*Song { return l.songs }

func (l *Library) Len() int { return len(l.songs) }

// At returns the i-th song or nil
func (l *Library) At(i int) *Song {
	if i < 0 || i >= len(l.songs) {
		return nil
	}
	return l.songs[i]
}

// ByTitle finds a song by case-insensitive title or slug
func (l *Library) ByTitle(title string) (*Song, error) {
	for _, s := range l.songs {
		if strings.EqualFold(s.Title, title) || Slug(s.Title) == Slug(title) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("song %q not found", title)
}

// Index returns the position of the song titled title, or -1
func (l *Library) Index(title string) int {
	for i, s := range l.songs {
		if strings.EqualFold(s.Title, title) {
			return i
		}
	}
	return -1
}

// Titles returns the titles in order
func (l *Library) Titles() []string {
	titles := make([]string, len(l.songs))
	for i, s := range l.songs {
		titles[i] = s.Title
	}
	return titles
}

// Load returns the built-ins followed by the songs found in dir (if any)
func Load(dir string) (*Library, []error) {
	l := NewLibrary(Builtin()...)
	if dir == "" {
		return l, nil
	}
	extra, errs := LoadDir(dir)
	for _, s := range extra {
		l.Add(s)
	}
	return l, errs
}
