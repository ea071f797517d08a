package songs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"noteflow/debug"
)

// songFile is the on-disk form:
//
//	title: Ode to Joy
//	artist: Beethoven
//	notes: [E4, E4, F4, G4]
//	beats: [1, 1, 1, 1]
type songFile struct {
	Title  string    `yaml:"title"`
	Artist string    `yaml:"artist,omitempty"`
	Notes  []string  `yaml:"notes"`
	Beats  []float64 `yaml:"beats"`
}

// Parse decodes a YAML song. Garbled note names are rejected here rather
// than replaced, so a bad file never reaches the sequencer.
func Parse(data []byte) (*Song, error) {
	var f songFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: unmarshal yaml: %w", ErrInvalidSong, err)
	}
	if strings.TrimSpace(f.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidSong)
	}
	s, err := New(f.Title, f.Notes, f.Beats)
	if err != nil {
		return nil, err
	}
	s.Artist = f.Artist
	return s, nil
}

// Encode renders s in the song file format
func Encode(s *Song) ([]byte, error) {
	f := songFile{
		Title:  s.Title,
		Artist: s.Artist,
		Notes:  make([]string, len(s.Notes)),
		Beats:  s.Beats,
	}
	for i, id := range s.Notes {
		f.Notes[i] = id.String()
	}
	return yaml.Marshal(f)
}

// LoadFile reads one song file
func LoadFile(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// ListSongFiles returns the .yaml/.yml files in dir, sorted. A missing
// directory is not an error.
func ListSongFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir loads every song file in dir. Files that fail to load are
// skipped and reported in the returned error list.
func LoadDir(dir string) ([]*Song, []error) {
	files, err := ListSongFiles(dir)
	if err != nil {
		return nil, []error{err}
	}

	var (
		loaded []*Song
		errs   []error
	)
	for _, path := range files {
		s, err := LoadFile(path)
		if err != nil {
			debug.Log("songs", "skip %s: %v", path, err)
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, s)
	}
	debug.Log("songs", "loaded %d songs from %s (%d errors)", len(loaded), dir, len(errs))
	return loaded, errs
}
