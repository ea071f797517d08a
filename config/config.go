package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AudioConfig controls the synth engine
type AudioConfig struct {
	SampleRate   int     `json:"sampleRate,omitempty"`
	BufferMs     int     `json:"bufferMs,omitempty"`
	MasterVolume float64 `json:"masterVolume"`
	Velocity     float64 `json:"velocity"`
	Reverb       bool    `json:"reverb"`
	ReleaseMs    int     `json:"releaseMs,omitempty"`
}

// MetronomeConfig sets the starting tempo
type MetronomeConfig struct {
	BPM       int  `json:"bpm"`
	Signature int  `json:"signature"`
	Enabled   bool `json:"enabled"`
}

// KeyboardConfig controls the computer-keyboard layout
type KeyboardConfig struct {
	RowOctaves [3]int `json:"rowOctaves"`
	HoldMs     int    `json:"holdMs,omitempty"`
}

// MIDIConfig controls MIDI input
type MIDIConfig struct {
	Enabled     bool   `json:"enabled"`
	PortFilter  string `json:"portFilter,omitempty"`  // keyboard ports must contain this; empty accepts all
	Channel     int    `json:"channel,omitempty"`     // 1-16, 0 = omni
	Launchpad   bool   `json:"launchpad"`             // use a Launchpad as a pad grid
	PadBaseNote string `json:"padBaseNote,omitempty"` // bottom-left Launchpad pad
}

// Config is the main configuration structure
type Config struct {
	Audio     AudioConfig     `json:"audio"`
	Metronome MetronomeConfig `json:"metronome"`
	Keyboard  KeyboardConfig  `json:"keyboard"`
	MIDI      MIDIConfig      `json:"midi"`
	SongsDir  string          `json:"songsDir,omitempty"`
	Palette   string          `json:"palette,omitempty"` // GPL file; empty uses the built-in palette
	Song      string          `json:"song,omitempty"`    // title selected at startup
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:   44100,
			BufferMs:     40,
			MasterVolume: 0.8,
			Velocity:     0.8,
			Reverb:       true,
			ReleaseMs:    60,
		},
		Metronome: MetronomeConfig{
			BPM:       120,
			Signature: 4,
		},
		Keyboard: KeyboardConfig{
			RowOctaves: [3]int{3, 4, 5},
			HoldMs:     550,
		},
		MIDI: MIDIConfig{
			Enabled:     true,
			Launchpad:   true,
			PadBaseNote: "C3",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "noteflow"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultSongsDir is where user song files live unless configured
func DefaultSongsDir() string {
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "songs")
}

// Load reads the config from the default path, or returns defaults if
// there is none
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. A missing file yields defaults;
// fields absent from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with defaults
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.BufferMs <= 0 {
		c.Audio.BufferMs = def.Audio.BufferMs
	}
	if c.Audio.ReleaseMs <= 0 {
		c.Audio.ReleaseMs = def.Audio.ReleaseMs
	}
	c.Audio.MasterVolume = clamp01(c.Audio.MasterVolume)
	c.Audio.Velocity = clamp01(c.Audio.Velocity)
	if c.Metronome.Signature <= 0 {
		c.Metronome.Signature = def.Metronome.Signature
	}
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 16 {
		c.MIDI.Channel = 0
	}
	if c.Keyboard.HoldMs <= 0 {
		c.Keyboard.HoldMs = def.Keyboard.HoldMs
	}
}

// SongsPath returns the songs directory, falling back to the default
func (c *Config) SongsPath() string {
	if c.SongsDir != "" {
		return c.SongsDir
	}
	return DefaultSongsDir()
}

// Buffer returns the audio buffer length
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// Release returns the note release time
func (c *Config) Release() time.Duration {
	return time.Duration(c.Audio.ReleaseMs) * time.Millisecond
}

// Hold returns the synthetic key-release window
func (c *Config) Hold() time.Duration {
	return time.Duration(c.Keyboard.HoldMs) * time.Millisecond
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
