// Package theme maps palette positions to the color roles of the trainer
// UI and the Launchpad.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// note strip
	Played   rune // ● behind the cursor
	Current  rune // ▶ at the cursor
	Upcoming rune // · ahead of the cursor
	Rest     rune // ─ a rest

	// metronome
	Downbeat rune // ◆
	Beat     rune // ◇
	Off      rune // ·
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Played:   '●',
			Current:  '▶',
			Upcoming: '·',
			Rest:     '─',

			Downbeat: '◆',
			Beat:     '◇',
			Off:      '·',
		},
	}
}

// Default uses the embedded palette
func Default() *Theme {
	return New(MustBuiltin(DefaultPalette))
}

// Load uses the GPL file at path, or the embedded palette if path is empty
func Load(path string) (*Theme, error) {
	if path == "" {
		return Default(), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0
	RoleSurface  = 0.125 // black keys
	RoleMuted    = 0.25
	RoleAccent   = 0.375
	RoleFG       = 0.5 // white keys, text
	RoleActive   = 0.625
	RoleWarning  = 0.75
	RoleExpected = 0.875
	RoleSuccess  = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color       { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color  { return t.Color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color       { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color   { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color    { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color   { return t.Color(RoleActive) }
func (t *Theme) Expected() lipgloss.Color { return t.Color(RoleExpected) }
func (t *Theme) Warning() lipgloss.Color  { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color  { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

// RGB returns raw RGB for any normalized value (for Launchpad)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// PadColors returns the Launchpad colors: C landmarks, sounding notes and
// the expected practice note
func (t *Theme) PadColors() (root, active, expected [3]uint8) {
	return Blend(t.RGB(RoleSurface), t.RGB(RoleAccent), 0.5), t.RGB(RoleSuccess), t.RGB(RoleExpected)
}
