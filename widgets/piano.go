// Package widgets renders the trainer's views as styled strings.
package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"noteflow/note"
	"noteflow/theme"
)

// whiteWidth is the number of columns per white key
const whiteWidth = 3

// KeyState is how a piano key is drawn
type KeyState int

const (
	KeyIdle KeyState = iota
	KeyExpected
	KeyActive
)

// Piano draws a keyboard from Low to High (MIDI keys, both white)
type Piano struct {
	Low, High int
	Theme     *theme.Theme
}

// NewPiano spans whole octaves from lowOctave's C to the C above
// highOctave
func NewPiano(lowOctave, highOctave int, th *theme.Theme) *Piano {
	return &Piano{
		Low:   note.New(note.C, note.Natural, lowOctave).MIDI(),
		High:  note.New(note.C, note.Natural, highOctave+1).MIDI(),
		Theme: th,
	}
}

func isBlack(key int) bool {
	switch ((key % 12) + 12) % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// cell is one styled character
type cell struct {
	ch rune
	fg lipgloss.Color
	bg lipgloss.Color
}

// Render draws the keyboard. Active notes win over the expected one.
func (p *Piano) Render(active []note.ID, expected note.ID) string {
	states := make(map[int]KeyState)
	if expected.IsPitch() {
		states[expected.MIDI()] = KeyExpected
	}
	for _, id := range active {
		if id.IsPitch() {
			states[id.MIDI()] = KeyActive
		}
	}

	var whites []int
	for k := p.Low; k <= p.High; k++ {
		if !isBlack(k) {
			whites = append(whites, k)
		}
	}
	width := len(whites) * whiteWidth
	top := make([]cell, width)
	bottom := make([]cell, width)

	for i, k := range whites {
		bg := p.keyColor(states[k], false)
		for j := 0; j < whiteWidth; j++ {
			top[i*whiteWidth+j] = cell{ch: ' ', bg: bg}
			bottom[i*whiteWidth+j] = cell{ch: ' ', bg: bg}
		}
		id := note.FromMIDI(k)
		bottom[i*whiteWidth+1] = cell{ch: []rune(id.Letter().String())[0], fg: p.Theme.BG(), bg: bg}
		if i > 0 {
			// key gap
			top[i*whiteWidth] = cell{ch: '│', fg: p.Theme.Muted(), bg: bg}
			bottom[i*whiteWidth] = cell{ch: '│', fg: p.Theme.Muted(), bg: bg}
		}
	}
	// black keys straddle the gap after their white key
	for i, k := range whites {
		if i == len(whites)-1 || !isBlack(k+1) {
			continue
		}
		bg := p.keyColor(states[k+1], true)
		top[i*whiteWidth+2] = cell{ch: ' ', bg: bg}
		top[(i+1)*whiteWidth] = cell{ch: ' ', bg: bg}
	}

	labels := make([]rune, width)
	for i := range labels {
		labels[i] = ' '
	}
	for i, k := range whites {
		if k%12 == 0 {
			for j, r := range note.FromMIDI(k).String() {
				if x := i*whiteWidth + j; x < width {
					labels[x] = r
				}
			}
		}
	}
	labelStyle := lipgloss.NewStyle().Foreground(p.Theme.Muted())

	return strings.Join([]string{
		renderCells(top),
		renderCells(bottom),
		labelStyle.Render(string(labels)),
	}, "\n")
}

func (p *Piano) keyColor(s KeyState, black bool) lipgloss.Color {
	switch s {
	case KeyActive:
		return p.Theme.Active()
	case KeyExpected:
		return p.Theme.Expected()
	}
	if black {
		return p.Theme.Surface()
	}
	return p.Theme.FG()
}

// renderCells styles runs of identically colored cells
func renderCells(cells []cell) string {
	var out strings.Builder
	for i := 0; i < len(cells); {
		j := i
		var run strings.Builder
		for j < len(cells) && cells[j].fg == cells[i].fg && cells[j].bg == cells[i].bg {
			run.WriteRune(cells[j].ch)
			j++
		}
		style := lipgloss.NewStyle().Background(cells[i].bg)
		if cells[i].fg != "" {
			style = style.Foreground(cells[i].fg)
		}
		out.WriteString(style.Render(run.String()))
		i = j
	}
	return out.String()
}
