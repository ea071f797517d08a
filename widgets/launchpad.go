package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"noteflow/midi"
)

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render("■")
}

// RenderPadGrid renders an 8x8 grid of pads (row 0 at bottom, row 7 at top)
func RenderPadGrid(grid [8][8][3]uint8) string {
	var lines []string
	for row := midi.GridSize - 1; row >= 0; row-- {
		var line strings.Builder
		for col := 0; col < midi.GridSize; col++ {
			if col > 0 {
				line.WriteString(" ")
			}
			line.WriteString(RenderPad(grid[row][col]))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// PadFrame lays a Launchpad LED frame out as a grid, dark pads in off.
// Updates outside the 8x8 grid (the button row) are ignored.
func PadFrame(leds []midi.LEDUpdate, off [3]uint8) [8][8][3]uint8 {
	var grid [8][8][3]uint8
	for row := range grid {
		for col := range grid[row] {
			grid[row][col] = off
		}
	}
	for _, led := range leds {
		if led.Row >= 0 && led.Row < midi.GridSize && led.Col >= 0 && led.Col < midi.GridSize {
			grid[led.Row][led.Col] = led.Color
		}
	}
	return grid
}

// RenderButtonRow labels the top-row buttons, one line per button:
// "1 play", "2 practice", ...
func RenderButtonRow(labels []string) string {
	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = fmt.Sprintf("%d %s", i+1, l)
	}
	return strings.Join(lines, "\n")
}

// RenderPadLegend explains the pad colors
func RenderPadLegend(c midi.PadColors) string {
	return strings.Join([]string{
		RenderLegendItem(c.Root, "C", "octave landmark"),
		RenderLegendItem(c.Active, "lit", "sounding note"),
		RenderLegendItem(c.Expected, "pulse", "next practice note"),
	}, "\n")
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way, keys padded to
// the widest one
func RenderKeyHelp(sections []KeySection) string {
	width := 0
	for _, sec := range sections {
		for _, k := range sec.Keys {
			width = max(width, lipgloss.Width(k.Key))
		}
	}
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			pad := strings.Repeat(" ", width-lipgloss.Width(k.Key))
			lines = append(lines, "  "+k.Key+pad+"  "+k.Desc)
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
