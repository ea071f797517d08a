package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"noteflow/note"
	"noteflow/theme"
)

// stripCell is the width of one note in the strip
const stripCell = 5

// StripWindow returns the range of notes [lo, hi) shown for a strip of
// width columns with the cursor at index. The cursor sits a quarter of
// the way in so upcoming notes stay visible.
func StripWindow(n, index, width int) (lo, hi int) {
	slots := max(1, width/stripCell)
	lo = max(0, index-slots/4)
	hi = min(n, lo+slots)
	if hi-lo < slots {
		lo = max(0, hi-slots)
	}
	return lo, hi
}

// RenderNoteStrip draws the song around the cursor: played notes dim,
// the current note highlighted, upcoming notes plain. index may equal
// len(notes) when the song is done.
func RenderNoteStrip(notes []note.ID, index, width int, th *theme.Theme) string {
	if len(notes) == 0 {
		return lipgloss.NewStyle().Foreground(th.Muted()).Render("no song selected")
	}

	played := lipgloss.NewStyle().Foreground(th.Muted())
	current := lipgloss.NewStyle().Foreground(th.BG()).Background(th.Expected()).Bold(true)
	upcoming := lipgloss.NewStyle().Foreground(th.FG())

	lo, hi := StripWindow(len(notes), index, width)
	var names, marks strings.Builder
	for i := lo; i < hi; i++ {
		label := notes[i].Normalize().String()
		if notes[i].IsRest() {
			label = string(th.Symbols.Rest)
		}
		label = fmt.Sprintf("%-*s", stripCell-1, label)

		var mark rune
		style := upcoming
		switch {
		case i < index:
			style, mark = played, th.Symbols.Played
		case i == index:
			style, mark = current, th.Symbols.Current
		default:
			mark = th.Symbols.Upcoming
		}
		names.WriteString(style.Render(label))
		names.WriteString(" ")
		marks.WriteString(style.Render(fmt.Sprintf("%-*s", stripCell-1, string(mark))))
		marks.WriteString(" ")
	}
	return names.String() + "\n" + marks.String()
}

// RenderBeats draws one symbol per beat of the bar, lighting the current
// beat
func RenderBeats(beat, signature int, running bool, th *theme.Theme) string {
	if signature <= 0 {
		signature = 4
	}
	on := lipgloss.NewStyle().Foreground(th.Accent())
	off := lipgloss.NewStyle().Foreground(th.Muted())

	// Beat counts ticks already sounded; the last one is current
	cur := -1
	if running && beat > 0 {
		cur = (beat - 1) % signature
	}
	var out strings.Builder
	for i := 0; i < signature; i++ {
		sym := th.Symbols.Beat
		if i == 0 {
			sym = th.Symbols.Downbeat
		}
		if i == cur {
			out.WriteString(on.Render(string(sym)))
		} else {
			out.WriteString(off.Render(string(th.Symbols.Off)))
		}
		if i < signature-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

// RenderProgress draws a bar width columns wide filled to frac (0-1)
func RenderProgress(frac float64, width int, th *theme.Theme) string {
	frac = max(0, min(1, frac))
	filled := int(frac*float64(width) + 0.5)
	done := lipgloss.NewStyle().Foreground(th.Success())
	todo := lipgloss.NewStyle().Foreground(th.Muted())
	return done.Render(strings.Repeat("━", filled)) + todo.Render(strings.Repeat("─", width-filled))
}
