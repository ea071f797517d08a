package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"noteflow/midi"
	"noteflow/note"
	"noteflow/theme"
)

func TestStripWindow(t *testing.T) {
	tests := []struct {
		n, index, width int
		lo, hi          int
	}{
		{10, 0, 40, 0, 8},    // 8 slots, cursor at the start
		{10, 5, 40, 2, 10},   // cursor a quarter in, clipped at the end
		{30, 12, 40, 10, 18}, // mid-song
		{3, 1, 40, 0, 3},     // short song
		{10, 10, 40, 2, 10},  // finished
		{10, 4, 0, 4, 5},     // at least one slot
	}
	for _, tt := range tests {
		lo, hi := StripWindow(tt.n, tt.index, tt.width)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("StripWindow(%d, %d, %d) = [%d,%d), want [%d,%d)", tt.n, tt.index, tt.width, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestRenderNoteStrip(t *testing.T) {
	th := theme.Default()
	ids, _ := note.ParseAll([]string{"C4", "rest", "Bb4"})
	out := RenderNoteStrip(ids, 1, 80, th)
	for _, want := range []string{"C4", "A#4", string(th.Symbols.Rest), string(th.Symbols.Current)} {
		if !strings.Contains(out, want) {
			t.Errorf("strip missing %q:\n%s", want, out)
		}
	}
	if got := lipgloss.Height(out); got != 2 {
		t.Errorf("height = %d", got)
	}
	if !strings.Contains(RenderNoteStrip(nil, 0, 80, th), "no song") {
		t.Error("empty strip should say so")
	}
}

func TestRenderBeats(t *testing.T) {
	th := theme.Default()
	out := RenderBeats(5, 4, true, th) // fifth tick: downbeat of bar two
	if !strings.Contains(out, string(th.Symbols.Downbeat)) {
		t.Errorf("downbeat not lit: %q", out)
	}
	out = RenderBeats(6, 4, true, th)
	if strings.Contains(out, string(th.Symbols.Downbeat)) || !strings.Contains(out, string(th.Symbols.Beat)) {
		t.Errorf("beat 2 wrong: %q", out)
	}
	if out := RenderBeats(3, 3, false, th); strings.ContainsAny(out, string([]rune{th.Symbols.Beat, th.Symbols.Downbeat})) {
		t.Errorf("stopped metronome lit: %q", out)
	}
}

func TestRenderProgress(t *testing.T) {
	th := theme.Default()
	if w := lipgloss.Width(RenderProgress(0.5, 20, th)); w != 20 {
		t.Errorf("width = %d", w)
	}
	if w := lipgloss.Width(RenderProgress(3, 10, th)); w != 10 {
		t.Errorf("overfull width = %d", w)
	}
}

func TestPiano(t *testing.T) {
	th := theme.Default()
	p := NewPiano(3, 5, th)
	if p.Low != 48 || p.High != 84 {
		t.Fatalf("range = %d..%d", p.Low, p.High)
	}
	out := p.Render([]note.ID{note.MustParse("C4")}, note.MustParse("E4"))
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	// 3 octaves of 7 white keys plus the top C
	if w := lipgloss.Width(lines[0]); w != 22*whiteWidth {
		t.Errorf("width = %d", w)
	}
	for _, label := range []string{"C3", "C4", "C5", "C6"} {
		if !strings.Contains(lines[2], label) {
			t.Errorf("missing label %s in %q", label, lines[2])
		}
	}
}

func TestPadFrame(t *testing.T) {
	off := [3]uint8{1, 1, 1}
	grid := PadFrame([]midi.LEDUpdate{
		{Row: 0, Col: 0, Color: [3]uint8{9, 9, 9}},
		{Row: 8, Col: 0, Color: [3]uint8{7, 7, 7}}, // top row is not part of the grid
	}, off)
	if grid[0][0] != [3]uint8{9, 9, 9} || grid[7][7] != off {
		t.Errorf("grid = %v", grid)
	}
	if lipgloss.Height(RenderPadGrid(grid)) != 8 {
		t.Error("grid should render 8 rows")
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{
		{Title: "Song", Keys: []KeyBinding{{Key: "space", Desc: "play"}}},
		{Keys: []KeyBinding{{Key: "[ ]", Desc: "song"}}},
	})
	want := "Song\n  space  play\n  [ ]    song"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRenderButtonRow(t *testing.T) {
	if got := RenderButtonRow([]string{"play", "stop"}); got != "1 play\n2 stop" {
		t.Errorf("got %q", got)
	}
	if lipgloss.Height(RenderPadLegend(midi.PadColors{})) != 3 {
		t.Error("legend should have 3 lines")
	}
}
