package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"noteflow/app"
	"noteflow/keymap"
	"noteflow/sequencer"
	"noteflow/theme"
	"noteflow/widgets"
)

// refresh redraws between updates so held-key releases and the beat
// indicator stay current
const refresh = 100 * time.Millisecond

type Model struct {
	App   *app.App
	Theme *theme.Theme

	width    int
	status   string // last error
	showHelp bool
	showPads bool
	quitting bool
}

type UpdateMsg struct{}

type tickMsg time.Time

func NewModel(a *app.App, th *theme.Theme) Model {
	return Model{App: a, Theme: th, width: 80}
}

func ListenForUpdates(a *app.App) tea.Cmd {
	return func() tea.Msg {
		<-a.UpdateChan
		return UpdateMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForUpdates(m.App), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		return m.key(msg)

	case UpdateMsg:
		return m, ListenForUpdates(m.App)

	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		m.App.Close()
		return m, tea.Quit

	case tea.KeySpace:
		m.report(m.App.TogglePlay())
	case tea.KeyTab:
		m.report(m.App.TogglePractice())
	case tea.KeyLeft:
		m.App.ShiftOctave(-1)
	case tea.KeyRight:
		m.App.ShiftOctave(1)
	case tea.KeyUp:
		m.App.NudgeVolume(0.05)
	case tea.KeyDown:
		m.App.NudgeVolume(-0.05)
	case tea.KeyBackspace:
		m.App.ReleaseKeys()

	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return m, nil
		}
		r := msg.Runes[0]
		if m.App.Key(r, msg.Alt) {
			return m, nil
		}
		switch r {
		case '+', '=':
			m.App.NudgeBPM(5)
		case '-', '_':
			m.App.NudgeBPM(-5)
		case '.':
			m.App.ToggleMetronome()
		case '[':
			m.report(m.App.NextSong(-1))
		case ']':
			m.report(m.App.NextSong(1))
		case '/':
			m.showPads = !m.showPads
		case '?':
			m.showHelp = !m.showHelp
		}
	}
	return m, nil
}

// report shows err on the status line, or clears a previous error
func (m *Model) report(err error) {
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.App.State()
	seq := st.Seq

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	doneStyle := lipgloss.NewStyle().Foreground(m.Theme.Success()).Bold(true)

	// Header
	mode := strings.ToUpper(seq.Mode.String())
	header := headerStyle.Render(fmt.Sprintf("noteflow  %-8s %3dbpm  vol:%3.0f%%", mode, st.BPM, st.Volume*100))
	beats := widgets.RenderBeats(st.Beat, st.Signature, st.Metronome, m.Theme)
	var flags []string
	if !st.Audio {
		flags = append(flags, warnStyle.Render("silent"))
	}
	if n := len(st.Controllers); n > 0 {
		flags = append(flags, dimStyle.Render(fmt.Sprintf("midi:%d", n)))
	}
	header = strings.Join(append([]string{header, beats}, flags...), "  ")

	// Song
	title := seq.Title
	if title == "" {
		title = "free play"
	}
	songLine := title
	if n := len(seq.Notes); n > 0 {
		songLine = fmt.Sprintf("%s  %s %d/%d", title,
			widgets.RenderProgress(float64(seq.Index)/float64(n), 20, m.Theme), min(seq.Index, n), n)
	}
	strip := widgets.RenderNoteStrip(seq.Notes, seq.Index, m.width, m.Theme)

	piano := widgets.NewPiano(st.Octaves[0], st.Octaves[2], m.Theme)
	keys := piano.Render(append(seq.Active, st.Held...), seq.Expected)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(songLine)
	out.WriteString("\n")
	out.WriteString(strip)
	out.WriteString("\n\n")
	out.WriteString(keys)
	out.WriteString("\n")

	switch {
	case seq.Complete:
		out.WriteString(doneStyle.Render("Song complete!"))
	case seq.Mode == sequencer.Practice && st.Hint != "":
		out.WriteString(fmt.Sprintf("next %s  press %s", seq.Expected.Normalize(), headerStyle.Render(st.Hint)))
	}
	out.WriteString("\n")

	if m.status != "" {
		out.WriteString(warnStyle.Render(m.status))
	}
	out.WriteString("\n")

	if m.showPads {
		off := [3]uint8(m.Theme.RGB(theme.RoleSurface))
		grid := widgets.RenderPadGrid(widgets.PadFrame(m.App.Frame(), off))
		side := widgets.RenderPadLegend(m.App.PadColors()) + "\n\n" + dimStyle.Render(widgets.RenderButtonRow(app.PadButtons))
		out.WriteString("\n")
		out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, grid, "   ", side))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(helpSections)))
	} else {
		out.WriteString(dimStyle.Render(fmt.Sprintf("%s: notes  space:play  tab:practice  [ ]:song  ?:help  esc:quit", rowSpans())))
	}
	return out.String()
}

// rowSpans describes the note rows, e.g. "Q-I A-K Z-,"
func rowSpans() string {
	spans := make([]string, len(keymap.Rows))
	for i, row := range keymap.Rows {
		r := []rune(strings.ToUpper(row))
		spans[i] = string(r[0]) + "-" + string(r[len(r)-1])
	}
	return strings.Join(spans, " ")
}

var helpSections = []widgets.KeySection{
	{Title: "Notes", Keys: []widgets.KeyBinding{
		{Key: rowSpans(), Desc: "three octaves, C to C"},
		{Key: "shift", Desc: "sharp"},
		{Key: "alt", Desc: "flat"},
		{Key: "left/right", Desc: "shift octaves"},
		{Key: "backspace", Desc: "release all keys"},
		// a terminal sends no key-up, so a re-press inside the hold window
		// reads as auto-repeat
		{Key: "same note twice", Desc: "release first (keyboard.holdMs) or use another octave"},
	}},
	{Title: "Song", Keys: []widgets.KeyBinding{
		{Key: "space", Desc: "play / stop"},
		{Key: "tab", Desc: "practice / stop"},
		{Key: "[ ]", Desc: "previous / next song"},
	}},
	{Title: "Sound", Keys: []widgets.KeyBinding{
		{Key: "+ -", Desc: "tempo"},
		{Key: ".", Desc: "metronome"},
		{Key: "up/down", Desc: "volume"},
		{Key: "/", Desc: "launchpad view"},
	}},
}
