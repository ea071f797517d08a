package midi

import "noteflow/note"

// GridSize is the playable area of a Launchpad: 8x8 pads
const GridSize = 8

// rowInterval is the pitch step between grid rows (a fourth), as on
// isomorphic pad layouts
const rowInterval = 5

// PadGrid maps Launchpad pads to notes. The bottom-left pad plays the base
// note; each column to the right is a semitone up and each row a fourth up.
type PadGrid struct {
	base int // MIDI key of pad 0,0
}

// NewPadGrid creates a grid with base on the bottom-left pad. Non-pitch
// ids fall back to C3.
func NewPadGrid(base note.ID) *PadGrid {
	if !base.IsPitch() {
		base = note.New(note.C, note.Natural, 3)
	}
	return &PadGrid{base: base.MIDI()}
}

// Base returns the note of the bottom-left pad
func (g *PadGrid) Base() note.ID { return note.FromMIDI(g.base) }

// Note returns the note a pad plays; side and top buttons play nothing
func (g *PadGrid) Note(row, col int) (note.ID, bool) {
	if row < 0 || row >= GridSize || col < 0 || col >= GridSize {
		return note.ID{}, false
	}
	key := g.base + row*rowInterval + col
	if key < 0 || key > 127 {
		return note.ID{}, false
	}
	return note.FromMIDI(key), true
}

// Pads returns every pad that plays id
func (g *PadGrid) Pads(id note.ID) [][2]int {
	if !id.IsPitch() {
		return nil
	}
	var pads [][2]int
	off := id.MIDI() - g.base
	for row := 0; row < GridSize; row++ {
		col := off - row*rowInterval
		if col >= 0 && col < GridSize {
			pads = append(pads, [2]int{row, col})
		}
	}
	return pads
}

// PadColors are the LED colors used by Frame
type PadColors struct {
	Root     [3]uint8 // pads playing a C
	Active   [3]uint8 // sounding notes
	Expected [3]uint8 // the note to play next in practice
}

// Frame renders the grid: C pads dim as landmarks, the expected note
// pulsing, sounding notes solid on top
func (g *PadGrid) Frame(active []note.ID, expected note.ID, colors PadColors) []LEDUpdate {
	leds := make(map[[2]int]LEDUpdate)
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if id, ok := g.Note(row, col); ok && id.PitchClass() == 0 {
				leds[[2]int{row, col}] = LEDUpdate{Row: row, Col: col, Color: colors.Root}
			}
		}
	}
	for _, p := range g.Pads(expected) {
		leds[p] = LEDUpdate{Row: p[0], Col: p[1], Color: colors.Expected, Channel: ChannelPulse}
	}
	for _, id := range active {
		for _, p := range g.Pads(id) {
			leds[p] = LEDUpdate{Row: p[0], Col: p[1], Color: colors.Active}
		}
	}

	out := make([]LEDUpdate, 0, len(leds))
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if led, ok := leds[[2]int{row, col}]; ok {
				out = append(out, led)
			}
		}
	}
	return out
}

// LEDDiff remembers what a controller shows and sends only changes
type LEDDiff struct {
	prev map[[2]int]LEDUpdate
}

// NewLEDDiff starts from a dark controller
func NewLEDDiff() *LEDDiff {
	return &LEDDiff{prev: make(map[[2]int]LEDUpdate)}
}

// Reset forgets the controller state, e.g. after a reconnect
func (d *LEDDiff) Reset() {
	d.prev = make(map[[2]int]LEDUpdate)
}

// Diff returns the updates that turn the previous frame into next. Pads
// missing from next are switched off.
func (d *LEDDiff) Diff(next []LEDUpdate) []LEDUpdate {
	nextMap := make(map[[2]int]LEDUpdate, len(next))
	var updates []LEDUpdate

	for _, led := range next {
		key := [2]int{led.Row, led.Col}
		nextMap[key] = led
		if prev, ok := d.prev[key]; !ok || prev != led {
			updates = append(updates, led)
		}
	}
	for key := range d.prev {
		if _, ok := nextMap[key]; !ok {
			updates = append(updates, LEDUpdate{Row: key[0], Col: key[1]})
		}
	}

	d.prev = nextMap
	return updates
}
