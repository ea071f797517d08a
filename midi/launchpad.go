package midi

import (
	"fmt"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"noteflow/debug"
)

var ledSendCount uint64

// LaunchpadController handles a Novation Launchpad X in programmer mode
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

// NewLaunchpadController creates and configures a Launchpad
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:       id,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Programmer mode: F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))
		// Brightness: F0 00 20 29 02 0C 08 <0-127> F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))
		// External LED feedback: F0 00 20 29 02 0C 0A 01 01 F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}))
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

func (lp *LaunchpadController) handle(msg gomidi.Message, timestampms int32) {
	var channel, key, velocity, cc, value uint8
	var evt PadEvent
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		row, col := noteToRowCol(key)
		if row < 0 {
			return
		}
		evt = PadEvent{Row: row, Col: col, Velocity: velocity, On: true}
	case msg.GetNoteEnd(&channel, &key):
		row, col := noteToRowCol(key)
		if row < 0 {
			return
		}
		evt = PadEvent{Row: row, Col: col}
	case msg.GetControlChange(&channel, &cc, &value):
		// top row buttons, CC 91-98
		row, col := ccToRowCol(cc)
		if row < 0 {
			return
		}
		evt = PadEvent{Row: row, Col: col, Velocity: value, On: value > 0}
	default:
		return
	}
	select {
	case lp.padChan <- evt:
	default:
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent {
	return lp.noteChan // pads arrive as PadEvents and are mapped by a PadGrid
}

// SetLEDBatch sends LED updates as individual NoteOn messages
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		key := rowColToNote(u.Row, u.Col)
		color := mapRGBToLaunchpad(u.Color)
		if err := lp.send(gomidi.NoteOn(u.Channel, key, color)); err != nil {
			return fmt.Errorf("led %d,%d: %w", u.Row, u.Col, err)
		}
	}

	count := atomic.AddUint64(&ledSendCount, uint64(len(updates)))
	if count%100 < uint64(len(updates)) {
		debug.Log("midi", "led batch count=%d (this batch=%d)", count, len(updates))
	}
	return nil
}

// launchpadPalette holds approximate RGB values of Launchpad X palette
// entries: {velocity, R, G, B}
var launchpadPalette = [][4]uint8{
	{0, 0, 0, 0},         // off
	{5, 255, 0, 0},       // red
	{6, 255, 80, 80},     // bright red
	{7, 180, 60, 60},     // dim red
	{9, 255, 100, 0},     // orange
	{11, 180, 80, 40},    // dim orange
	{13, 255, 200, 0},    // yellow
	{17, 0, 180, 0},      // green
	{19, 0, 100, 0},      // dim green
	{21, 0, 255, 0},      // bright green
	{37, 0, 200, 200},    // cyan
	{43, 40, 60, 120},    // dim blue
	{45, 0, 100, 255},    // blue
	{47, 80, 150, 255},   // bright blue
	{49, 150, 0, 200},    // purple
	{53, 255, 80, 180},   // pink
	{78, 100, 100, 255},  // light blue
	{84, 255, 150, 50},   // bright orange
	{87, 150, 255, 100},  // lime
	{97, 180, 180, 60},   // dim yellow
	{119, 255, 255, 255}, // white
}

// mapRGBToLaunchpad finds the nearest palette entry for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	bestMatch := uint8(0)
	bestDist := 1 << 30

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range launchpadPalette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}
	return bestMatch
}

func (lp *LaunchpadController) Close() error {
	if lp.send != nil {
		var updates []LEDUpdate
		for row := 0; row < 9; row++ {
			for col := 0; col < 9; col++ {
				if row == 8 && col == 8 {
					continue // no LED at 8,8
				}
				updates = append(updates, LEDUpdate{Row: row, Col: col})
			}
		}
		lp.SetLEDBatch(updates)
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.padChan)
	close(lp.noteChan)
	return nil
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, ..., 89
// Top row:   Row 8 = CC 91-98 on input, notes 91-98 for LEDs

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(key uint8) (row, col int) {
	if key >= 91 && key <= 98 {
		return 8, int(key - 91)
	}
	row = int(key/10) - 1
	col = int(key%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
