package midi

import "noteflow/note"

// NoteEvent is a key going down or up on a MIDI keyboard
type NoteEvent struct {
	Note     note.ID
	Velocity float64 // 0-1; zero on release
	On       bool
	Channel  uint8
}

// PadEvent is sent when a pad/button is pressed or released on a grid
// controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
	On       bool
}

// LEDUpdate sets one pad's color
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8 // ChannelStatic, ChannelFlash or ChannelPulse
}

// noteEvent converts a raw key and velocity
func noteEvent(channel, key, velocity uint8, on bool) NoteEvent {
	return NoteEvent{
		Note:     note.FromMIDI(int(key)),
		Velocity: float64(velocity) / 127,
		On:       on,
		Channel:  channel,
	}
}
