// Package midi reads notes from MIDI keyboards and Novation Launchpads and
// drives Launchpad LEDs. Devices are discovered and dropped by polling.
package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	PadEvents() <-chan PadEvent   // grid controllers
	NoteEvents() <-chan NoteEvent // keyboards

	// Output to the controller; no-op where there are no lights
	SetLEDBatch(updates []LEDUpdate) error

	Close() error
}

// Channel modes for LEDUpdate
const (
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
