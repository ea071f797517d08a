package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"noteflow/debug"
)

// KeyboardController handles a standard MIDI keyboard
type KeyboardController struct {
	id       string
	channel  int // 1-16, 0 = omni
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

// NewKeyboardController creates a keyboard controller (input only).
// channel filters input to one MIDI channel (1-16); 0 listens to all.
func NewKeyboardController(id string, inPort drivers.In, channel int) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:       id,
		channel:  channel,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, kb.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

func (kb *KeyboardController) handle(msg gomidi.Message, timestampms int32) {
	var channel, key, velocity uint8
	var evt NoteEvent
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		evt = noteEvent(channel, key, velocity, true)
	case msg.GetNoteEnd(&channel, &key):
		evt = noteEvent(channel, key, 0, false)
	default:
		return
	}
	if kb.channel > 0 && int(channel)+1 != kb.channel {
		return
	}
	select {
	case kb.noteChan <- evt:
	default:
		debug.Log("midi", "%s: dropped %v (queue full)", kb.id, evt)
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) PadEvents() <-chan PadEvent {
	return kb.padChan // keyboards don't have pads
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// SetLEDBatch is a no-op for keyboards
func (kb *KeyboardController) SetLEDBatch(updates []LEDUpdate) error {
	return nil
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.padChan)
	close(kb.noteChan)
	return nil
}
