package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"noteflow/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// Options choose which ports become controllers
type Options struct {
	Filter    string // case-insensitive substring a keyboard port must contain; empty accepts all
	Launchpad bool   // open Launchpads as pad grids
	Channel   int    // keyboard input channel 1-16, 0 = omni
}

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	opts        Options
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(opts Options) *DeviceManager {
	return &DeviceManager{
		opts:        opts,
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
	}
}

// Events returns a channel of device connect/disconnect events. It is
// closed when Run returns.
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

type portsResult struct {
	inPorts  []drivers.In
	outPorts []drivers.Out
}

// ports lists MIDI ports, giving up after a timeout (CoreMIDI can hang)
func ports() (portsResult, bool) {
	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r, true
	case <-time.After(3 * time.Second):
		// User needs to run: sudo killall coreaudiod midiserver
		debug.Log("midi", "port scan timed out")
		return portsResult{}, false
	}
}

func (dm *DeviceManager) scan(ctx context.Context) {
	p, ok := ports()
	if !ok {
		return
	}

	seenIDs := make(map[string]bool)
	for _, inPort := range p.inPorts {
		id := inPort.String()
		kind := dm.classify(id)
		if kind == ControllerUnknown {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var c Controller
		var err error
		switch kind {
		case ControllerLaunchpad:
			c, err = NewLaunchpadController(id, inPort, matchingOut(p.outPorts, id))
		case ControllerKeyboard:
			c, err = NewKeyboardController(id, inPort, dm.opts.Channel)
		}
		if err != nil {
			debug.Log("midi", "open %s: %v", id, err)
			continue
		}
		debug.Log("midi", "connected %s (%s)", id, kind)

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()
		dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: c, ID: id})
	}

	// Check for disconnects
	dm.mu.Lock()
	var gone []string
	for id, c := range dm.controllers {
		if !seenIDs[id] {
			c.Close()
			delete(dm.controllers, id)
			gone = append(gone, id)
		}
	}
	dm.mu.Unlock()

	for _, id := range gone {
		debug.Log("midi", "disconnected %s", id)
		dm.emit(ctx, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) emit(ctx context.Context, e DeviceEvent) {
	select {
	case dm.events <- e:
	case <-ctx.Done():
	}
}

// classify decides what a port becomes, if anything
func (dm *DeviceManager) classify(name string) ControllerType {
	if strings.Contains(strings.ToLower(name), "launchpad") {
		// the DAW port of a Launchpad is never a keyboard
		if dm.opts.Launchpad && isLaunchpad(name) {
			return ControllerLaunchpad
		}
		return ControllerUnknown
	}
	if isThrough(name) {
		return ControllerUnknown
	}
	if dm.opts.Filter != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(dm.opts.Filter)) {
		return ControllerUnknown
	}
	return ControllerKeyboard
}

func matchingOut(outs []drivers.Out, name string) drivers.Out {
	for _, op := range outs {
		if strings.EqualFold(op.String(), name) {
			return op
		}
	}
	return nil
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// Inputs lists the names of the MIDI input ports
func Inputs() []string {
	p, _ := ports()
	names := make([]string, 0, len(p.inPorts))
	for _, in := range p.inPorts {
		names = append(names, in.String())
	}
	return names
}

// Outputs lists the names of the MIDI output ports
func Outputs() []string {
	p, _ := ports()
	names := make([]string, 0, len(p.outPorts))
	for _, out := range p.outPorts {
		names = append(names, out.String())
	}
	return names
}

// CloseDriver releases the MIDI driver; call once at exit
func CloseDriver() {
	gomidi.CloseDriver()
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

// isThrough matches loopback ports such as ALSA's "Midi Through"
func isThrough(name string) bool {
	return strings.Contains(strings.ToLower(name), "through")
}
