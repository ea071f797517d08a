package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"noteflow/debug"
	"noteflow/midi"
	"noteflow/note"
)

// LED refresh rate
const ledFPS = 30

// attached is a connected MIDI controller and its goroutines
type attached struct {
	c    midi.Controller
	diff *midi.LEDDiff

	mu    sync.Mutex
	dirty bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func (at *attached) markDirty() {
	at.mu.Lock()
	at.dirty = true
	at.mu.Unlock()
}

func (at *attached) takeDirty() bool {
	at.mu.Lock()
	defer at.mu.Unlock()
	d := at.dirty
	at.dirty = false
	return d
}

// Attach starts routing a controller's input into the trainer. Launchpads
// also get LED feedback.
func (a *App) Attach(c midi.Controller) {
	at := &attached{
		c:     c,
		diff:  midi.NewLEDDiff(),
		dirty: true,
		stop:  make(chan struct{}),
	}

	a.ctrlMu.Lock()
	if old, ok := a.controllers[c.ID()]; ok {
		a.ctrlMu.Unlock()
		a.detach(old)
		a.ctrlMu.Lock()
	}
	a.controllers[c.ID()] = at
	a.ctrlMu.Unlock()
	debug.Log("app", "attach %s (%s)", c.ID(), c.Type())

	at.wg.Add(2)
	go a.noteLoop(at)
	go a.padLoop(at)
	if c.Type() == midi.ControllerLaunchpad {
		at.wg.Add(1)
		go a.ledLoop(at)
	}
	a.notify()
}

// Detach stops routing a controller by ID. The controller itself is
// closed by whoever opened it.
func (a *App) Detach(id string) {
	a.ctrlMu.Lock()
	at, ok := a.controllers[id]
	delete(a.controllers, id)
	a.ctrlMu.Unlock()
	if ok {
		a.detach(at)
		debug.Log("app", "detach %s", id)
		a.notify()
	}
}

func (a *App) detach(at *attached) {
	close(at.stop)
	at.wg.Wait()
}

func (a *App) detachAll() {
	a.ctrlMu.Lock()
	all := a.controllers
	a.controllers = make(map[string]*attached)
	a.ctrlMu.Unlock()
	for _, at := range all {
		a.detach(at)
	}
}

// Controllers lists the IDs of attached controllers
func (a *App) Controllers() []string {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	ids := make([]string, 0, len(a.controllers))
	for id := range a.controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Watch attaches and detaches controllers as a device manager reports
// them, until its event channel closes
func (a *App) Watch(events <-chan midi.DeviceEvent) {
	for e := range events {
		switch e.Type {
		case midi.DeviceConnected:
			a.Attach(e.Controller)
		case midi.DeviceDisconnected:
			a.Detach(e.ID)
		}
	}
}

// RunMIDI starts a device manager with the configured options and keeps
// controllers attached until ctx is done
func (a *App) RunMIDI(ctx context.Context) {
	if !a.cfg.MIDI.Enabled {
		return
	}
	dm := midi.NewDeviceManager(midi.Options{
		Filter:    a.cfg.MIDI.PortFilter,
		Launchpad: a.cfg.MIDI.Launchpad,
		Channel:   a.cfg.MIDI.Channel,
	})
	go dm.Run(ctx)
	a.Watch(dm.Events())
}

func (a *App) noteLoop(at *attached) {
	defer at.wg.Done()
	events := at.c.NoteEvents()
	for {
		select {
		case <-at.stop:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.On {
				a.NoteOnID(e.Note, e.Velocity)
			} else {
				a.NoteOffID(e.Note)
			}
		}
	}
}

func (a *App) padLoop(at *attached) {
	defer at.wg.Done()
	pads := at.c.PadEvents()
	for {
		select {
		case <-at.stop:
			return
		case p, ok := <-pads:
			if !ok {
				return
			}
			a.pad(p)
		}
	}
}

func (a *App) pad(p midi.PadEvent) {
	id, ok := a.grid.Note(p.Row, p.Col)
	if !ok {
		// top row: transport
		if p.Row == 8 && p.On {
			a.padButton(p.Col)
		}
		return
	}
	if p.On {
		a.NoteOnID(id, float64(p.Velocity)/127)
	} else {
		a.NoteOffID(id)
	}
}

// top-row buttons, left to right
const (
	buttonPlay = iota
	buttonPractice
	buttonPrevSong
	buttonNextSong
	buttonMetronome
)

// PadButtons names the top-row buttons, left to right
var PadButtons = []string{"play", "practice", "prev song", "next song", "metronome"}

// PadColors returns the Launchpad feedback colors
func (a *App) PadColors() midi.PadColors { return a.colors }

func (a *App) padButton(col int) {
	var err error
	switch col {
	case buttonPlay:
		err = a.TogglePlay()
	case buttonPractice:
		err = a.TogglePractice()
	case buttonPrevSong:
		err = a.NextSong(-1)
	case buttonNextSong:
		err = a.NextSong(1)
	case buttonMetronome:
		a.ToggleMetronome()
	}
	if err != nil {
		debug.Log("app", "pad button %d: %v", col, err)
	}
}

// ledLoop runs at fixed FPS and flushes LED changes
func (a *App) ledLoop(at *attached) {
	defer at.wg.Done()
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-at.stop:
			return
		case <-ticker.C:
			if at.takeDirty() {
				a.flushLEDs(at)
			}
		}
	}
}

// flushLEDs sends only changed LEDs to the controller
func (a *App) flushLEDs(at *attached) {
	at.c.SetLEDBatch(at.diff.Diff(a.Frame()))
}

// Frame renders the pad grid for the current state
func (a *App) Frame() []midi.LEDUpdate {
	var active []note.ID
	var expected note.ID
	a.runner.Do(func() {
		snap := a.seq.Snapshot()
		active, expected = snap.Active, snap.Expected
	})
	return a.grid.Frame(active, expected, a.colors)
}
