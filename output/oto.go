//go:build !headless

package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"noteflow/debug"
)

// oto allows a single context per process
var (
	ctxOnce sync.Once
	ctx     *oto.Context
	ctxErr  error
)

func context(sampleRate int, buffer time.Duration) (*oto.Context, error) {
	ctxOnce.Do(func() {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   buffer,
		})
		if err != nil {
			ctxErr = fmt.Errorf("output: open audio device: %w", err)
			return
		}
		<-ready
		ctx = c
	})
	return ctx, ctxErr
}

// Device plays PCM through the system sound card
type Device struct {
	sampleRate int
	buffer     time.Duration

	mu     sync.Mutex
	player *oto.Player
}

// New returns a device sink. Nothing is opened until Start.
func New(sampleRate int, buffer time.Duration) *Device {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Device{sampleRate: sampleRate, buffer: buffer}
}

// Start opens the audio device and begins pulling from r
func (d *Device) Start(r io.Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil {
		return nil
	}
	c, err := context(d.sampleRate, d.buffer)
	if err != nil {
		return err
	}
	d.player = c.NewPlayer(r)
	// oto reads half a second ahead by default; the engine clock runs that
	// far ahead of the speaker unless the player buffer matches the device
	d.player.SetBufferSize(BufferBytes(d.sampleRate, d.buffer))
	d.player.Play()
	debug.Log("audio", "oto player started: rate=%d buffer=%v", d.sampleRate, d.buffer)
	return nil
}

// Suspend pauses the device while idle
func (d *Device) Suspend() error {
	if ctx == nil {
		return nil
	}
	return ctx.Suspend()
}

// Resume restarts a suspended device
func (d *Device) Resume() error {
	if ctx == nil {
		return nil
	}
	return ctx.Resume()
}

// Close stops playback. The shared context stays open for reuse.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	debug.Log("audio", "oto player closed")
	return err
}

// Headless reports whether this build has no sound card support
const Headless = false
