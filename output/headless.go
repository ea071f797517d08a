//go:build headless

package output

import (
	"io"
	"sync"
	"time"

	"noteflow/debug"
)

// Device drains PCM at real-time pace without a sound card, so builds
// without audio libraries keep the same timing behavior
type Device struct {
	sampleRate int
	buffer     time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func New(sampleRate int, buffer time.Duration) *Device {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Device{sampleRate: sampleRate, buffer: buffer}
}

func (d *Device) Start(r io.Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.drain(r, d.stop, d.done)
	debug.Log("audio", "headless sink started: rate=%d", d.sampleRate)
	return nil
}

func (d *Device) drain(r io.Reader, stop, done chan struct{}) {
	defer close(done)

	buf := make([]byte, BufferBytes(d.sampleRate, d.buffer))
	ticker := time.NewTicker(d.buffer)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.Read(buf); err != nil {
				return
			}
		}
	}
}

func (d *Device) Suspend() error { return nil }

func (d *Device) Resume() error { return nil }

func (d *Device) Close() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

const Headless = true
