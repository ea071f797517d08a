//go:build headless

package output

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingReader struct{ reads atomic.Int32 }

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads.Add(1)
	return len(p), nil
}

func TestHeadlessDrainsAndCloses(t *testing.T) {
	d := New(8000, 5*time.Millisecond)
	r := &countingReader{}
	if err := d.Start(r); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(r); err != nil {
		t.Fatal("second Start should be a no-op")
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.reads.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.reads.Load() < 3 {
		t.Fatalf("only %d reads", r.reads.Load())
	}

	d.Close()
	d.Close()
	n := r.reads.Load()
	time.Sleep(30 * time.Millisecond)
	if r.reads.Load() != n {
		t.Error("reads continued after Close")
	}
}
