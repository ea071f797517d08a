package synth

import (
	"encoding/binary"
	"io"
	"math"

	"noteflow/debug"
)

// Read renders float32 little-endian mono PCM for the audio sink. After
// Dispose it reports io.EOF.
func (e *Engine) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return 0, io.EOF
	}
	if cap(e.scratch) < n {
		e.scratch = make([]float32, n)
	}
	buf := e.scratch[:n]
	e.render(buf)
	e.mu.Unlock()

	for i, s := range buf {
		s = max(-1, min(1, s))
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	debug.LogEvery(2000, "synth", "read %d frames", n)
	return n * 4, nil
}

// Render fills buf with the next len(buf) samples and advances the audio
// clock. It is the same path Read uses, without the byte encoding.
func (e *Engine) Render(buf []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.render(buf)
}

// render must be called with mu held
func (e *Engine) render(buf []float32) {
	sr := float64(e.opts.SampleRate)
	dry, wet := 1.0, 0.0
	if e.reverb != nil {
		dry, wet = e.opts.Dry, e.opts.Wet
	}

	for i := range buf {
		t := float64(e.frame) / sr

		sum := 0.0
		for _, v := range e.voices {
			sum += v.sample(t)
		}
		for _, v := range e.fading {
			sum += v.sample(t)
		}

		clicks := 0.0
		for _, c := range e.clicks {
			clicks += c.sample(t)
		}

		mix := sum * dry
		if e.reverb != nil {
			mix += e.reverb.next(sum * wet)
		}
		mix += clicks * e.opts.MetronomeGain

		buf[i] = float32(mix * e.master.valueAt(t))
		e.frame++
	}

	t := e.now()
	e.fading = pruneFinished(e.fading, t)
	e.clicks = pruneFinished(e.clicks, t)
	e.master.prune(t)
}

// sample returns the voice output at t, silent once the oscillator stopped
func (v *voice) sample(t float64) float64 {
	if t >= v.stop || t < v.start {
		return 0
	}
	return v.osc.next() * v.gain.valueAt(t)
}

func pruneFinished(vs []*voice, t float64) []*voice {
	kept := vs[:0]
	for _, v := range vs {
		if t < v.stop {
			kept = append(kept, v)
		}
	}
	clear(vs[len(kept):])
	return kept
}
