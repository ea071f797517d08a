package synth

import (
	"math"
	"sync"
)

// pianoHarmonics are the sine amplitudes of the voice timbre; index 0 is DC
var pianoHarmonics = []float64{0, 1, 0.5, 0.3, 0.2, 0.1, 0.05, 0.02}

// clickHarmonics is a plain sine
var clickHarmonics = []float64{0, 1}

const tableSize = 2048

// wavetable holds one cycle of a periodic wave normalized to a peak of 1
type wavetable []float64

var (
	tablesMu sync.Mutex
	tables   = map[tableKey]wavetable{}
)

type tableKey struct {
	timbre    *float64 // identity of the harmonic set
	harmonics int
}

// tableFor returns the wave for coeffs band-limited to the harmonics that
// fit under nyquist at freq. Tables are built once and shared.
func tableFor(coeffs []float64, freq, nyquist float64) wavetable {
	n := len(coeffs) - 1
	for n > 1 && float64(n)*freq >= nyquist {
		n--
	}
	key := tableKey{timbre: &coeffs[0], harmonics: n}

	tablesMu.Lock()
	defer tablesMu.Unlock()
	if t, ok := tables[key]; ok {
		return t
	}
	t := buildTable(coeffs[:n+1])
	tables[key] = t
	return t
}

func buildTable(coeffs []float64) wavetable {
	t := make(wavetable, tableSize)
	peak := 0.0
	for i := range t {
		phase := 2 * math.Pi * float64(i) / tableSize
		v := 0.0
		for h := 1; h < len(coeffs); h++ {
			v += coeffs[h] * math.Sin(float64(h)*phase)
		}
		t[i] = v
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 0 {
		for i := range t {
			t[i] /= peak
		}
	}
	return t
}

// oscillator is a phase accumulator reading a wavetable
type oscillator struct {
	table wavetable
	phase float64 // [0,1)
	step  float64 // cycles per sample
}

func newOscillator(coeffs []float64, freq float64, sampleRate int) *oscillator {
	sr := float64(sampleRate)
	return &oscillator{
		table: tableFor(coeffs, freq, sr/2),
		step:  freq / sr,
	}
}

func (o *oscillator) next() float64 {
	pos := o.phase * tableSize
	i := int(pos)
	frac := pos - float64(i)
	a := o.table[i%tableSize]
	b := o.table[(i+1)%tableSize]

	o.phase += o.step
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return a + (b-a)*frac
}
