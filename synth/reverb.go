package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/dsp/fourier"
)

// reverbBlock is the partition size of the convolver and therefore the
// latency of the wet path in samples
const reverbBlock = 512

// NoiseImpulse builds a decaying-noise room response of the given length,
// (rand*2-1)*(1-i/n)^2, scaled to unit energy.
func NoiseImpulse(sampleRate int, seconds float64, seed uint64) []float64 {
	n := int(float64(sampleRate) * seconds)
	if n < 1 {
		n = 1
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ir := make([]float64, n)
	energy := 0.0
	for i := range ir {
		decay := 1 - float64(i)/float64(n)
		ir[i] = (rng.Float64()*2 - 1) * decay * decay
		energy += ir[i] * ir[i]
	}
	if energy > 0 {
		scale := 1 / math.Sqrt(energy)
		for i := range ir {
			ir[i] *= scale
		}
	}
	return ir
}

// convolver applies a long impulse response with uniformly partitioned
// overlap-save FFT convolution. Output lags input by one block.
type convolver struct {
	block int
	fft   *fourier.FFT
	parts [][]complex128 // impulse spectrum per partition

	fdl  [][]complex128 // input spectra, most recent at head
	head int

	window []float64 // previous block followed by current block
	pos    int
	out    []float64 // output for the block being emitted

	acc  []complex128
	time []float64
}

func newConvolver(ir []float64, block int) *convolver {
	n := 2 * block
	c := &convolver{
		block:  block,
		fft:    fourier.NewFFT(n),
		window: make([]float64, n),
		out:    make([]float64, block),
		acc:    make([]complex128, n/2+1),
		time:   make([]float64, n),
	}

	segment := make([]float64, n)
	for start := 0; start < len(ir); start += block {
		clear(segment)
		copy(segment, ir[start:min(start+block, len(ir))])
		c.parts = append(c.parts, c.fft.Coefficients(nil, segment))
	}
	if len(c.parts) == 0 {
		c.parts = append(c.parts, make([]complex128, n/2+1))
	}

	c.fdl = make([][]complex128, len(c.parts))
	for i := range c.fdl {
		c.fdl[i] = make([]complex128, n/2+1)
	}
	return c
}

// next feeds one input sample and returns one output sample
func (c *convolver) next(x float64) float64 {
	c.window[c.block+c.pos] = x
	y := c.out[c.pos]
	c.pos++
	if c.pos == c.block {
		c.process()
		c.pos = 0
	}
	return y
}

func (c *convolver) process() {
	n := 2 * c.block
	c.fft.Coefficients(c.fdl[c.head], c.window)

	clear(c.acc)
	p := len(c.parts)
	for k := 0; k < p; k++ {
		x := c.fdl[(c.head-k+p)%p]
		h := c.parts[k]
		for i := range c.acc {
			c.acc[i] += x[i] * h[i]
		}
	}

	c.fft.Sequence(c.time, c.acc)
	// gonum transforms are unnormalized
	scale := 1 / float64(n)
	for i := 0; i < c.block; i++ {
		c.out[i] = c.time[c.block+i] * scale
	}

	copy(c.window[:c.block], c.window[c.block:])
	c.head = (c.head + 1) % p
}

func (c *convolver) reset() {
	clear(c.window)
	clear(c.out)
	for _, s := range c.fdl {
		clear(s)
	}
	c.pos = 0
	c.head = 0
}
