package synth

import "math"

type rampKind uint8

const (
	setValue rampKind = iota
	linearRamp
	expRamp
)

// minExpValue keeps exponential ramps away from zero, where they are undefined
const minExpValue = 1e-5

type automationEvent struct {
	kind  rampKind
	time  float64 // seconds on the audio clock
	value float64
}

// param is a gain value automated over audio time. Events are kept sorted;
// a ramp event interpolates from the previous event to its own time.
type param struct {
	initial float64
	events  []automationEvent
}

func newParam(v float64) *param {
	return &param{initial: v}
}

func (p *param) lastTime() float64 {
	if len(p.events) == 0 {
		return math.Inf(-1)
	}
	return p.events[len(p.events)-1].time
}

// add appends an event, nudging its time forward so events never go back
func (p *param) add(kind rampKind, t, v float64) {
	if last := p.lastTime(); t < last {
		t = last
	}
	p.events = append(p.events, automationEvent{kind: kind, time: t, value: v})
}

func (p *param) setValueAt(v, t float64) { p.add(setValue, t, v) }

func (p *param) linearRampTo(v, t float64) { p.add(linearRamp, t, v) }

func (p *param) exponentialRampTo(v, t float64) { p.add(expRamp, t, math.Max(v, minExpValue)) }

// valueAt evaluates the automation curve at t
func (p *param) valueAt(t float64) float64 {
	v := p.initial
	prevT := math.Inf(-1)
	for _, ev := range p.events {
		if ev.time <= t {
			v = ev.value
			prevT = ev.time
			continue
		}
		switch ev.kind {
		case linearRamp:
			if math.IsInf(prevT, -1) {
				return v
			}
			frac := (t - prevT) / (ev.time - prevT)
			return v + (ev.value-v)*frac
		case expRamp:
			if math.IsInf(prevT, -1) || v <= 0 {
				return v
			}
			frac := (t - prevT) / (ev.time - prevT)
			return v * math.Pow(ev.value/v, frac)
		}
		return v
	}
	return v
}

// cancelAndHold freezes the curve at its value at t and drops everything
// scheduled after it
func (p *param) cancelAndHold(t float64) {
	v := p.valueAt(t)
	kept := p.events[:0]
	for _, ev := range p.events {
		if ev.time < t {
			kept = append(kept, ev)
		}
	}
	p.events = kept
	p.add(setValue, t, v)
}

// prune drops events that can no longer affect values at or after t, so
// long-lived params (master gain) do not grow without bound
func (p *param) prune(t float64) {
	i := 0
	for i < len(p.events)-1 && p.events[i+1].time <= t {
		i++
	}
	if i == 0 {
		return
	}
	p.events = p.events[i:]
}
