package audio

import "math"

// ----- Automation Kind ----- //

const (
	automationSet = iota
	automationLinear
	automationExponential
)

// exponential ramps cannot reach zero
const minExponentialValue = 0.0001

// ----- Param ----- //

type automation struct {
	kind  int
	value float64
	time  float64 // sec
}

// param is a value driven by a timeline of scheduled automations.
// A ramp interpolates from the previous automation's value and time to its own.
type param struct {
	defaultValue float64
	events       []automation // sorted by time
}

func newParam(value float64) *param {
	return &param{
		defaultValue: value,
		events:       make([]automation, 0, 8),
	}
}

// setValue drops every automation and holds value from now on.
func (p *param) setValue(value float64) {
	p.events = p.events[:0]
	p.defaultValue = value
}

func (p *param) setValueAtTime(value float64, t float64) {
	p.insert(automation{kind: automationSet, value: value, time: t})
}

func (p *param) linearRampToValueAtTime(value float64, t float64) {
	p.insert(automation{kind: automationLinear, value: value, time: t})
}

func (p *param) exponentialRampToValueAtTime(value float64, t float64) {
	if value < minExponentialValue {
		value = minExponentialValue
	}
	p.insert(automation{kind: automationExponential, value: value, time: t})
}

// cancelScheduledValues removes every automation at or after t.
func (p *param) cancelScheduledValues(t float64) {
	for i, e := range p.events {
		if e.time >= t {
			p.events = p.events[:i]
			return
		}
	}
}

func (p *param) insert(a automation) {
	i := len(p.events)
	for i > 0 && p.events[i-1].time > a.time {
		i--
	}
	p.events = append(p.events, automation{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = a
}

func (p *param) valueAt(t float64) float64 {
	prev := -1
	for i, e := range p.events {
		if e.time > t {
			break
		}
		prev = i
	}
	startValue := p.defaultValue
	startTime := 0.0
	if prev >= 0 {
		startValue = p.events[prev].value
		startTime = p.events[prev].time
	}
	if prev+1 >= len(p.events) {
		return startValue
	}
	next := p.events[prev+1]
	switch next.kind {
	case automationLinear:
		return linearAt(startValue, next.value, startTime, next.time, t)
	case automationExponential:
		return exponentialAt(startValue, next.value, startTime, next.time, t)
	}
	return startValue
}

func (p *param) fill(out []float64, t0 float64) {
	for i := range out {
		out[i] = p.valueAt(t0 + float64(i)*secPerSample)
	}
}

// prune forgets automations that can no longer affect values at or after t.
func (p *param) prune(t float64) {
	last := -1
	for i, e := range p.events {
		if e.time > t {
			break
		}
		last = i
	}
	if last <= 0 {
		return
	}
	if last == len(p.events)-1 {
		p.defaultValue = p.events[last].value
		p.events = p.events[:0]
		return
	}
	n := copy(p.events, p.events[last:])
	p.events = p.events[:n]
}

func linearAt(v0, v1, t0, t1, t float64) float64 {
	if t1 <= t0 {
		return v1
	}
	x := (t - t0) / (t1 - t0)
	return v0 + (v1-v0)*x
}

func exponentialAt(v0, v1, t0, t1, t float64) float64 {
	if t1 <= t0 {
		return v1
	}
	if v0 <= 0 || v1 <= 0 {
		return v0
	}
	x := (t - t0) / (t1 - t0)
	return v0 * math.Pow(v1/v0, x)
}
