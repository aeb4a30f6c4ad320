package audio

import (
	"math"
)

// ----- OSC ----- //

// osc is a sine oscillator that sounds between startAt and stopAt.
type osc struct {
	freq    float64
	phase   float64
	startAt float64 // sec
	stopAt  float64 // sec
	started bool
	ended   bool
}

func newOsc(freq float64) *osc {
	return &osc{
		freq:   freq,
		stopAt: math.Inf(1),
	}
}

func (o *osc) start(t float64) {
	if o.started {
		return
	}
	o.started = true
	o.startAt = t
}

// stop can only bring the end forward.
func (o *osc) stop(t float64) {
	if t < o.startAt {
		t = o.startAt
	}
	if t < o.stopAt {
		o.stopAt = t
	}
}

// render writes one block starting at t0 and reports whether the oscillator
// has reached its stop time by the end of the block.
func (o *osc) render(out []float64, t0 float64) bool {
	step := 2.0 * math.Pi * o.freq / float64(sampleRate)
	for i := range out {
		t := t0 + float64(i)*secPerSample
		if !o.started || o.ended || t < o.startAt || t >= o.stopAt {
			out[i] = 0
			continue
		}
		out[i] = math.Sin(o.phase)
		o.phase += step
		if o.phase >= 2.0*math.Pi {
			o.phase -= 2.0 * math.Pi
		}
	}
	if o.started && t0+float64(len(out))*secPerSample >= o.stopAt {
		o.ended = true
	}
	return o.ended
}
