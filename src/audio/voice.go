package audio

import (
	vecmath "github.com/cwbudde/algo-vecmath"
)

// ----- Envelope ----- //

/*
  peak +   x
       |  / `.
       | /    `-.
       |/        `--.__
 floor +----------------`===x
       |a |    decay        |
       0                duration
*/
type envelope struct {
	attack   float64 // sec
	floor    float64 // > 0
	duration float64 // sec
}

func (e envelope) normalized() envelope {
	if e.duration <= 0 {
		e.duration = defaultDuration
	}
	if e.attack < 0 {
		e.attack = 0
	}
	if e.attack > e.duration {
		e.attack = e.duration
	}
	if e.floor < minExponentialValue {
		e.floor = minExponentialValue
	}
	return e
}

// ----- Voice ----- //

// voice is one sounding tone: oscillator -> gain -> master.
type voice struct {
	ctx       *Context
	toneID    string
	osc       *osc
	gain      *param
	startedAt float64 // sec, context time
	onEnded   func(*voice)
}

// startVoice connects a new voice to the master gain and starts it now.
// onEnded is called once, without any lock held, after the oscillator stops.
func (c *Context) startVoice(toneID string, freq float64, peakGain float64, env envelope, onEnded func(*voice)) *voice {
	env = env.normalized()
	c.Lock()
	defer c.Unlock()
	now := c.currentTime()
	v := &voice{
		ctx:       c,
		toneID:    toneID,
		osc:       newOsc(freq),
		gain:      newParam(0),
		startedAt: now,
		onEnded:   onEnded,
	}
	if peakGain < env.floor {
		peakGain = env.floor
	}
	v.gain.setValueAtTime(0, now)
	v.gain.linearRampToValueAtTime(peakGain, now+env.attack)
	v.gain.exponentialRampToValueAtTime(env.floor, now+env.duration)
	v.osc.start(now)
	v.osc.stop(now + env.duration)
	c.connect(v)
	return v
}

// forceStop ramps the voice down from wherever its envelope is and stops the
// oscillator shortly after, overriding the natural schedule.
func (v *voice) forceStop(ramp float64) {
	c := v.ctx
	c.Lock()
	defer c.Unlock()
	if v.osc.ended {
		return
	}
	now := c.currentTime()
	current := v.gain.valueAt(now)
	v.gain.cancelScheduledValues(now)
	v.gain.setValueAtTime(current, now)
	v.gain.exponentialRampToValueAtTime(minExponentialValue, now+ramp)
	v.osc.stop(now + ramp + stopMargin)
}

func (v *voice) render(oscBuf []float64, gainBuf []float64, t0 float64) bool {
	ended := v.osc.render(oscBuf, t0)
	v.gain.fill(gainBuf, t0)
	vecmath.MulBlockInPlace(oscBuf, gainBuf)
	v.gain.prune(t0 + float64(len(oscBuf))*secPerSample)
	return ended
}
