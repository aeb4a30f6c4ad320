package audio

import (
	"math"
	"testing"
)

func TestVoiceEnvelopeShape(t *testing.T) {
	c := newContext(&manualDevice{}, 1)
	env := envelope{attack: 0.05, floor: 0.001, duration: 1}
	v := c.startVoice("A", 440, 0.5, env, nil)
	prev := v.gain.valueAt(0)
	expectNearlyEqual(t, prev, 0)
	for i := 1; i <= 1000; i++ {
		tm := float64(i) / 1000
		value := v.gain.valueAt(tm)
		if tm <= env.attack && value < prev {
			t.Fatalf("gain decreased during attack at %v: %v -> %v", tm, prev, value)
		}
		if tm > env.attack && value > prev {
			t.Fatalf("gain increased during decay at %v: %v -> %v", tm, prev, value)
		}
		prev = value
	}
	expectNearlyEqual(t, v.gain.valueAt(env.attack), 0.5)
	expectNearlyEqual(t, v.gain.valueAt(env.duration), 0.001)
}

func TestVoiceEndsNaturally(t *testing.T) {
	c := newContext(&manualDevice{}, 1)
	ended := 0
	c.startVoice("A", 440, 0.5, envelope{attack: 0.01, floor: 0.001, duration: 0.2}, func(v *voice) {
		ended++
	})
	c.Render(make([]float64, sampleRate/10))
	expectEqual(t, ended, 0)
	expectEqual(t, c.voiceCount(), 1)
	c.Render(make([]float64, sampleRate/5))
	expectEqual(t, ended, 1)
	expectEqual(t, c.voiceCount(), 0)
	c.Render(make([]float64, sampleRate/5))
	expectEqual(t, ended, 1)
}

func TestVoiceForceStopRampsFromCurrentValue(t *testing.T) {
	c := newContext(&manualDevice{}, 1)
	ended := 0
	v := c.startVoice("A", 440, 0.5, envelope{attack: 0.05, floor: 0.001, duration: 4}, func(v *voice) {
		ended++
	})
	c.Render(make([]float64, sampleRate/2))
	now := c.CurrentTime()
	before := v.gain.valueAt(now)
	v.forceStop(0.1)
	expectNearlyEqual(t, v.gain.valueAt(now), before)
	expectNearlyEqual(t, v.gain.valueAt(now+0.1), minExponentialValue)
	if v.gain.valueAt(now+0.05) >= before {
		t.Errorf("expected ramp down, but got: %v", v.gain.valueAt(now+0.05))
	}
	expectNearlyEqual(t, v.osc.stopAt, now+0.1+stopMargin)
	c.Render(make([]float64, sampleRate/5))
	expectEqual(t, ended, 1)
}

func TestVoiceOutputFollowsGain(t *testing.T) {
	c := newContext(&manualDevice{}, 0.5)
	c.startVoice("A", 440, 0.4, envelope{attack: 0.01, floor: 0.001, duration: 1}, nil)
	out := make([]float64, sampleRate/2)
	c.Render(out)
	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 0.4*0.5+1e-9 {
		t.Errorf("expected peak <= 0.2, but got: %v", peak)
	}
	if peak < 0.1 {
		t.Errorf("expected an audible voice, but got peak: %v", peak)
	}
}

func TestEnvelopeNormalized(t *testing.T) {
	e := envelope{attack: 5, floor: 0, duration: 1}.normalized()
	expectNearlyEqual(t, e.attack, 1)
	expectNearlyEqual(t, e.floor, minExponentialValue)
	e = envelope{attack: -1, floor: 0.01, duration: 0}.normalized()
	expectNearlyEqual(t, e.attack, 0)
	expectNearlyEqual(t, e.duration, defaultDuration)
}
