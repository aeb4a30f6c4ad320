package audio

import (
	"math"
	"testing"
)

func TestClampVolume(t *testing.T) {
	expectNearlyEqual(t, clampVolume(-1), 0)
	expectNearlyEqual(t, clampVolume(5), 1)
	expectNearlyEqual(t, clampVolume(0.25), 0.25)
	expectNearlyEqual(t, clampVolume(math.NaN()), 0)
}

func TestSetMasterVolumeClamps(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Trigger("A", 440)
	c := e.lifecycle.current()
	e.SetMasterVolume(-1)
	expectNearlyEqual(t, e.MasterVolume(), 0)
	expectNearlyEqual(t, c.masterGain(), 0)
	e.SetMasterVolume(5)
	expectNearlyEqual(t, e.MasterVolume(), 1)
	expectNearlyEqual(t, c.masterGain(), 1)
}

func TestMasterVolumeBeforeContextExists(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.SetMasterVolume(0.3)
	e.Trigger("A", 440)
	expectNearlyEqual(t, e.lifecycle.current().masterGain(), 0.3)
}

func TestMasterVolumeAffectsSoundingVoices(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Trigger("A", 440)
	advance(e, 0.05)
	e.SetMasterVolume(0)
	out := make([]float64, samplesPerCycle)
	e.Render(out)
	for _, v := range out {
		expectNearlyEqual(t, v, 0)
	}
	expectActive(t, e, "A")
}
