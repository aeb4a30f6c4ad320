package audio

import (
	"fmt"
	"testing"
)

func TestActiveSetScenario(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Trigger("A", 440)
	expectActive(t, e, "A")
	e.Trigger("B", 528)
	expectActive(t, e, "A", "B")
	first := e.registry.lookup("A")
	e.Trigger("A", 440)
	expectActive(t, e, "A", "B")
	if e.registry.lookup("A") == first {
		t.Error("expected the voice for A to be replaced")
	}
	e.StopAll()
	expectActive(t, e)
}

func TestRetriggerNeverLeavesTwoVoicesRegistered(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	for i := 0; i < 10; i++ {
		e.Trigger("A", 440)
		expectActive(t, e, "A")
	}
	c := e.lifecycle.current()
	// replaced voices keep ringing until their ramp-down ends
	expectEqual(t, c.voiceCount(), 10)
	advance(e, 0.2)
	expectEqual(t, c.voiceCount(), 1)
	expectActive(t, e, "A")
}

func TestStaleCallbackDoesNotEvictReplacement(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Trigger("A", 440)
	advance(e, 0.05)
	e.Trigger("A", 440)
	current := e.registry.lookup("A")
	// the replaced voice ends after forceStopRamp + stopMargin
	advance(e, 0.2)
	expectActive(t, e, "A")
	expectEqual(t, e.registry.lookup("A"), current)
}

func TestVoiceEvictedOnNaturalEnd(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Trigger("A", 440)
	e.Changes.Take(ChangeActive)
	advance(e, 0.6)
	expectActive(t, e)
	expectEqual(t, e.Changes.Take(ChangeActive), true)
	expectEqual(t, e.lifecycle.current().voiceCount(), 0)
}

func TestStopAllIsSafeWhenEmpty(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.StopAll()
	expectActive(t, e)
	e.Trigger("A", 440)
	e.Trigger("B", 528)
	e.Trigger("C", 639)
	e.StopAll()
	expectActive(t, e)
	e.StopAll()
	expectActive(t, e)
	advance(e, 0.2)
	expectEqual(t, e.lifecycle.current().voiceCount(), 0)
}

func TestStop(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Stop("A")
	e.Trigger("A", 440)
	e.Trigger("B", 528)
	e.Stop("A")
	expectActive(t, e, "B")
	e.Stop("A")
	expectActive(t, e, "B")
}

func TestMaxVoicesEvictsOldest(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.registry.setMaxVoices(2)
	e.Trigger("A", 440)
	advance(e, 0.01)
	e.Trigger("B", 528)
	advance(e, 0.01)
	e.Trigger("C", 639)
	expectActive(t, e, "B", "C")
	// re-triggering a live tone does not evict anything
	e.Trigger("B", 528)
	expectActive(t, e, "B", "C")
}

func TestTriggerUnknownIDStillPlays(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Trigger("not-in-table", 1000)
	expectActive(t, e, "not-in-table")
}

func TestManyDistinctTones(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	for i := 0; i < defaultMaxVoices; i++ {
		e.Trigger(fmt.Sprintf("t%02d", i), 200+float64(i)*10)
	}
	expectEqual(t, len(e.Active()), defaultMaxVoices)
	e.StopAll()
	expectActive(t, e)
}
