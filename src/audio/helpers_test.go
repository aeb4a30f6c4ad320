package audio

import (
	"errors"
	"io"
	"math"
	"testing"
	"time"
)

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNearlyEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 0.0001 {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func expectActive(t *testing.T, e *Engine, expected ...string) {
	t.Helper()
	active := e.Active()
	if len(active) != len(expected) {
		t.Fatalf("expected active %v, but got: %v", expected, active)
	}
	for i := range expected {
		if active[i] != expected[i] {
			t.Fatalf("expected active %v, but got: %v", expected, active)
		}
	}
}

// manualDevice never pulls; tests drive the clock with advance.
type manualDevice struct {
	opened  int
	closed  int
	openErr error
}

func (d *manualDevice) Open(r io.Reader) error {
	if d.openErr != nil {
		return d.openErr
	}
	d.opened++
	return nil
}

func (d *manualDevice) Close() error {
	d.closed++
	return nil
}

// manualTimer hands every requested timer to the test.
type manualTimer struct {
	requests chan chan time.Time
	delays   chan time.Duration
}

func newManualTimer() *manualTimer {
	return &manualTimer{
		requests: make(chan chan time.Time, 16),
		delays:   make(chan time.Duration, 16),
	}
}

func (m *manualTimer) after(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.delays <- d
	m.requests <- ch
	return ch
}

// fire waits for the next timer request and fires it.
func (m *manualTimer) fire(t *testing.T) {
	t.Helper()
	select {
	case ch := <-m.requests:
		ch <- time.Now()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a timer request")
	}
}

func (m *manualTimer) wait(t *testing.T) chan time.Time {
	t.Helper()
	select {
	case ch := <-m.requests:
		return ch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a timer request")
	}
	return nil
}

func waitDone(t *testing.T, s *Sequence) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the sequence to finish")
	}
}

var errNoAudio = errors.New("no audio device")

func testParams() *params {
	p := newParams()
	p.attack = 0.01
	p.duration = 0.5
	p.forceStopRamp = 0.1
	p.sequenceDelay = 0.2
	return p
}

func newTestEngine(t *testing.T, device *manualDevice, timer *manualTimer) *Engine {
	t.Helper()
	if device == nil {
		device = &manualDevice{}
	}
	if timer == nil {
		timer = newManualTimer()
	}
	p := testParams()
	e := NewEngine(testTable(),
		WithDevice(func() Device { return device }),
		WithTimer(timer.after),
		WithParamsJSON(p.toJSON()),
	)
	t.Cleanup(func() {
		expectNoError(t, e.Close())
	})
	return e
}

func testTable() ToneTable {
	return ToneTable{
		Name: "test",
		Tones: []Tone{
			{ID: "A", Frequency: 440, Label: "A"},
			{ID: "B", Frequency: 528, Label: "B"},
			{ID: "C", Frequency: 639, Label: "C", Gain: 0.5},
		},
	}
}

// advance renders seconds of audio on the engine clock.
func advance(e *Engine, seconds float64) {
	out := make([]float64, int(seconds*sampleRate))
	e.Render(out)
}
