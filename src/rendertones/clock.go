package main

import (
	"sync"
	"time"

	"github.com/jinjor/singing-bowls/src/audio"
)

type renderTimer struct {
	at float64 // sec, engine time
	ch chan time.Time
}

// renderClock is a sequencer timer source driven by the rendered clock.
type renderClock struct {
	mu         sync.Mutex
	now        func() float64
	timers     []renderTimer
	registered chan struct{}
}

func newRenderClock() *renderClock {
	return &renderClock{
		registered: make(chan struct{}, 1),
	}
}

func (c *renderClock) after(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.timers = append(c.timers, renderTimer{at: c.now() + d.Seconds(), ch: ch})
	c.mu.Unlock()
	c.registered <- struct{}{}
	return ch
}

// fire fires every timer that is due and returns how many fired.
func (c *renderClock) fire() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	fired := 0
	pending := c.timers[:0]
	for _, t := range c.timers {
		if t.at <= now {
			t.ch <- time.Time{}
			fired++
		} else {
			pending = append(pending, t)
		}
	}
	c.timers = pending
	return fired
}

// wait blocks until the sequence asks for its next timer or finishes, so
// that the next onset is scheduled before rendering goes on.
func (c *renderClock) wait(seq *audio.Sequence) {
	select {
	case <-c.registered:
	case <-seq.Done():
	}
}
