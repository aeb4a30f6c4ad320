package audio

import (
	"sync"
	"time"
)

// ----- Sequence ----- //

// Sequence is a handle to one walk over an ordered list of tones.
type Sequence struct {
	mu      sync.Mutex
	running bool
	cursor  int
	cancel  chan struct{}
	done    chan struct{}
	once    sync.Once
	changes *Changes
}

func newSequence(changes *Changes) *Sequence {
	return &Sequence{
		cancel:  make(chan struct{}),
		done:    make(chan struct{}),
		changes: changes,
	}
}

// Cancel stops the walk before its next onset. Voices already triggered keep
// ringing. Safe to call more than once.
func (s *Sequence) Cancel() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.once.Do(func() {
		close(s.cancel)
	})
}

// Done is closed when the walk has finished, naturally or by Cancel.
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// IsRunning ...
func (s *Sequence) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cursor returns the index of the next tone to be triggered.
func (s *Sequence) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Sequence) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.once.Do(func() {
		close(s.cancel)
	})
	close(s.done)
	s.changes.Add(ChangeSequencing)
}

// ----- Sequencer ----- //

type sequencer struct {
	mu      sync.Mutex
	current *Sequence
	after   func(time.Duration) <-chan time.Time
	changes *Changes
}

func newSequencer(after func(time.Duration) <-chan time.Time, changes *Changes) *sequencer {
	return &sequencer{
		after:   after,
		changes: changes,
	}
}

// play starts a walk over order, calling trigger for each tone with delay
// between onsets. If a walk is already running it is cancelled instead and
// returned, so at most one walk exists at a time.
func (sq *sequencer) play(order []Tone, delay time.Duration, loop bool, trigger func(Tone)) *Sequence {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.current != nil && sq.current.IsRunning() {
		sq.current.Cancel()
		return sq.current
	}
	s := newSequence(sq.changes)
	if len(order) == 0 {
		s.once.Do(func() {
			close(s.cancel)
		})
		close(s.done)
		return s
	}
	order = append([]Tone(nil), order...)
	s.running = true
	sq.current = s
	sq.changes.Add(ChangeSequencing)
	go sq.walk(s, order, delay, loop, trigger)
	return s
}

func (sq *sequencer) walk(s *Sequence, order []Tone, delay time.Duration, loop bool, trigger func(Tone)) {
	defer s.finish()
	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		tone := order[s.cursor]
		s.cursor++
		last := s.cursor >= len(order)
		if last && loop {
			s.cursor = 0
		}
		// held so that no onset happens after Cancel returns
		trigger(tone)
		s.mu.Unlock()

		if last && !loop {
			return
		}
		select {
		case <-sq.after(delay):
		case <-s.cancel:
			return
		}
	}
}

func (sq *sequencer) cancel() {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.current != nil {
		sq.current.Cancel()
	}
}

func (sq *sequencer) isRunning() bool {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.current != nil && sq.current.IsRunning()
}
