package audio

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096
const secPerSample = 1.0 / sampleRate

const (
	defaultDuration  = 4.0 // sec
	defaultMaxVoices = 16
	stopMargin       = 0.05 // sec, after a forced ramp-down
)

// SampleRate is the rate of everything the engine renders.
const SampleRate = sampleRate

// ErrUnknownCommand is returned by Update for unsupported commands.
var ErrUnknownCommand = errors.New("unknown command")

// ----- Changes ----- //

// Keys set in Engine.Changes.
const (
	ChangeActive     = "active"
	ChangeSequencing = "sequencing"
	ChangeVolume     = "volume"
)

// Changes is a set of dirty flags polled by hosts.
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

func newChanges() *Changes {
	return &Changes{dict: make(map[string]struct{})}
}

// Add ...
func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

// Has ...
func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

// Delete ...
func (c *Changes) Delete(key string) {
	c.Lock()
	delete(c.dict, key)
	c.Unlock()
}

// Take reports whether key was set and clears it.
func (c *Changes) Take(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	delete(c.dict, key)
	c.Unlock()
	return ok
}

// ----- Engine ----- //

// Engine plays overlapping, independently decaying tones from a tone table.
// One Engine owns one audio context, created on first use and released by Close.
type Engine struct {
	CommandCh chan []string
	Changes   *Changes
	table     ToneTable
	lifecycle *lifecycle
	registry  *registry
	sequencer *sequencer
	mu        sync.Mutex // guards params
	params    *params
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	newDevice func() Device
	after     func(time.Duration) <-chan time.Time
	params    *params
}

// WithDevice sets the output device factory. It is called when the context
// is created.
func WithDevice(newDevice func() Device) Option {
	return func(c *engineConfig) {
		c.newDevice = newDevice
	}
}

// WithTimer sets the timer source used between sequence onsets.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(c *engineConfig) {
		c.after = after
	}
}

// WithParamsJSON applies engine parameters encoded as JSON.
func WithParamsJSON(data []byte) Option {
	return func(c *engineConfig) {
		if err := c.params.applyJSON(data); err != nil {
			log.Printf("error: %v", err)
		}
	}
}

// WithMaxVoices caps the number of distinct tones sounding at once.
// The oldest voice is stopped to make room. Zero means no cap.
func WithMaxVoices(n int) Option {
	return func(c *engineConfig) {
		c.params.maxVoices = n
	}
}

// NewEngine ...
func NewEngine(table ToneTable, opts ...Option) *Engine {
	config := &engineConfig{
		newDevice: newDefaultDevice,
		after:     time.After,
		params:    newParams(),
	}
	for _, opt := range opts {
		opt(config)
	}
	changes := newChanges()
	e := &Engine{
		CommandCh: make(chan []string, 256),
		Changes:   changes,
		table:     table,
		lifecycle: newLifecycle(config.newDevice, config.params.masterVolume),
		registry:  newRegistry(config.params.maxVoices, changes),
		sequencer: newSequencer(config.after, changes),
		params:    config.params,
	}
	go processCommands(e, e.CommandCh)
	return e
}

func processCommands(e *Engine, commandCh <-chan []string) {
	for command := range commandCh {
		if err := e.Update(command); err != nil {
			log.Printf("error: %v", err)
		}
	}
	log.Println("processCommands() ended.")
}

// Table ...
func (e *Engine) Table() ToneTable {
	return e.table
}

func (e *Engine) currentParams() params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.params
}

// Trigger starts toneID at frequency, replacing the tone's live voice if any.
// When the audio context cannot be resumed it does nothing.
func (e *Engine) Trigger(toneID string, frequency float64) {
	gain := 1.0
	if t, ok := e.table.Lookup(toneID); ok {
		gain = t.gain()
	}
	e.trigger(toneID, frequency, gain)
}

// TriggerTone triggers a tone of the table by id.
func (e *Engine) TriggerTone(id string) error {
	t, ok := e.table.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTone, id)
	}
	e.trigger(t.ID, t.Frequency, t.gain())
	return nil
}

func (e *Engine) trigger(toneID string, frequency float64, gain float64) {
	c := e.lifecycle.resume()
	if c == nil {
		return
	}
	p := e.currentParams()
	e.registry.trigger(c, toneID, frequency, p.peakGain*gain, p.envelope(), p.forceStopRamp)
}

// Stop ramps down toneID if it is sounding.
func (e *Engine) Stop(toneID string) {
	e.registry.stop(toneID, e.currentParams().forceStopRamp)
}

// StopAll cancels the running sequence and ramps down every voice.
func (e *Engine) StopAll() {
	e.sequencer.cancel()
	e.registry.stopAll(e.currentParams().forceStopRamp)
}

// Active returns the sorted ids of the tones currently sounding.
func (e *Engine) Active() []string {
	return e.registry.active()
}

// PlaySequence triggers each tone of order in turn, delay apart. Calling it
// while a sequence is running cancels that sequence instead.
func (e *Engine) PlaySequence(order []Tone, delay time.Duration) *Sequence {
	return e.sequencer.play(order, delay, e.currentParams().sequenceLoop, func(t Tone) {
		e.trigger(t.ID, t.Frequency, t.gain())
	})
}

// PlayTableSequence plays the whole table with the configured delay.
func (e *Engine) PlayTableSequence() *Sequence {
	return e.PlaySequence(e.table.Tones, e.currentParams().delay())
}

// IsSequencing ...
func (e *Engine) IsSequencing() bool {
	return e.sequencer.isRunning()
}

// Render renders mono samples on the engine's clock. It is meant for
// offline devices; a device that pulls on its own already advances the clock.
func (e *Engine) Render(out []float64) {
	c := e.lifecycle.ensure()
	if c == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}
	c.Render(out)
}

// CurrentTime returns the engine's audio clock in seconds, 0 before first use.
func (e *Engine) CurrentTime() float64 {
	c := e.lifecycle.current()
	if c == nil {
		return 0
	}
	return c.CurrentTime()
}

// ApplyJSON ...
func (e *Engine) ApplyJSON(data []byte) error {
	e.mu.Lock()
	err := e.params.applyJSON(data)
	maxVoices := e.params.maxVoices
	volume := e.params.masterVolume
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.registry.setMaxVoices(maxVoices)
	e.lifecycle.setMasterVolume(volume)
	e.Changes.Add(ChangeVolume)
	return nil
}

// ToJSON ...
func (e *Engine) ToJSON() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.toJSON()
}

// Update runs one host command.
func (e *Engine) Update(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	switch command[0] {
	case "trigger":
		if len(command) != 2 {
			return fmt.Errorf("invalid trigger command %v", command)
		}
		return e.TriggerTone(command[1])
	case "stop":
		if len(command) != 2 {
			return fmt.Errorf("invalid stop command %v", command)
		}
		e.Stop(command[1])
	case "stop_all":
		e.StopAll()
	case "volume":
		if len(command) != 2 {
			return fmt.Errorf("invalid volume command %v", command)
		}
		value, err := strconv.ParseFloat(command[1], 64)
		if err != nil {
			return err
		}
		e.SetMasterVolume(value)
	case "sequence":
		e.PlayTableSequence()
	case "set":
		command = command[1:]
		if len(command) != 2 {
			return fmt.Errorf("invalid key-value pair %v", command)
		}
		e.mu.Lock()
		err := e.params.set(command[0], command[1])
		maxVoices := e.params.maxVoices
		volume := e.params.masterVolume
		e.mu.Unlock()
		if err != nil {
			return err
		}
		e.registry.setMaxVoices(maxVoices)
		if command[0] == "master_volume" {
			e.lifecycle.setMasterVolume(volume)
			e.Changes.Add(ChangeVolume)
		}
	case "load":
		if len(command) != 2 {
			return fmt.Errorf("invalid load command %v", command)
		}
		return e.ApplyJSON([]byte(command[1]))
	default:
		return fmt.Errorf("%w %v", ErrUnknownCommand, command[0])
	}
	return nil
}

// Close stops every voice and releases the audio context. Safe to call more
// than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		log.Println("Closing engine...")
		e.StopAll()
		close(e.CommandCh)
		err = e.lifecycle.dispose()
	})
	return err
}
