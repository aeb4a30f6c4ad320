package audio

import (
	"errors"
	"io"
	"log"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"
)

var errContextClosed = errors.New("audio context is closed")

// ----- Context ----- //

// Context renders every connected voice through one master gain.
// Its clock only advances while samples are being pulled.
type Context struct {
	sync.Mutex
	device  Device
	running bool
	closed  bool
	pos     int64 // rendered samples
	master  *param
	voices  []*voice
	out     []float64 // length: samplesPerCycle
	oscBuf  []float64
	gainBuf []float64
}

var _ io.Reader = (*Context)(nil)

func newContext(device Device, volume float64) *Context {
	return &Context{
		device:  device,
		master:  newParam(volume),
		voices:  make([]*voice, 0, defaultMaxVoices*2),
		out:     make([]float64, samplesPerCycle),
		oscBuf:  make([]float64, samplesPerCycle),
		gainBuf: make([]float64, samplesPerCycle),
	}
}

// CurrentTime returns the context time in seconds.
func (c *Context) CurrentTime() float64 {
	c.Lock()
	defer c.Unlock()
	return c.currentTime()
}

func (c *Context) currentTime() float64 {
	return float64(c.pos) * secPerSample
}

func (c *Context) isRunning() bool {
	c.Lock()
	defer c.Unlock()
	return c.running
}

func (c *Context) resume() error {
	c.Lock()
	if c.closed {
		c.Unlock()
		return errContextClosed
	}
	if c.running {
		c.Unlock()
		return nil
	}
	c.Unlock()
	// the device reads from another goroutine, so open it unlocked
	if err := c.device.Open(c); err != nil {
		return err
	}
	c.Lock()
	c.running = true
	c.Unlock()
	return nil
}

func (c *Context) setMasterGain(value float64) {
	c.Lock()
	c.master.setValue(value)
	c.Unlock()
}

func (c *Context) masterGain() float64 {
	c.Lock()
	defer c.Unlock()
	return c.master.valueAt(c.currentTime())
}

func (c *Context) connect(v *voice) {
	c.voices = append(c.voices, v)
}

func (c *Context) voiceCount() int {
	c.Lock()
	defer c.Unlock()
	return len(c.voices)
}

// Read implements io.Reader for output devices: 16-bit little-endian, interleaved stereo.
func (c *Context) Read(buf []byte) (int, error) {
	c.Lock()
	if c.closed {
		c.Unlock()
		return 0, io.EOF
	}
	bufSamples := len(buf) / bytesPerSample
	if cap(c.out) < bufSamples {
		c.out = make([]float64, bufSamples)
	}
	out := c.out[:bufSamples]
	ended := c.render(out)
	for ch := 0; ch < channelNum; ch++ {
		writeBuffer(out, buf, ch)
	}
	c.Unlock()
	notifyEnded(ended)
	return bufSamples * bytesPerSample, nil
}

// Render renders mono samples without an output device.
func (c *Context) Render(out []float64) {
	c.Lock()
	if c.closed {
		c.Unlock()
		for i := range out {
			out[i] = 0
		}
		return
	}
	var ended []*voice
	for len(out) > 0 {
		n := len(out)
		if n > samplesPerCycle {
			n = samplesPerCycle
		}
		ended = append(ended, c.render(out[:n])...)
		out = out[n:]
	}
	c.Unlock()
	notifyEnded(ended)
}

// render must be called with the lock held. Voices whose oscillator ended are
// disconnected and returned so their callbacks can run unlocked.
func (c *Context) render(out []float64) []*voice {
	n := len(out)
	if cap(c.oscBuf) < n {
		c.oscBuf = make([]float64, n)
		c.gainBuf = make([]float64, n)
	}
	oscBuf := c.oscBuf[:n]
	gainBuf := c.gainBuf[:n]
	t0 := c.currentTime()
	t1 := t0 + float64(n)*secPerSample
	for i := range out {
		out[i] = 0
	}
	var ended []*voice
	live := c.voices[:0]
	for _, v := range c.voices {
		done := v.render(oscBuf, gainBuf, t0)
		vecmath.AddBlockInPlace(out, oscBuf)
		if done {
			ended = append(ended, v)
		} else {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(c.voices); i++ {
		c.voices[i] = nil
	}
	c.voices = live
	c.master.fill(gainBuf, t0)
	vecmath.MulBlockInPlace(out, gainBuf)
	c.master.prune(t1)
	c.pos += int64(n)
	return ended
}

func (c *Context) close() error {
	c.Lock()
	if c.closed {
		c.Unlock()
		return nil
	}
	c.closed = true
	c.running = false
	c.voices = nil
	c.Unlock()
	return c.device.Close()
}

func notifyEnded(ended []*voice) {
	for _, v := range ended {
		if v.onEnded != nil {
			v.onEnded(v)
		}
	}
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i, value := range out {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		const max = 32767
		b := int16(value * max)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

// ----- Lifecycle ----- //

// lifecycle owns the engine's single Context. The Context is created on
// first use and released by dispose.
type lifecycle struct {
	mu        sync.Mutex
	newDevice func() Device
	ctx       *Context
	volume    float64
	disposed  bool
}

func newLifecycle(newDevice func() Device, volume float64) *lifecycle {
	return &lifecycle{
		newDevice: newDevice,
		volume:    volume,
	}
}

// ensure returns the Context, creating it on the first call. It returns nil
// once disposed.
func (l *lifecycle) ensure() *Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLocked()
}

func (l *lifecycle) ensureLocked() *Context {
	if l.disposed {
		return nil
	}
	if l.ctx == nil {
		l.ctx = newContext(l.newDevice(), l.volume)
	}
	return l.ctx
}

// resume returns a running Context, or nil when the device cannot be opened.
func (l *lifecycle) resume() *Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.ensureLocked()
	if c == nil {
		return nil
	}
	if err := c.resume(); err != nil {
		log.Printf("failed to resume audio context: %v", err)
		return nil
	}
	return c
}

// current returns the Context if it has been created.
func (l *lifecycle) current() *Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}

func (l *lifecycle) setMasterVolume(volume float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volume = volume
	if l.ctx != nil {
		l.ctx.setMasterGain(volume)
	}
}

func (l *lifecycle) masterVolume() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.volume
}

func (l *lifecycle) dispose() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return nil
	}
	l.disposed = true
	if l.ctx == nil {
		return nil
	}
	c := l.ctx
	l.ctx = nil
	return c.close()
}
