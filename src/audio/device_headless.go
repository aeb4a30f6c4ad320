//go:build headless

package audio

import (
	"io"
	"time"
)

// cycleDuration is the real time one cycle of samples lasts.
const cycleDuration = time.Duration(samplesPerCycle) * time.Second / sampleRate

// tickerDevice pulls at the real-time rate and discards the PCM.
type tickerDevice struct {
	stop chan struct{}
	done chan struct{}
}

func newDefaultDevice() Device {
	return &tickerDevice{}
}

func (d *tickerDevice) Open(r io.Reader) error {
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		t := time.NewTicker(cycleDuration)
		defer t.Stop()
		buf := make([]byte, bufferSizeInBytes)
		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				if _, err := r.Read(buf); err != nil {
					return
				}
			}
		}
	}()
	return nil
}

func (d *tickerDevice) Close() error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	return nil
}
