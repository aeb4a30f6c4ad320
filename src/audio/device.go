package audio

import (
	"io"
)

// Device pulls PCM from a Context once opened.
type Device interface {
	// Open starts pulling from r. It must not read from r synchronously.
	Open(r io.Reader) error
	Close() error
}

// NewOfflineDevice returns a Device that never pulls. The owner of the engine
// drives the clock through Engine.Render instead.
func NewOfflineDevice() Device {
	return offlineDevice{}
}

type offlineDevice struct{}

func (offlineDevice) Open(r io.Reader) error { return nil }
func (offlineDevice) Close() error           { return nil }
