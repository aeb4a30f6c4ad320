//go:build !headless

package audio

import (
	"io"
	"log"

	"github.com/hajimehoshi/oto"
)

type otoDevice struct {
	otoContext *oto.Context
	player     *oto.Player
	done       chan struct{}
}

func newDefaultDevice() Device {
	return &otoDevice{}
}

func (d *otoDevice) Open(r io.Reader) error {
	if d.otoContext != nil {
		return nil
	}
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return err
	}
	d.otoContext = otoContext
	d.player = otoContext.NewPlayer()
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		// blocks until the context returns io.EOF or the player is closed
		if _, err := io.CopyBuffer(d.player, r, make([]byte, bufferSizeInBytes)); err != nil {
			log.Printf("error while pumping audio: %v", err)
		}
	}()
	return nil
}

func (d *otoDevice) Close() error {
	if d.otoContext == nil {
		return nil
	}
	if err := d.player.Close(); err != nil {
		log.Printf("error while closing player: %v", err)
	}
	<-d.done
	err := d.otoContext.Close()
	d.otoContext = nil
	d.player = nil
	return err
}
