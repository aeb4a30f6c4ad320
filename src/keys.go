package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jinjor/singing-bowls/src/audio"
	"golang.org/x/term"
)

const volumeStep = 0.1

var errNotTerminal = errors.New("stdin is not a terminal")

// runKeys plays the engine from single key presses until q or Ctrl-C.
//
//	1..9  trigger the n-th tone
//	s     start or cancel the sequence
//	x     stop all
//	+ -   master volume
func runKeys(ctx context.Context, engine *audio.Engine) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errNotTerminal
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, oldState); err != nil {
			log.Printf("failed to restore terminal: %v\n", err)
		}
	}()
	// raw mode needs CRLF; the terminal translates on write
	screen := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")
	log.SetOutput(screen)
	defer log.SetOutput(os.Stderr)

	printHelp(screen, engine.Table())

	keyCh := make(chan byte, 16)
	go func() {
		// leaks until the process exits; stdin cannot be interrupted
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(keyCh)
				return
			}
			if n > 0 {
				keyCh <- buf[0]
			}
		}
	}()

	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for _, report := range reports(engine) {
				fmt.Fprintln(screen, report)
			}
		case key, ok := <-keyCh:
			if !ok {
				return nil
			}
			if quit := handleKey(engine, key); quit {
				return nil
			}
		}
	}
}

// handleKey reports whether the key asks to quit.
func handleKey(engine *audio.Engine, key byte) bool {
	var command []string
	switch {
	case key == 'q' || key == 3 || key == 4: // Ctrl-C, Ctrl-D
		return true
	case key >= '1' && key <= '9':
		tones := engine.Table().Tones
		i := int(key - '1')
		if i >= len(tones) {
			return false
		}
		command = []string{"trigger", tones[i].ID}
	case key == 's':
		command = []string{"sequence"}
	case key == 'x':
		command = []string{"stop_all"}
	case key == '+' || key == '=':
		command = []string{"volume", fmt.Sprint(engine.MasterVolume() + volumeStep)}
	case key == '-':
		command = []string{"volume", fmt.Sprint(engine.MasterVolume() - volumeStep)}
	default:
		return false
	}
	if err := engine.Update(command); err != nil {
		log.Printf("error: %v\n", err)
	}
	return false
}

func printHelp(w io.Writer, table audio.ToneTable) {
	fmt.Fprintf(w, "%s\n", table.Name)
	for i, tone := range table.Tones {
		if i >= 9 {
			break
		}
		fmt.Fprintf(w, "  %d  %s (%.2f Hz)\n", i+1, tone.Label, tone.Frequency)
	}
	fmt.Fprintln(w, "  s  sequence   x  stop all   +/-  volume   q  quit")
}
