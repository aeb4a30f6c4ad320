package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jinjor/singing-bowls/src/audio"
	"golang.org/x/sync/errgroup"
)

const chunkSize = 1024

var (
	tonesPath  = flag.String("tones", "", "tone table JSON file (overrides -table)")
	tableName  = flag.String("table", "bowls", "built-in tone table: bowls or chakras")
	paramsPath = flag.String("params", "", "engine parameters JSON file")
	outDir     = flag.String("out", ".", "output directory")
	seconds    = flag.Float64("seconds", 5, "length of each tone file; the tail after the sequence")
	sequence   = flag.Bool("sequence", false, "also render the whole table as one sequence")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	table, err := loadTable()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	var opts []audio.Option
	opts = append(opts, audio.WithDevice(audio.NewOfflineDevice))
	if *paramsPath != "" {
		data, err := os.ReadFile(*paramsPath)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		opts = append(opts, audio.WithParamsJSON(data))
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, tone := range table.Tones {
		g.Go(func() error {
			path := filepath.Join(*outDir, fmt.Sprintf("%s-%s.wav", table.Name, tone.ID))
			samples, err := renderTone(ctx, table, tone.ID, *seconds, opts...)
			if err != nil {
				return err
			}
			log.Printf("rendered %s\n", tone.ID)
			return saveWAV(path, samples)
		})
	}
	if *sequence {
		g.Go(func() error {
			path := filepath.Join(*outDir, fmt.Sprintf("%s-sequence.wav", table.Name))
			samples, err := renderSequence(ctx, table, *seconds, opts...)
			if err != nil {
				return err
			}
			log.Println("rendered sequence")
			return saveWAV(path, samples)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully rendered tones.")
}

func loadTable() (audio.ToneTable, error) {
	if *tonesPath != "" {
		return audio.LoadToneTable(*tonesPath)
	}
	return audio.BuiltinToneTable(*tableName)
}

// renderTone renders a single trigger of the tone for the given length.
func renderTone(ctx context.Context, table audio.ToneTable, id string, seconds float64, opts ...audio.Option) ([]float64, error) {
	engine := audio.NewEngine(table, opts...)
	defer engine.Close()
	if err := engine.TriggerTone(id); err != nil {
		return nil, err
	}
	samples := make([]float64, int(seconds*audio.SampleRate))
	for start := 0; start < len(samples); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		engine.Render(samples[start:end])
	}
	return samples, nil
}

// renderSequence renders one pass of the table sequence followed by a tail of
// the given length. Onsets land on the rendered clock, not on wall time. A
// looping sequence is cancelled once every tone has sounded.
func renderSequence(ctx context.Context, table audio.ToneTable, tail float64, opts ...audio.Option) ([]float64, error) {
	clock := newRenderClock()
	opts = append(append([]audio.Option(nil), opts...), audio.WithTimer(clock.after))
	engine := audio.NewEngine(table, opts...)
	defer engine.Close()
	clock.now = engine.CurrentTime

	var samples []float64
	chunk := make([]float64, chunkSize)
	seq := engine.PlayTableSequence()
	clock.wait(seq)
	onsets := 1
loop:
	for {
		select {
		case <-seq.Done():
			break loop
		case <-ctx.Done():
			seq.Cancel()
			return nil, ctx.Err()
		default:
		}
		if onsets >= len(table.Tones) {
			seq.Cancel()
			<-seq.Done()
			break
		}
		engine.Render(chunk)
		samples = append(samples, chunk...)
		if fired := clock.fire(); fired > 0 {
			onsets += fired
			clock.wait(seq)
		}
	}
	rest := make([]float64, int(tail*audio.SampleRate))
	engine.Render(rest)
	return append(samples, rest...), nil
}

func saveWAV(path string, samples []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeWAV(f, samples, audio.SampleRate); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
