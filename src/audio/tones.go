package audio

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrUnknownTone is returned when a tone id is not in the table.
var ErrUnknownTone = errors.New("unknown tone")

// Tone describes one playable tone. Metadata is carried for the UI and
// ignored by the engine.
type Tone struct {
	ID        string            `json:"id"`
	Frequency float64           `json:"frequency"` // Hz
	Label     string            `json:"label"`
	Gain      float64           `json:"gain,omitempty"` // 0 means 1
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (t Tone) gain() float64 {
	if t.Gain <= 0 {
		return 1
	}
	return t.Gain
}

// ToneTable is an ordered, immutable list of tones.
type ToneTable struct {
	Name  string `json:"name"`
	Tones []Tone `json:"tones"`
}

// Lookup ...
func (tt ToneTable) Lookup(id string) (Tone, bool) {
	for _, t := range tt.Tones {
		if t.ID == id {
			return t, true
		}
	}
	return Tone{}, false
}

// Validate checks that ids are unique and non-empty and frequencies positive.
func (tt ToneTable) Validate() error {
	seen := make(map[string]struct{}, len(tt.Tones))
	for i, t := range tt.Tones {
		if t.ID == "" {
			return fmt.Errorf("tone %d: empty id", i)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("tone %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = struct{}{}
		if !(t.Frequency > 0) || math.IsInf(t.Frequency, 0) {
			return fmt.Errorf("tone %q: invalid frequency %v", t.ID, t.Frequency)
		}
	}
	return nil
}

// LoadToneTable reads a table from a JSON file.
func LoadToneTable(path string) (ToneTable, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return ToneTable{}, err
	}
	var tt ToneTable
	if err := json.Unmarshal(bytes, &tt); err != nil {
		return ToneTable{}, fmt.Errorf("failed to parse tone table %s: %w", path, err)
	}
	if err := tt.Validate(); err != nil {
		return ToneTable{}, fmt.Errorf("invalid tone table %s: %w", path, err)
	}
	return tt, nil
}

// BuiltinToneTable returns one of the tables shipped with the engine:
// "bowls" or "chakras".
func BuiltinToneTable(name string) (ToneTable, error) {
	switch name {
	case "bowls":
		return bowlsTable(), nil
	case "chakras":
		return chakrasTable(), nil
	}
	return ToneTable{}, fmt.Errorf("unknown tone table %q", name)
}

func bowlsTable() ToneTable {
	return ToneTable{
		Name: "bowls",
		Tones: []Tone{
			{ID: "c", Frequency: 261.63, Label: "C", Metadata: map[string]string{"chakra": "root"}},
			{ID: "d", Frequency: 293.66, Label: "D", Metadata: map[string]string{"chakra": "sacral"}},
			{ID: "e", Frequency: 329.63, Label: "E", Metadata: map[string]string{"chakra": "solar-plexus"}},
			{ID: "f", Frequency: 349.23, Label: "F", Metadata: map[string]string{"chakra": "heart"}},
			{ID: "g", Frequency: 392.00, Label: "G", Metadata: map[string]string{"chakra": "throat"}},
			{ID: "a", Frequency: 440.00, Label: "A", Metadata: map[string]string{"chakra": "third-eye"}},
			{ID: "b", Frequency: 493.88, Label: "B", Metadata: map[string]string{"chakra": "crown"}},
		},
	}
}

func chakrasTable() ToneTable {
	return ToneTable{
		Name: "chakras",
		Tones: []Tone{
			{ID: "root", Frequency: 396, Label: "Root", Metadata: map[string]string{"color": "red"}},
			{ID: "sacral", Frequency: 417, Label: "Sacral", Metadata: map[string]string{"color": "orange"}},
			{ID: "solar-plexus", Frequency: 528, Label: "Solar Plexus", Metadata: map[string]string{"color": "yellow"}},
			{ID: "heart", Frequency: 639, Label: "Heart", Metadata: map[string]string{"color": "green"}},
			{ID: "throat", Frequency: 741, Label: "Throat", Metadata: map[string]string{"color": "blue"}},
			{ID: "third-eye", Frequency: 852, Label: "Third Eye", Metadata: map[string]string{"color": "indigo"}},
			{ID: "crown", Frequency: 963, Label: "Crown", Metadata: map[string]string{"color": "violet"}},
		},
	}
}
