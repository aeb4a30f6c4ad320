package audio

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"
)

type params struct {
	attack        float64 // sec
	duration      float64 // sec
	decayFloor    float64 // > 0
	peakGain      float64 // 0-1
	forceStopRamp float64 // sec
	sequenceDelay float64 // sec
	sequenceLoop  bool
	masterVolume  float64 // 0-1
	maxVoices     int
}

func newParams() *params {
	return &params{
		attack:        0.05,
		duration:      defaultDuration,
		decayFloor:    0.001,
		peakGain:      0.3,
		forceStopRamp: 0.3,
		sequenceDelay: 1.5,
		sequenceLoop:  false,
		masterVolume:  0.7,
		maxVoices:     defaultMaxVoices,
	}
}

func (p params) envelope() envelope {
	return envelope{
		attack:   p.attack,
		floor:    p.decayFloor,
		duration: p.duration,
	}
}

func (p params) delay() time.Duration {
	return time.Duration(p.sequenceDelay * float64(time.Second))
}

type paramsJSON struct {
	Attack        float64 `json:"attack"`
	Duration      float64 `json:"duration"`
	DecayFloor    float64 `json:"decayFloor"`
	PeakGain      float64 `json:"peakGain"`
	ForceStopRamp float64 `json:"forceStopRamp"`
	SequenceDelay float64 `json:"sequenceDelay"`
	SequenceLoop  bool    `json:"sequenceLoop"`
	MasterVolume  float64 `json:"masterVolume"`
	MaxVoices     int     `json:"maxVoices"`
}

// applyJSON overwrites only the fields present in data.
func (p *params) applyJSON(data json.RawMessage) error {
	j := p.values()
	err := json.Unmarshal(data, &j)
	if err != nil {
		log.Println("failed to apply JSON to params")
		return fmt.Errorf("failed to parse params: %w", err)
	}
	if err := checkForceStopRamp(j.ForceStopRamp); err != nil {
		return err
	}
	p.attack = j.Attack
	p.duration = j.Duration
	p.decayFloor = j.DecayFloor
	p.peakGain = j.PeakGain
	p.forceStopRamp = j.ForceStopRamp
	p.sequenceDelay = j.SequenceDelay
	p.sequenceLoop = j.SequenceLoop
	p.masterVolume = clampVolume(j.MasterVolume)
	p.maxVoices = j.MaxVoices
	return nil
}

func (p *params) values() paramsJSON {
	return paramsJSON{
		Attack:        p.attack,
		Duration:      p.duration,
		DecayFloor:    p.decayFloor,
		PeakGain:      p.peakGain,
		ForceStopRamp: p.forceStopRamp,
		SequenceDelay: p.sequenceDelay,
		SequenceLoop:  p.sequenceLoop,
		MasterVolume:  p.masterVolume,
		MaxVoices:     p.maxVoices,
	}
}

func (p *params) toJSON() json.RawMessage {
	j := p.values()
	return toRawMessage(&j)
}

// a forced stop must ramp, never cut
func checkForceStopRamp(ramp float64) error {
	if !(ramp > 0) || math.IsInf(ramp, 0) {
		return fmt.Errorf("invalid force_stop_ramp %v: must be > 0", ramp)
	}
	return nil
}

func (p *params) set(key string, value string) error {
	switch key {
	case "sequence_loop":
		p.sequenceLoop = value == "true"
		return nil
	case "max_voices":
		value, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		p.maxVoices = int(value)
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	switch key {
	case "attack":
		p.attack = f
	case "duration":
		p.duration = f
	case "decay_floor":
		p.decayFloor = f
	case "peak_gain":
		p.peakGain = f
	case "force_stop_ramp":
		if err := checkForceStopRamp(f); err != nil {
			return err
		}
		p.forceStopRamp = f
	case "sequence_delay":
		p.sequenceDelay = f
	case "master_volume":
		p.masterVolume = clampVolume(f)
	default:
		return fmt.Errorf("unknown param %q", key)
	}
	return nil
}

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}
