package audio

import "math"

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SetMasterVolume sets the gain applied after every voice. Values outside
// [0,1] are clamped. It takes effect immediately, including on sounding voices.
func (e *Engine) SetMasterVolume(volume float64) {
	volume = clampVolume(volume)
	e.mu.Lock()
	e.params.masterVolume = volume
	e.mu.Unlock()
	e.lifecycle.setMasterVolume(volume)
	e.Changes.Add(ChangeVolume)
}

// MasterVolume ...
func (e *Engine) MasterVolume() float64 {
	return e.lifecycle.masterVolume()
}
