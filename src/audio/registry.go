package audio

import (
	"log"
	"sort"
	"sync"
)

// registry keeps at most one live voice per tone id.
type registry struct {
	sync.Mutex
	voices    map[string]*voice
	maxVoices int
	changes   *Changes
}

func newRegistry(maxVoices int, changes *Changes) *registry {
	return &registry{
		voices:    make(map[string]*voice),
		maxVoices: maxVoices,
		changes:   changes,
	}
}

// trigger replaces any live voice for toneID with a new one. The old voice is
// ramped down before the new one starts, so the two briefly overlap.
func (r *registry) trigger(c *Context, toneID string, freq float64, peakGain float64, env envelope, ramp float64) {
	r.Lock()
	defer r.Unlock()
	if old, ok := r.voices[toneID]; ok {
		old.forceStop(ramp)
		delete(r.voices, toneID)
	} else if r.maxVoices > 0 {
		for len(r.voices) >= r.maxVoices {
			log.Println("maxVoices exceeded")
			r.evictOldest(ramp)
		}
	}
	r.voices[toneID] = c.startVoice(toneID, freq, peakGain, env, r.onEnded)
	r.changes.Add(ChangeActive)
}

func (r *registry) evictOldest(ramp float64) {
	var oldest *voice
	for _, v := range r.voices {
		if oldest == nil || v.startedAt < oldest.startedAt ||
			v.startedAt == oldest.startedAt && v.toneID < oldest.toneID {
			oldest = v
		}
	}
	if oldest == nil {
		return
	}
	oldest.forceStop(ramp)
	delete(r.voices, oldest.toneID)
}

// onEnded evicts v only if it is still the current voice for its tone id.
// A voice that was already replaced must not evict its successor.
func (r *registry) onEnded(v *voice) {
	r.Lock()
	defer r.Unlock()
	if current, ok := r.voices[v.toneID]; ok && current == v {
		delete(r.voices, v.toneID)
		r.changes.Add(ChangeActive)
	}
}

func (r *registry) stop(toneID string, ramp float64) {
	r.Lock()
	defer r.Unlock()
	v, ok := r.voices[toneID]
	if !ok {
		return
	}
	v.forceStop(ramp)
	delete(r.voices, toneID)
	r.changes.Add(ChangeActive)
}

func (r *registry) stopAll(ramp float64) {
	r.Lock()
	defer r.Unlock()
	if len(r.voices) == 0 {
		return
	}
	for toneID, v := range r.voices {
		v.forceStop(ramp)
		delete(r.voices, toneID)
	}
	r.changes.Add(ChangeActive)
}

func (r *registry) setMaxVoices(n int) {
	r.Lock()
	r.maxVoices = n
	r.Unlock()
}

func (r *registry) active() []string {
	r.Lock()
	ids := make([]string, 0, len(r.voices))
	for toneID := range r.voices {
		ids = append(ids, toneID)
	}
	r.Unlock()
	sort.Strings(ids)
	return ids
}

func (r *registry) lookup(toneID string) *voice {
	r.Lock()
	defer r.Unlock()
	return r.voices[toneID]
}
