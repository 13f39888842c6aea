package risk

import (
	"sync"
	"time"
)

// frequencyWindow tracks per-user order attempt timestamps over a sliding
// window. Recording is a consume operation: the attempt counts against the
// window even when a later risk check rejects the order.
type frequencyWindow struct {
	mu     sync.Mutex
	span   time.Duration
	events map[string][]time.Time
}

func newFrequencyWindow(span time.Duration) *frequencyWindow {
	return &frequencyWindow{
		span:   span,
		events: make(map[string][]time.Time),
	}
}

// record inserts an attempt at now and returns the number of attempts inside
// the trailing window, including this one.
func (w *frequencyWindow) record(user string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.span)
	kept := w.events[user][:0]
	for _, t := range w.events[user] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	w.events[user] = kept
	return len(kept)
}
