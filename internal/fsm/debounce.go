package fsm

import (
	"sync"
	"time"
)

// DefaultDebounce is the bounce window for a momentary button press.
const DefaultDebounce = 200 * time.Millisecond

type inputKey struct {
	kind  EventKind
	group int
}

// Debouncer collapses repeated presses of the same input within a window
// into the first one.
//
// Windows are set per event kind: inputs that are held down (for example
// the save button, confirmed by a long press) need a longer window than a
// momentary press.
type Debouncer struct {
	mu      sync.Mutex
	def     time.Duration
	windows map[EventKind]time.Duration
	last    map[inputKey]time.Time
}

// NewDebouncer creates a debouncer with a default window and per-kind
// overrides.
func NewDebouncer(def time.Duration, windows map[EventKind]time.Duration) *Debouncer {
	if def <= 0 {
		def = DefaultDebounce
	}
	w := make(map[EventKind]time.Duration, len(windows))
	for k, v := range windows {
		w[k] = v
	}
	return &Debouncer{def: def, windows: w, last: make(map[inputKey]time.Time)}
}

// Window returns the debounce window applied to kind.
func (d *Debouncer) Window(kind EventKind) time.Duration {
	if w, ok := d.windows[kind]; ok {
		return w
	}
	return d.def
}

// Accept reports whether a press of ev at time at is a new logical event.
// A rejected bounce does not extend the window.
func (d *Debouncer) Accept(ev Event, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := inputKey{ev.Kind, ev.GroupID}
	if prev, ok := d.last[key]; ok && at.Sub(prev) < d.Window(ev.Kind) {
		return false
	}
	d.last[key] = at
	return true
}
