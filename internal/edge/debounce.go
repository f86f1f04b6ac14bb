package edge

import (
	"sync"
	"time"
)

// DebounceFilter suppresses repeated detections of the same student within a
// window. A rejection does not extend the window: a third rapid detection is
// judged against the originally admitted time, not the rejected one.
type DebounceFilter struct {
	mu       sync.Mutex
	window   time.Duration
	admitted map[string]time.Time
}

func NewDebounceFilter(window time.Duration) *DebounceFilter {
	return &DebounceFilter{
		window:   window,
		admitted: make(map[string]time.Time),
	}
}

// Admit reports whether an event for (student, course) may pass at time now,
// recording now as the last-admitted time when it does.
func (f *DebounceFilter) Admit(studentID, courseID string, now time.Time) bool {
	key := studentID + ":" + courseID

	f.mu.Lock()
	defer f.mu.Unlock()

	if last, ok := f.admitted[key]; ok && now.Sub(last) < f.window {
		return false
	}
	f.admitted[key] = now
	return true
}

// Reset drops all state. Called when the active course changes: a different
// class has distinct attendance semantics.
func (f *DebounceFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admitted = make(map[string]time.Time)
}

// Sweep drops entries older than twice the window so the map does not grow
// across a long session.
func (f *DebounceFilter) Sweep(now time.Time) {
	cutoff := 2 * f.window

	f.mu.Lock()
	defer f.mu.Unlock()
	for key, last := range f.admitted {
		if now.Sub(last) > cutoff {
			delete(f.admitted, key)
		}
	}
}
