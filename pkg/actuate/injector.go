// Package actuate turns per-tick driving intent into debounced key
// press/release events.
package actuate

import (
	"sync"
	"time"
)

// Injector delivers key events to the OS-level input layer.
// Calls are fire-and-forget and must be safe to repeat: pressing an
// already-pressed key is a no-op, not an error. The actuator additionally
// guarantees it never reports a key down twice without an intervening up.
type Injector interface {
	Press(key string)
	Release(key string)
}

// EventKind distinguishes recorded injector calls.
type EventKind int

// Recorded event kinds.
const (
	EventPress EventKind = iota
	EventRelease
)

// Event is one recorded injector call.
type Event struct {
	Kind EventKind
	Key  string
	T    time.Time
}

// MockInjector records key events in order for tests and replay analysis.
type MockInjector struct {
	mu     sync.Mutex
	events []Event
}

// NewMockInjector creates an empty recorder.
func NewMockInjector() *MockInjector {
	return &MockInjector{}
}

// Press records a press event.
func (m *MockInjector) Press(key string) {
	m.record(EventPress, key)
}

// Release records a release event.
func (m *MockInjector) Release(key string) {
	m.record(EventRelease, key)
}

func (m *MockInjector) record(kind EventKind, key string) {
	m.mu.Lock()
	m.events = append(m.events, Event{Kind: kind, Key: key, T: time.Now()})
	m.mu.Unlock()
}

// Events returns a copy of the recorded events in order.
func (m *MockInjector) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Count returns how many events of the given kind hit the given key.
func (m *MockInjector) Count(kind EventKind, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Kind == kind && e.Key == key {
			n++
		}
	}
	return n
}

// Reset clears the recording.
func (m *MockInjector) Reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}
