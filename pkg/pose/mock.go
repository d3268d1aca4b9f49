package pose

import "sync"

// MockSource replays a scripted sequence of samples.
// Used in tests and by the replay command.
type MockSource struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	closed  bool
}

// NewMockSource creates a source that yields the given samples in order.
func NewMockSource(samples ...Sample) *MockSource {
	return &MockSource{samples: samples}
}

// Push appends samples to the script.
func (m *MockSource) Push(samples ...Sample) {
	m.mu.Lock()
	m.samples = append(m.samples, samples...)
	m.mu.Unlock()
}

// Next returns the next scripted sample, or false when the script is
// exhausted (simulating "no new frame").
func (m *MockSource) Next() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.next >= len(m.samples) {
		return Sample{}, false
	}
	s := m.samples[m.next]
	m.next++
	return s, true
}

// Remaining reports how many scripted samples are left.
func (m *MockSource) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples) - m.next
}

// Close stops the source; subsequent Next calls yield nothing.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
