package config

import (
	"sync"
)

// Store holds the active configuration snapshot and guards replacement.
// Invalid candidates are rejected wholesale: the previously-known-good
// snapshot keeps serving until a valid replacement arrives.
type Store struct {
	mu      sync.RWMutex
	current SessionConfig
}

// NewStore creates a store seeded with a validated snapshot.
func NewStore(cfg SessionConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{current: cfg}, nil
}

// Current returns the active snapshot.
func (s *Store) Current() SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply validates and installs a new snapshot. On validation failure the
// active snapshot is left untouched and the error is returned.
func (s *Store) Apply(cfg SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy of the active snapshot and installs the result
// if valid. Used for sensitivity steps and mode cycling.
func (s *Store) Update(fn func(*SessionConfig)) error {
	s.mu.RLock()
	cfg := s.current
	s.mu.RUnlock()

	fn(&cfg)
	return s.Apply(cfg)
}
