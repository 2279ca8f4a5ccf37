package config

import "sync"

// Safe wraps a Config for concurrent read and hot-reload swap. Readers get
// a copy, so a reload mid-request cannot tear a config in half.
type Safe struct {
	mu  sync.RWMutex
	cfg Config
}

// NewSafe wraps an initial configuration.
func NewSafe(cfg *Config) *Safe {
	return &Safe{cfg: *cfg}
}

// Get returns a copy of the current configuration.
func (s *Safe) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update swaps in a new configuration.
func (s *Safe) Update(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = *cfg
}
