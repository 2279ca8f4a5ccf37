// Package health aggregates per-component liveness into one report for the
// gateway's health endpoint.
package health

import (
	"sync"
	"time"
)

// CheckFunc probes one component. A nil error means healthy.
type CheckFunc func() error

// ComponentStatus is the outcome of one check.
type ComponentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report is the aggregate health of the service.
type Report struct {
	Status     string                     `json:"status"` // healthy or degraded
	Components map[string]ComponentStatus `json:"components"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// Monitor runs registered checks on demand.
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{checks: make(map[string]CheckFunc)}
}

// Register adds or replaces a named check.
func (m *Monitor) Register(name string, check CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Report runs every check. The aggregate is healthy only when all
// components are.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.mu.RUnlock()

	report := Report{
		Status:     "healthy",
		Components: make(map[string]ComponentStatus, len(checks)),
		Timestamp:  time.Now(),
	}
	for name, fn := range checks {
		if err := fn(); err != nil {
			report.Components[name] = ComponentStatus{Healthy: false, Error: err.Error()}
			report.Status = "degraded"
			continue
		}
		report.Components[name] = ComponentStatus{Healthy: true}
	}
	return report
}
