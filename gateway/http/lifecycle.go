package http

import (
	"sync/atomic"
	"time"

	"github.com/c360/pulseboard/component"
	"github.com/c360/pulseboard/errors"
)

var _ component.LifecycleComponent = (*Server)(nil)

// Initialize validates the server's collaborators; the route tree is built
// at construction.
func (s *Server) Initialize() error {
	if s.registry == nil || s.engine == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "Initialize",
			"registry and engine required")
	}
	s.initialized.Store(true)
	return nil
}

// Meta identifies the gateway to the management layer.
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        "gateway",
		Type:        "gateway",
		Description: "Dashboard REST and realtime API",
		Version:     "1.0.0",
	}
}

// Health reports whether the listener is up.
func (s *Server) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:   s.srv != nil,
		LastCheck: time.Now(),
		Uptime:    uptimeSince(s.startTime.Load()),
	}
}

// DataFlow reports request throughput since the listener started.
func (s *Server) DataFlow() component.FlowMetrics {
	elapsed := uptimeSince(s.startTime.Load()).Seconds()
	requests := float64(s.requestsTotal.Load())

	var perSecond float64
	if elapsed > 0 {
		perSecond = requests / elapsed
	}
	var last time.Time
	if ns := s.lastRequest.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		LastActivity:      last,
	}
}

func uptimeSince(startNanos int64) time.Duration {
	if startNanos == 0 {
		return 0
	}
	return time.Since(time.Unix(0, startNanos))
}

// counters shared with the request middleware
type serverCounters struct {
	initialized   atomic.Bool
	startTime     atomic.Int64
	requestsTotal atomic.Int64
	lastRequest   atomic.Int64
}
