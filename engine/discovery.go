package engine

import (
	"time"

	"github.com/c360/pulseboard/component"
)

var _ component.Discoverable = (*Engine)(nil)

// Meta identifies the engine to the management layer.
func (e *Engine) Meta() component.Metadata {
	return component.Metadata{
		Name:        "engine",
		Type:        "service",
		Description: "Device lifecycle and telemetry ingest pipeline",
		Version:     "1.0.0",
	}
}

// Health reports adapter-level state. The engine is healthy as long as it
// has not been closed; individual stream failures are reflected in the
// error count, not in the aggregate flag.
func (e *Engine) Health() component.HealthStatus {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	return component.HealthStatus{
		Healthy:    !closed,
		LastCheck:  time.Now(),
		ErrorCount: int(e.streamErrors.Load()),
		LastError:  e.lastError.Load(),
		Uptime:     time.Since(e.startTime),
	}
}

// DataFlow reports ingest throughput since start.
func (e *Engine) DataFlow() component.FlowMetrics {
	elapsed := time.Since(e.startTime).Seconds()
	readings := float64(e.readingsTotal.Load())

	var perSecond, errorRate float64
	if elapsed > 0 {
		perSecond = readings / elapsed
	}
	if total := readings + float64(e.streamErrors.Load()); total > 0 {
		errorRate = float64(e.streamErrors.Load()) / total
	}

	var last time.Time
	if ns := e.lastActivity.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		ErrorRate:         errorRate,
		LastActivity:      last,
	}
}
