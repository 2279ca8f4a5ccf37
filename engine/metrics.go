package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/pulseboard/metric"
)

// Metrics instruments the ingest and lifecycle paths of the engine.
type Metrics struct {
	readings        *prometheus.CounterVec
	decodeDrops     *prometheus.CounterVec
	connects        *prometheus.CounterVec
	connectFailures *prometheus.CounterVec
	activeAdapters  prometheus.Gauge
}

// NewMetrics creates and registers engine metrics.
func NewMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	m := &Metrics{
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "engine",
			Name:      "readings_total",
			Help:      "Readings decoded and stored, by transport",
		}, []string{"transport"}),
		decodeDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "engine",
			Name:      "decode_drops_total",
			Help:      "Raw chunks that matched no decode rule, by transport",
		}, []string{"transport"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "engine",
			Name:      "connects_total",
			Help:      "Successful device connections, by transport",
		}, []string{"transport"}),
		connectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "engine",
			Name:      "connect_failures_total",
			Help:      "Failed device connections, by transport",
		}, []string{"transport"}),
		activeAdapters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "engine",
			Name:      "active_adapters",
			Help:      "Open transport adapters",
		}),
	}

	if err := registry.RegisterCounterVec("engine", "readings", m.readings); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "decode_drops", m.decodeDrops); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "connects", m.connects); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "connect_failures", m.connectFailures); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("engine", "active_adapters", m.activeAdapters); err != nil {
		return nil, err
	}
	return m, nil
}
