// Package sim emits generated telemetry on a fixed tick, standing in for
// real hardware during demos and tests. Payloads are JSON-encoded so they
// take the same decode path as real device data.
package sim

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/telemetry"
	"github.com/c360/pulseboard/transport"
)

// DefaultInterval between emitted readings.
const DefaultInterval = 2 * time.Second

// Config holds simulation settings.
type Config struct {
	// DeviceType selects which metric shape is generated.
	DeviceType telemetry.DeviceType
	// Interval between readings, DefaultInterval when zero.
	Interval time.Duration
	// Generator overrides the random source, mostly for tests.
	Generator *telemetry.Generator
}

// Adapter generates readings for one simulated device.
type Adapter struct {
	config    Config
	onData    transport.DataFunc
	logger    *slog.Logger
	generator *telemetry.Generator

	started   atomic.Bool
	closeOnce sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

var _ transport.Adapter = (*Adapter)(nil)

// New creates a simulated adapter.
func New(config Config, onData transport.DataFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	gen := config.Generator
	if gen == nil {
		gen = telemetry.NewGenerator()
	}
	return &Adapter{
		config:    config,
		onData:    onData,
		logger:    logger,
		generator: gen,
		shutdown:  make(chan struct{}),
	}
}

// Kind returns the transport type.
func (a *Adapter) Kind() transport.Kind { return transport.KindSim }

// Open starts the emit loop. The first payload is delivered immediately so a
// freshly connected simulated device is never empty.
func (a *Adapter) Open(ctx context.Context) error {
	if !a.config.DeviceType.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Sim", "Open", "device type required")
	}
	if !a.started.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "Sim", "Open", "start generator")
	}

	a.emit()

	interval := a.config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	a.wg.Add(1)
	go a.emitLoop(interval)
	return nil
}

func (a *Adapter) emitLoop(interval time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.shutdown:
			return
		case <-ticker.C:
			a.emit()
		}
	}
}

func (a *Adapter) emit() {
	fields := a.generator.MockFields(a.config.DeviceType)
	payload, err := json.Marshal(fields)
	if err != nil {
		a.logger.Warn("sim payload encode failed", "error", err)
		return
	}
	a.onData(string(payload))
}

// Close stops the emit loop.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.shutdown)
		a.wg.Wait()
	})
	return nil
}
