// Package engine wires transports, the payload decoder, the device
// registry, and the realtime hub into the device lifecycle: connect builds
// and opens an adapter, readings flow through the decoder into per-device
// history, disconnect tears the stream down synchronously, remove deletes
// the device.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/parser"
	"github.com/c360/pulseboard/realtime"
	"github.com/c360/pulseboard/registry"
	"github.com/c360/pulseboard/telemetry"
	"github.com/c360/pulseboard/transport"
	"github.com/c360/pulseboard/transport/httppoll"
	"github.com/c360/pulseboard/transport/mqttsub"
	"github.com/c360/pulseboard/transport/serialport"
	"github.com/c360/pulseboard/transport/sim"
	"github.com/c360/pulseboard/transport/wspush"
)

// ConnectRequest describes one device connection attempt. Only the fields
// relevant to the chosen transport are read.
type ConnectRequest struct {
	Name       string               `json:"name"`
	DeviceType telemetry.DeviceType `json:"deviceType"`
	Transport  transport.Kind       `json:"transport"`

	// Serial
	Port     string `json:"port,omitempty"`
	BaudRate int    `json:"baudRate,omitempty"`

	// MQTT
	Broker   string `json:"broker,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// HTTP poll and WebSocket
	URL string `json:"url,omitempty"`

	// HTTP poll and sim tick, milliseconds. Zero uses the configured default.
	IntervalMs int `json:"intervalMs,omitempty"`
}

// Defaults are fallbacks applied to connect requests.
type Defaults struct {
	BaudRate     int
	PollInterval time.Duration
	SimInterval  time.Duration
}

// Engine owns the live adapters. Device state itself lives in the registry;
// the engine only maps device ids to their open transports.
type Engine struct {
	registry *registry.Registry
	hub      *realtime.Hub
	logger   *slog.Logger
	defaults Defaults
	metrics  *Metrics

	mu       sync.Mutex
	adapters map[string]transport.Adapter
	closed   bool

	startTime     time.Time
	readingsTotal atomic.Int64
	streamErrors  atomic.Int64
	lastActivity  atomic.Int64 // unix nanos of last ingested reading
	lastError     atomicString
}

type atomicString struct{ v atomic.Value }

func (s *atomicString) Store(val string) { s.v.Store(val) }

func (s *atomicString) Load() string {
	if v, ok := s.v.Load().(string); ok {
		return v
	}
	return ""
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults overrides connection fallbacks.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) {
		if d.BaudRate > 0 {
			e.defaults.BaudRate = d.BaudRate
		}
		if d.PollInterval > 0 {
			e.defaults.PollInterval = d.PollInterval
		}
		if d.SimInterval > 0 {
			e.defaults.SimInterval = d.SimInterval
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics for the ingest path.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine over the given registry and hub. hub may be nil when
// no realtime push is wanted (tests mostly).
func New(reg *registry.Registry, hub *realtime.Hub, options ...Option) *Engine {
	e := &Engine{
		registry: reg,
		hub:      hub,
		logger:   slog.Default(),
		defaults: Defaults{
			BaudRate:     serialport.DefaultBaudRate,
			PollInterval: httppoll.DefaultInterval,
			SimInterval:  sim.DefaultInterval,
		},
		adapters:  make(map[string]transport.Adapter),
		startTime: time.Now(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Connect registers a device and opens its transport. On any failure the
// device is unregistered again, so a failed connect leaves no trace.
func (e *Engine) Connect(ctx context.Context, req ConnectRequest) (registry.Snapshot, error) {
	if !req.Transport.Valid() {
		return registry.Snapshot{}, errors.Wrap(errors.ErrUnsupported, "Engine", "Connect",
			"resolve transport kind")
	}

	id, err := e.registry.Add(req.Name, req.DeviceType, string(req.Transport), configBlob(req))
	if err != nil {
		return registry.Snapshot{}, err
	}

	adapter, err := e.buildAdapter(id, req)
	if err != nil {
		e.registry.Remove(id)
		return registry.Snapshot{}, err
	}

	if err := adapter.Open(ctx); err != nil {
		_ = adapter.Close()
		e.registry.Remove(id)
		if e.metrics != nil {
			e.metrics.connectFailures.WithLabelValues(string(req.Transport)).Inc()
		}
		return registry.Snapshot{}, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = adapter.Close()
		e.registry.Remove(id)
		return registry.Snapshot{}, errors.Wrap(errors.ErrAlreadyStopped, "Engine", "Connect", "register adapter")
	}
	e.adapters[id] = adapter
	e.mu.Unlock()

	if err := e.registry.SetStatus(id, registry.StatusConnected); err != nil {
		e.logger.Warn("status update failed", "device_id", id, "error", err)
	}
	if e.metrics != nil {
		e.metrics.connects.WithLabelValues(string(req.Transport)).Inc()
		e.metrics.activeAdapters.Inc()
	}

	snap, _ := e.registry.Get(id)
	e.broadcast(realtime.EventDeviceConnected, snap)
	e.logger.Info("device connected",
		"device_id", id, "transport", string(req.Transport), "type", string(req.DeviceType))
	return snap, nil
}

// Disconnect closes a device's stream and marks it disconnected. The device
// and its history stay visible. It never reconnects in place; a new
// connect creates a new device.
func (e *Engine) Disconnect(id string) error {
	e.mu.Lock()
	adapter, ok := e.adapters[id]
	delete(e.adapters, id)
	e.mu.Unlock()

	if ok {
		_ = adapter.Close()
		if e.metrics != nil {
			e.metrics.activeAdapters.Dec()
		}
	}

	if err := e.registry.SetStatus(id, registry.StatusDisconnected); err != nil {
		return err
	}

	if snap, found := e.registry.Get(id); found {
		e.broadcast(realtime.EventDeviceDisconnect, snap)
	}
	e.logger.Info("device disconnected", "device_id", id)
	return nil
}

// Remove disconnects (idempotently) and deletes a device. Readings that
// arrive from a lagging callback afterwards are dropped by the registry.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	adapter, ok := e.adapters[id]
	delete(e.adapters, id)
	e.mu.Unlock()

	if ok {
		_ = adapter.Close()
		if e.metrics != nil {
			e.metrics.activeAdapters.Dec()
		}
	}

	e.registry.Remove(id)
	e.broadcast(realtime.EventDeviceRemoved, map[string]string{"id": id})
	e.logger.Info("device removed", "device_id", id)
}

// Close disconnects every adapter. Used at shutdown.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	adapters := make(map[string]transport.Adapter, len(e.adapters))
	for id, a := range e.adapters {
		adapters[id] = a
	}
	e.adapters = make(map[string]transport.Adapter)
	e.mu.Unlock()

	for id, a := range adapters {
		_ = a.Close()
		if err := e.registry.SetStatus(id, registry.StatusDisconnected); err == nil {
			if e.metrics != nil {
				e.metrics.activeAdapters.Dec()
			}
		}
	}
	return nil
}

// buildAdapter constructs the transport for a request. The data callback
// closes over the device id only; the registry drops readings for removed
// ids, so a late callback cannot resurrect a device.
func (e *Engine) buildAdapter(id string, req ConnectRequest) (transport.Adapter, error) {
	onData := e.ingestFunc(id, req)
	onErr := func(err error) { e.streamFailed(id, err) }

	switch req.Transport {
	case transport.KindSerial:
		baud := req.BaudRate
		if baud <= 0 {
			baud = e.defaults.BaudRate
		}
		return serialport.New(serialport.Config{Port: req.Port, BaudRate: baud}, onData, onErr, e.logger), nil
	case transport.KindMQTT:
		return mqttsub.New(mqttsub.Config{
			Broker:   req.Broker,
			Topic:    req.Topic,
			Username: req.Username,
			Password: req.Password,
		}, onData, onErr, e.logger), nil
	case transport.KindHTTP:
		interval := time.Duration(req.IntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = e.defaults.PollInterval
		}
		return httppoll.New(httppoll.Config{URL: req.URL, Interval: interval}, onData, onErr, e.logger), nil
	case transport.KindWebSocket:
		return wspush.New(wspush.Config{URL: req.URL}, onData, onErr, e.logger), nil
	case transport.KindSim:
		interval := time.Duration(req.IntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = e.defaults.SimInterval
		}
		return sim.New(sim.Config{DeviceType: req.DeviceType, Interval: interval}, onData, e.logger), nil
	default:
		return nil, errors.Wrap(errors.ErrUnsupported, "Engine", "buildAdapter", "resolve transport kind")
	}
}

// ingestFunc is the per-device data path: decode, store, broadcast.
func (e *Engine) ingestFunc(id string, req ConnectRequest) transport.DataFunc {
	kind := string(req.Transport)
	return func(raw string) {
		reading, ok := parser.Decode(raw, req.DeviceType)
		if !ok {
			if e.metrics != nil {
				e.metrics.decodeDrops.WithLabelValues(kind).Inc()
			}
			return
		}
		e.registry.Ingest(id, reading)
		e.readingsTotal.Add(1)
		e.lastActivity.Store(time.Now().UnixNano())
		if e.metrics != nil {
			e.metrics.readings.WithLabelValues(kind).Inc()
		}
		e.broadcast(realtime.EventReading, map[string]any{
			"deviceId":  id,
			"timestamp": reading.Timestamp,
			"fields":    reading.Fields,
		})
	}
}

// streamFailed handles a transport failure after a successful open.
func (e *Engine) streamFailed(id string, err error) {
	e.logger.Warn("device stream failed", "device_id", id, "error", err)
	e.streamErrors.Add(1)
	e.lastError.Store(err.Error())

	e.mu.Lock()
	adapter, ok := e.adapters[id]
	delete(e.adapters, id)
	e.mu.Unlock()

	if ok {
		// Close in a separate goroutine: the adapter's own callback must
		// not block on joining the goroutine it runs in.
		go func() { _ = adapter.Close() }()
		if e.metrics != nil {
			e.metrics.activeAdapters.Dec()
		}
	}

	if setErr := e.registry.SetStatus(id, registry.StatusDisconnected); setErr != nil {
		return
	}
	if snap, found := e.registry.Get(id); found {
		e.broadcast(realtime.EventDeviceDisconnect, snap)
	}
}

func (e *Engine) broadcast(event string, data any) {
	if e.hub != nil {
		e.hub.Broadcast(event, data)
	}
}

// configBlob keeps the sanitized connection settings for display.
func configBlob(req ConnectRequest) map[string]any {
	blob := make(map[string]any)
	switch req.Transport {
	case transport.KindSerial:
		blob["port"] = req.Port
		if req.BaudRate > 0 {
			blob["baudRate"] = req.BaudRate
		}
	case transport.KindMQTT:
		blob["broker"] = req.Broker
		blob["topic"] = req.Topic
	case transport.KindHTTP, transport.KindWebSocket:
		blob["url"] = req.URL
	case transport.KindSim:
		if req.IntervalMs > 0 {
			blob["intervalMs"] = req.IntervalMs
		}
	}
	return blob
}
