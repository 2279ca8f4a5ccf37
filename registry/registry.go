// Package registry tracks connected devices and their reading history.
//
// The registry is the single owner of device state. Transport adapters and
// the engine hold only device ids; anything they need to know about a device
// comes back as a snapshot copy, so no caller can mutate registry state
// outside the lock.
package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/pkg/buffer"
	"github.com/c360/pulseboard/telemetry"
)

// DefaultHistoryCapacity bounds per-device reading history.
const DefaultHistoryCapacity = 50

// Status is the connection state of a device.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// device is the registry-internal record. Never handed out directly.
type device struct {
	id        string
	name      string
	deviceTyp telemetry.DeviceType
	transport string
	status    Status
	lastSeen  *time.Time
	history   buffer.Buffer[telemetry.Reading]
	config    map[string]any
}

// Snapshot is a point-in-time copy of a device's state, safe to hold after
// the registry has moved on.
type Snapshot struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Type       telemetry.DeviceType `json:"deviceType"`
	Transport  string               `json:"transport"`
	Status     Status               `json:"status"`
	LastUpdate *time.Time           `json:"lastUpdate"`
	Readings   []telemetry.Reading  `json:"readings"`
	Config     map[string]any       `json:"config,omitempty"`
}

// Registry is a thread-safe collection of devices.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*device
	counters map[telemetry.DeviceType]int

	capacity int
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithHistoryCapacity overrides the per-device history bound.
func WithHistoryCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithLogger sets the logger used for device lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(options ...Option) *Registry {
	r := &Registry{
		devices:  make(map[string]*device),
		counters: make(map[telemetry.DeviceType]int),
		capacity: DefaultHistoryCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Add registers a new device in the connecting state and returns its id.
// An empty name is auto-generated as "<TypeLabel> Device <n>" with a
// per-type counter. The config map is an opaque blob of transport settings
// kept for later display.
func (r *Registry) Add(name string, typ telemetry.DeviceType, transport string, config map[string]any) (string, error) {
	if !typ.Valid() {
		return "", errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Add",
			fmt.Sprintf("unknown device type %q", typ))
	}

	history, err := buffer.NewRing[telemetry.Reading](r.capacity,
		buffer.WithOverflowPolicy[telemetry.Reading](buffer.DropOldest))
	if err != nil {
		return "", errors.Wrap(err, "Registry", "Add", "create history buffer")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[typ]++
	if name == "" {
		name = fmt.Sprintf("%s Device %d", typ.Label(), r.counters[typ])
	}

	id := uuid.NewString()
	r.devices[id] = &device{
		id:        id,
		name:      name,
		deviceTyp: typ,
		transport: transport,
		status:    StatusConnecting,
		history:   history,
		config:    config,
	}

	r.logger.Info("device registered",
		"device_id", id, "name", name, "type", string(typ), "transport", transport)
	return id, nil
}

// Ingest appends a reading to a device's history and bumps its last-update
// time. An unknown id is a silent no-op: transport callbacks can race with
// Remove, and a reading that arrives after removal must not resurrect the
// device. Status is not touched.
func (r *Registry) Ingest(id string, reading telemetry.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return
	}

	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	_ = d.history.Write(reading)
	// lastSeen mirrors the stored reading's timestamp exactly.
	seen := reading.Timestamp
	d.lastSeen = &seen
}

// SetStatus moves a device to the given status.
func (r *Registry) SetStatus(id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return errors.Wrap(errors.ErrDeviceNotFound, "Registry", "SetStatus", "lookup device")
	}
	d.status = status
	if status == StatusConnected {
		now := time.Now()
		d.lastSeen = &now
	}
	return nil
}

// Remove marks a device disconnected and deletes it. Removing an unknown id
// is a no-op. Readings ingested for the id afterwards are dropped.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return
	}
	d.status = StatusDisconnected
	_ = d.history.Close()
	delete(r.devices, id)

	r.logger.Info("device removed", "device_id", id, "name", d.name)
}

// Get returns a snapshot of one device.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotOf(d), true
}

// List returns snapshots of all devices, in no particular order.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, snapshotOf(d))
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func snapshotOf(d *device) Snapshot {
	var last *time.Time
	if d.lastSeen != nil {
		t := *d.lastSeen
		last = &t
	}
	var cfg map[string]any
	if d.config != nil {
		cfg = make(map[string]any, len(d.config))
		for k, v := range d.config {
			cfg[k] = v
		}
	}
	return Snapshot{
		ID:         d.id,
		Name:       d.name,
		Type:       d.deviceTyp,
		Transport:  d.transport,
		Status:     d.status,
		LastUpdate: last,
		Readings:   d.history.Items(),
		Config:     cfg,
	}
}
