// Package telemetry defines the core data model for PulseBoard: device
// readings, device types, and the dashboard metric shapes served by the
// HTTP gateway.
package telemetry

import (
	"encoding/json"
	"time"
)

// DeviceType identifies the hardware category of a connected device.
type DeviceType string

const (
	DeviceIoT       DeviceType = "iot"
	DevicePCB       DeviceType = "pcb"
	DeviceRelay     DeviceType = "relay"
	DeviceVibration DeviceType = "vibration"
)

// Label returns the human-readable name used in auto-generated device names
// and the dashboard UI.
func (t DeviceType) Label() string {
	switch t {
	case DeviceIoT:
		return "IoT"
	case DevicePCB:
		return "PCB"
	case DeviceRelay:
		return "Relay Board"
	case DeviceVibration:
		return "Vibration Sensor"
	default:
		return string(t)
	}
}

// Valid reports whether t is one of the known device types.
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceIoT, DevicePCB, DeviceRelay, DeviceVibration:
		return true
	}
	return false
}

// Reading is a single decoded telemetry sample from a device. Fields holds
// the metric values extracted from the raw payload; the timestamp is assigned
// at ingestion, not parsed from the payload.
type Reading struct {
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// NewReading creates a reading stamped with the current time.
func NewReading(fields map[string]any) Reading {
	return Reading{Timestamp: time.Now(), Fields: fields}
}

// Float returns the named field as a float64. JSON numbers and values
// produced by the payload decoder are stored as float64; anything else
// reports false.
func (r Reading) Float(name string) (float64, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Text returns the named field as a string.
func (r Reading) Text(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
