// Package transport defines the adapter contract shared by all device
// connection types. Concrete adapters live in subpackages: serialport,
// mqttsub, httppoll, wspush, and sim.
//
// An adapter owns exactly one connection to one device. Open blocks until
// the connection is established (or fails with a typed error), then streams
// raw payload chunks to the data callback from a background goroutine.
// Close is idempotent and synchronous: when it returns, no further callbacks
// will fire.
package transport

import "context"

// Kind identifies a transport type in device records and connect requests.
type Kind string

const (
	KindSerial    Kind = "serial"
	KindMQTT      Kind = "mqtt"
	KindHTTP      Kind = "http"
	KindWebSocket Kind = "websocket"
	KindSim       Kind = "sim"
)

// Valid reports whether k names a known transport.
func (k Kind) Valid() bool {
	switch k {
	case KindSerial, KindMQTT, KindHTTP, KindWebSocket, KindSim:
		return true
	}
	return false
}

// DataFunc receives one raw payload chunk (a serial line, an MQTT message
// body, an HTTP response body, a WebSocket frame). Called from the adapter's
// reader goroutine; implementations must be safe for that.
type DataFunc func(raw string)

// ErrorFunc is notified when an established stream fails after Open
// succeeded. Not called for errors returned by Open itself, and never
// called after Close returns.
type ErrorFunc func(err error)

// Adapter is one live device connection.
type Adapter interface {
	// Kind returns the transport type of this adapter.
	Kind() Kind

	// Open establishes the connection. It returns once the device is
	// reachable; streaming continues in the background until Close or a
	// stream failure.
	Open(ctx context.Context) error

	// Close tears the connection down. Safe to call multiple times and
	// before Open. No data or error callbacks fire after it returns.
	Close() error
}
