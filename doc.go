// Package pulseboard is a telemetry dashboard service for PCB and IoT edge
// devices.
//
// # Architecture
//
// Devices stream raw payloads in over one of five transports (serial port,
// MQTT subscription, HTTP polling, WebSocket push, or a built-in
// simulator). A heuristic decoder turns each payload into a reading:
// strict JSON objects pass their fields through verbatim, anything else is
// scanned with regular expressions for common firmware line formats. The
// device registry owns all device state and keeps a bounded history of the
// 50 most recent readings per device, evicting the oldest on overflow.
//
// The HTTP gateway serves the dashboard: device lifecycle endpoints
// (connect, disconnect, remove), fleet metric pages, host system stats, a
// metrics-aware chat assistant with sqlite-backed persistence, a realtime
// WebSocket feed of ingested readings, and Prometheus metrics.
//
// Package layout:
//
//   - transport: adapter contract plus one subpackage per transport
//   - parser: raw payload to reading decoding
//   - registry: device records and bounded history
//   - engine: the connect/disconnect/remove state machine and ingest path
//   - pkg/buffer: the generic bounded ring buffer behind reading history
//   - telemetry: data model and mock fleet generators
//   - chat, localstore: assistant and its persistence
//   - gateway/http, realtime: REST API and WebSocket push
//   - config, errors, health, metric, component: ambient infrastructure
package pulseboard
