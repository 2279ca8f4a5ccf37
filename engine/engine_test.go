package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/registry"
	"github.com/c360/pulseboard/telemetry"
	"github.com/c360/pulseboard/transport"
)

func newTestEngine(t *testing.T) (*Engine, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	e := New(reg, nil)
	t.Cleanup(func() { _ = e.Close() })
	return e, reg
}

func TestConnectSimDevice(t *testing.T) {
	e, reg := newTestEngine(t)

	snap, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DevicePCB,
		Transport:  transport.KindSim,
		IntervalMs: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, registry.StatusConnected, snap.Status)
	assert.Equal(t, "PCB Device 1", snap.Name)

	// Readings keep flowing in
	require.Eventually(t, func() bool {
		s, ok := reg.Get(snap.ID)
		return ok && len(s.Readings) >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectHTTPDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"temperature": 24.0, "humidity": 55.0}`))
	}))
	defer srv.Close()

	e, reg := newTestEngine(t)
	snap, err := e.Connect(context.Background(), ConnectRequest{
		Name:       "Lab Probe",
		DeviceType: telemetry.DeviceIoT,
		Transport:  transport.KindHTTP,
		URL:        srv.URL,
		IntervalMs: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lab Probe", snap.Name)

	require.Eventually(t, func() bool {
		s, ok := reg.Get(snap.ID)
		if !ok || len(s.Readings) == 0 {
			return false
		}
		v, ok := s.Readings[0].Float("temperature")
		return ok && v == 24.0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectFailureLeavesNoDevice(t *testing.T) {
	e, reg := newTestEngine(t)

	_, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DeviceIoT,
		Transport:  transport.KindHTTP,
		URL:        "http://127.0.0.1:1/unreachable",
	})
	require.Error(t, err)
	assert.Zero(t, reg.Count())
}

func TestConnectInvalidConfigLeavesNoDevice(t *testing.T) {
	e, reg := newTestEngine(t)

	_, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DeviceRelay,
		Transport:  transport.KindMQTT, // missing broker and topic
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	assert.Zero(t, reg.Count())
}

func TestConnectUnsupportedTransport(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DeviceIoT,
		Transport:  transport.Kind("carrier-pigeon"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestDisconnectStopsStreamKeepsHistory(t *testing.T) {
	e, reg := newTestEngine(t)

	snap, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DeviceVibration,
		Transport:  transport.KindSim,
		IntervalMs: 10,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := reg.Get(snap.ID)
		return len(s.Readings) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.Disconnect(snap.ID))

	s, ok := reg.Get(snap.ID)
	require.True(t, ok, "disconnected device stays visible")
	assert.Equal(t, registry.StatusDisconnected, s.Status)

	// No further readings after disconnect
	count := len(s.Readings)
	time.Sleep(50 * time.Millisecond)
	s, _ = reg.Get(snap.ID)
	assert.Equal(t, count, len(s.Readings))
}

func TestRemoveDeletesDevice(t *testing.T) {
	e, reg := newTestEngine(t)

	snap, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DeviceIoT,
		Transport:  transport.KindSim,
		IntervalMs: 10,
	})
	require.NoError(t, err)

	e.Remove(snap.ID)
	_, ok := reg.Get(snap.ID)
	assert.False(t, ok)

	// Removing again is harmless
	e.Remove(snap.ID)
}

func TestDisconnectUnknownDevice(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Disconnect("missing")
	assert.True(t, errors.Is(err, errors.ErrDeviceNotFound))
}

func TestCloseStopsAllAdapters(t *testing.T) {
	e, reg := newTestEngine(t)

	for i := 0; i < 3; i++ {
		_, err := e.Connect(context.Background(), ConnectRequest{
			DeviceType: telemetry.DevicePCB,
			Transport:  transport.KindSim,
			IntervalMs: 10,
		})
		require.NoError(t, err)
	}

	require.NoError(t, e.Close())
	for _, s := range reg.List() {
		assert.Equal(t, registry.StatusDisconnected, s.Status)
	}

	// Engine refuses new connections after Close
	_, err := e.Connect(context.Background(), ConnectRequest{
		DeviceType: telemetry.DevicePCB,
		Transport:  transport.KindSim,
	})
	assert.Error(t, err)
}
