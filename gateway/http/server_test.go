package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pulseboard/chat"
	"github.com/c360/pulseboard/engine"
	"github.com/c360/pulseboard/health"
	"github.com/c360/pulseboard/metric"
	"github.com/c360/pulseboard/realtime"
	"github.com/c360/pulseboard/registry"
	"github.com/c360/pulseboard/telemetry"
)

// memStore backs the chat transcript in tests.
type memStore struct {
	data map[string]string
}

func (s *memStore) Get(key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(key, value string) error {
	s.data[key] = value
	return nil
}

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	hub := realtime.NewHub(nil)
	t.Cleanup(hub.Close)

	eng := engine.New(reg, hub)
	t.Cleanup(func() { _ = eng.Close() })

	monitor := health.NewMonitor()
	monitor.Register("registry", func() error { return nil })

	s := NewServer(Deps{
		Registry:   reg,
		Engine:     eng,
		Hub:        hub,
		Transcript: chat.NewTranscript(&memStore{data: make(map[string]string)}, nil),
		Generator:  telemetry.NewGeneratorWithSeed(42),
		Monitor:    monitor,
		Metrics:    metric.NewMetricsRegistry(),
	})
	return s, reg
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestHealthDegraded(t *testing.T) {
	s, _ := newTestServer(t)
	s.monitor.Register("store", func() error { return fmt.Errorf("down") })

	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary telemetry.DashboardSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalPCBs)
	assert.Equal(t, 10, summary.TotalIoTDevices)
}

func TestPCBEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/pcb", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pcb telemetry.PCBMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pcb))
	assert.NotEmpty(t, pcb.ComponentHealth)
	assert.Greater(t, pcb.Temperature, 0.0)
}

func TestIoTEdgeEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/iot-edge", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var devices []telemetry.IoTEdgeMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	assert.Len(t, devices, 10)
}

func TestDeviceLifecycleOverHTTP(t *testing.T) {
	s, reg := newTestServer(t)

	// Connect a simulated device
	w := doJSON(t, s, http.MethodPost, "/api/devices/connect", map[string]any{
		"deviceType": "pcb",
		"transport":  "sim",
		"intervalMs": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var snap registry.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, registry.StatusConnected, snap.Status)

	// Listed
	w = doJSON(t, s, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []registry.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// Detail picks up readings
	require.Eventually(t, func() bool {
		d, ok := reg.Get(snap.ID)
		return ok && len(d.Readings) > 0
	}, 2*time.Second, 10*time.Millisecond)

	w = doJSON(t, s, http.MethodGet, "/api/devices/"+snap.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Disconnect keeps the device, remove deletes it
	w = doJSON(t, s, http.MethodPost, "/api/devices/"+snap.ID+"/disconnect", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/devices/"+snap.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/devices/"+snap.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectRejectsBadTransport(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/devices/connect", map[string]any{
		"deviceType": "pcb",
		"transport":  "smoke-signal",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectRejectsMissingMQTTConfig(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/devices/connect", map[string]any{
		"deviceType": "relay",
		"transport":  "mqtt",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisconnectUnknownDevice(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/devices/missing/disconnect", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatFlow(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{"message": "help"})
	require.Equal(t, http.StatusOK, w.Code)

	var reply chat.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, chat.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "Ask me about")

	w = doJSON(t, s, http.MethodGet, "/api/chat/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []chat.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)

	w = doJSON(t, s, http.MethodDelete, "/api/chat/history", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestChatRequiresMessage(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatVoiceToggle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/chat/voice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")

	w = doJSON(t, s, http.MethodPut, "/api/chat/voice", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/chat/voice", nil)
	assert.Contains(t, w.Body.String(), "true")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketPush(t *testing.T) {
	s, _ := newTestServer(t)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	s.hub.Broadcast(realtime.EventReading, map[string]any{"deviceId": "d1"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), realtime.EventReading)
}
