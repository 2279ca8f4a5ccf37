package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// dialHub wires a real WebSocket pair into the hub and starts a minimal
// write pump, returning the client-side connection.
func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := h.Register(conn)
		go func() {
			defer conn.Close()
			for msg := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.Unregister(client)
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesClient(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	conn := dialHub(t, h)

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	h.Broadcast(EventReading, map[string]any{"deviceId": "d1", "temperature": 22.5})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, EventReading, msg.Event)
	assert.NotEmpty(t, msg.TS)

	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "d1", data["deviceId"])
}

func TestBroadcastWithNoClients(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	// Must not block or panic
	for i := 0; i < 10; i++ {
		h.Broadcast(EventReading, map[string]any{"n": i})
	}
	assert.Zero(t, h.ClientCount())
}

func TestUnregister(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	conn := dialHub(t, h)
	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	h.Broadcast(EventReading, map[string]any{"x": 1})

	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := NewHub(nil)
	dialHub(t, h)

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	h.Close()
	h.Close() // idempotent

	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}
