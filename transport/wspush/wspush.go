// Package wspush connects to a device's WebSocket endpoint and forwards
// pushed frames as raw telemetry chunks. There is no automatic reconnect: a
// dropped stream surfaces as a disconnect and the operator reconnects,
// which registers a fresh device.
package wspush

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/transport"
)

const dialTimeout = 10 * time.Second

// Config holds WebSocket connection settings.
type Config struct {
	// URL of the device endpoint, ws:// or wss://.
	URL string
	// Header carries optional auth headers for the handshake.
	Header http.Header
}

// Adapter holds one client connection.
type Adapter struct {
	config Config
	onData transport.DataFunc
	onErr  transport.ErrorFunc
	logger *slog.Logger

	conn      *websocket.Conn
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ transport.Adapter = (*Adapter)(nil)

// New creates a WebSocket adapter. onErr may be nil.
func New(config Config, onData transport.DataFunc, onErr transport.ErrorFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		config: config,
		onData: onData,
		onErr:  onErr,
		logger: logger,
	}
}

// Kind returns the transport type.
func (a *Adapter) Kind() transport.Kind { return transport.KindWebSocket }

// Open dials the endpoint and starts reading frames.
func (a *Adapter) Open(ctx context.Context) error {
	if a.config.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocket", "Open", "url required")
	}
	if !a.started.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "WebSocket", "Open", "dial")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, a.config.URL, a.config.Header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return errors.WrapTransient(err, "WebSocket", "Open", "dial")
	}
	a.conn = conn

	a.logger.Info("websocket connected", "url", a.config.URL)

	a.wg.Add(1)
	go a.readLoop()
	return nil
}

func (a *Adapter) readLoop() {
	defer a.wg.Done()

	for {
		_, payload, err := a.conn.ReadMessage()
		if err != nil {
			if a.closed.Load() {
				return
			}
			a.logger.Warn("websocket stream ended", "url", a.config.URL, "error", err)
			if a.onErr != nil {
				a.onErr(errors.Wrap(errors.ErrConnectionLost, "WebSocket", "readLoop", "read frame"))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}
		a.onData(string(payload))
	}
}

// Close sends a best-effort close frame and tears down the connection.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		if a.conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = a.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = a.conn.Close()
		}
		a.wg.Wait()
	})
	return nil
}
