// Package serialport streams newline-delimited telemetry from a local
// serial port (USB UART, typical for ESP32 and bench PCBs).
package serialport

import (
	"bufio"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/transport"
)

// DefaultBaudRate matches common ESP32 firmware output.
const DefaultBaudRate = 115200

// Config holds serial connection settings.
type Config struct {
	// Port is the device path, e.g. /dev/ttyUSB0 or COM3.
	Port string
	// BaudRate defaults to 115200 when zero.
	BaudRate int
}

// Adapter reads lines from a serial port and forwards them raw.
type Adapter struct {
	config Config
	onData transport.DataFunc
	onErr  transport.ErrorFunc
	logger *slog.Logger

	port      serial.Port
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

var _ transport.Adapter = (*Adapter)(nil)

// New creates a serial adapter. onErr may be nil.
func New(config Config, onData transport.DataFunc, onErr transport.ErrorFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		config:   config,
		onData:   onData,
		onErr:    onErr,
		logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// Kind returns the transport type.
func (a *Adapter) Kind() transport.Kind { return transport.KindSerial }

// Open opens the port and starts the line reader. Permission failures map to
// ErrPermissionDenied so callers can tell an access problem from an absent
// or busy device.
func (a *Adapter) Open(ctx context.Context) error {
	if a.config.Port == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Serial", "Open", "port path required")
	}
	if !a.started.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "Serial", "Open", "open port")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "Serial", "Open", "open port")
	}

	baud := a.config.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(a.config.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return errors.Wrap(classifyOpenError(err), "Serial", "Open", "open port")
	}
	a.port = port

	a.logger.Info("serial port opened", "port", a.config.Port, "baud", baud)

	a.wg.Add(1)
	go a.readLoop()
	return nil
}

// classifyOpenError maps driver errors onto the shared error taxonomy.
func classifyOpenError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PermissionDenied {
		return errors.ErrPermissionDenied
	}
	return errors.WrapTransient(err, "Serial", "Open", "connect")
}

func (a *Adapter) readLoop() {
	defer a.wg.Done()

	scanner := bufio.NewScanner(a.port)
	for scanner.Scan() {
		select {
		case <-a.shutdown:
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		a.onData(line)
	}

	// A clean EOF (device unplugged, scanner.Err() == nil) ends the stream
	// just like a read error: the owner must see the connection as lost.
	if a.closed.Load() {
		return
	}
	if err := scanner.Err(); err != nil {
		a.logger.Warn("serial read failed", "port", a.config.Port, "error", err)
	} else {
		a.logger.Warn("serial stream ended", "port", a.config.Port)
	}
	if a.onErr != nil {
		a.onErr(errors.Wrap(errors.ErrConnectionLost, "Serial", "readLoop", "read line"))
	}
}

// Close closes the port and waits for the reader to exit.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		close(a.shutdown)
		if a.port != nil {
			// Unblocks the scanner's pending Read
			_ = a.port.Close()
		}
		a.wg.Wait()
	})
	return nil
}
