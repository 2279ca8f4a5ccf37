package serialport

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/transport"
)

// fakePort feeds canned bytes then a terminal error through the serial.Port
// interface. Only Read and Close are exercised by the reader.
type fakePort struct {
	serial.Port
	data   []byte
	errAt  error
	closed bool
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if len(p.data) == 0 {
		return 0, p.errAt
	}
	n := copy(buf, p.data)
	p.data = p.data[n:]
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestOpenRequiresPort(t *testing.T) {
	a := New(Config{}, func(string) {}, nil, nil)
	err := a.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestKind(t *testing.T) {
	a := New(Config{Port: "/dev/ttyUSB0"}, func(string) {}, nil, nil)
	assert.Equal(t, transport.KindSerial, a.Kind())
}

func TestOpenRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(Config{Port: "/dev/ttyUSB0"}, func(string) {}, nil, nil)
	err := a.Open(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCloseBeforeOpen(t *testing.T) {
	a := New(Config{Port: "/dev/ttyUSB0"}, func(string) {}, nil, nil)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestStreamEndReportsConnectionLost(t *testing.T) {
	lost := make(chan error, 1)
	a := New(Config{Port: "/dev/ttyUSB0"},
		func(string) {},
		func(err error) { lost <- err },
		nil)
	a.port = &fakePort{data: []byte("temp: 25.5\n"), errAt: io.EOF}

	a.wg.Add(1)
	go a.readLoop()

	select {
	case err := <-lost:
		assert.True(t, errors.Is(err, errors.ErrConnectionLost))
	case <-time.After(time.Second):
		t.Fatal("stream end was not reported")
	}
	a.wg.Wait()
}

func TestReadErrorReportsConnectionLost(t *testing.T) {
	lost := make(chan error, 1)
	a := New(Config{Port: "/dev/ttyUSB0"},
		func(string) {},
		func(err error) { lost <- err },
		nil)
	a.port = &fakePort{errAt: io.ErrUnexpectedEOF}

	a.wg.Add(1)
	go a.readLoop()

	select {
	case err := <-lost:
		assert.True(t, errors.Is(err, errors.ErrConnectionLost))
	case <-time.After(time.Second):
		t.Fatal("read error was not reported")
	}
	a.wg.Wait()
}

func TestStreamEndAfterCloseStaysSilent(t *testing.T) {
	called := make(chan struct{}, 1)
	a := New(Config{Port: "/dev/ttyUSB0"},
		func(string) {},
		func(error) { called <- struct{}{} },
		nil)
	a.port = &fakePort{errAt: io.EOF}
	a.closed.Store(true)

	a.wg.Add(1)
	go a.readLoop()
	a.wg.Wait()

	select {
	case <-called:
		t.Fatal("error callback fired after close")
	default:
	}
}
