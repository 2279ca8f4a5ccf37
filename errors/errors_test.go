package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapNilPassthrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, "comp", "method", "action"))
	assert.Nil(t, WrapTransient(nil, "comp", "method", "action"))
	assert.Nil(t, WrapInvalid(nil, "comp", "method", "action"))
	assert.Nil(t, WrapFatal(nil, "comp", "method", "action"))
}

func TestWrapFormat(t *testing.T) {
	base := New("boom")
	err := Wrap(base, "Serial", "Open", "request port")
	require.Error(t, err)
	assert.Equal(t, "Serial.Open: request port failed: boom", err.Error())
	assert.True(t, Is(err, base))
}

func TestClassifiedWrappers(t *testing.T) {
	base := New("boom")

	transient := WrapTransient(base, "HTTPPoll", "poll", "fetch")
	assert.True(t, IsTransient(transient))
	assert.False(t, IsFatal(transient))

	invalid := WrapInvalid(base, "MQTT", "Open", "validate config")
	assert.True(t, IsInvalid(invalid))
	assert.False(t, IsTransient(invalid))

	fatal := WrapFatal(base, "Serial", "read", "stream")
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsTransient(fatal))

	// Classification survives another layer of wrapping
	rewrapped := fmt.Errorf("outer: %w", transient)
	assert.True(t, IsTransient(rewrapped))
}

func TestIsConnectError(t *testing.T) {
	for _, sentinel := range []error{ErrUnsupported, ErrPermissionDenied, ErrInvalidConfig, ErrConnectFailed} {
		wrapped := Wrap(sentinel, "transport", "Open", "connect")
		assert.True(t, IsConnectError(wrapped), "expected %v to be a connect error", sentinel)
	}

	assert.False(t, IsConnectError(ErrTransientIO))
	assert.False(t, IsConnectError(nil))
}

func TestClassifyDefaults(t *testing.T) {
	// Unknown errors default to transient so callers retry
	assert.Equal(t, ErrorTransient, Classify(New("something odd")))
	assert.Equal(t, ErrorFatal, Classify(ErrStreamEnded))
	assert.Equal(t, ErrorInvalid, Classify(ErrInvalidConfig))
}

func TestTransientPatternMatching(t *testing.T) {
	assert.True(t, IsTransient(New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(New("service temporarily unavailable")))
	assert.False(t, IsTransient(New("malformed frame")))
}
