package mqttsub

import (
	"context"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/transport"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient stands in for a broker connection. subscribeErr simulates a
// broker rejecting the subscription (e.g. an ACL denial).
type fakeClient struct {
	subscribeErr error
	subscribes   int
	disconnected bool
}

func (c *fakeClient) IsConnected() bool       { return !c.disconnected }
func (c *fakeClient) IsConnectionOpen() bool  { return !c.disconnected }
func (c *fakeClient) Connect() mqtt.Token     { return &fakeToken{} }
func (c *fakeClient) Disconnect(quiesce uint) { c.disconnected = true }

func (c *fakeClient) Publish(string, byte, bool, interface{}) mqtt.Token { return &fakeToken{} }

func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	c.subscribes++
	return &fakeToken{err: c.subscribeErr}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token        { return &fakeToken{} }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func newFakeAdapter(t *testing.T, client *fakeClient) *Adapter {
	t.Helper()
	a := New(Config{Broker: "tcp://localhost:1883", Topic: "devices/+/telemetry"},
		func(string) {}, nil, nil)
	a.newClient = func(*mqtt.ClientOptions) mqtt.Client { return client }
	return a
}

func TestOpenRequiresBrokerAndTopic(t *testing.T) {
	cases := []Config{
		{},
		{Broker: "tcp://localhost:1883"},
		{Topic: "devices/+/telemetry"},
	}
	for _, cfg := range cases {
		a := New(cfg, func(string) {}, nil, nil)
		err := a.Open(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "config %+v", cfg)
	}
}

func TestKind(t *testing.T) {
	a := New(Config{}, func(string) {}, nil, nil)
	assert.Equal(t, transport.KindMQTT, a.Kind())
}

func TestCloseBeforeOpen(t *testing.T) {
	a := New(Config{Broker: "tcp://localhost:1883", Topic: "t"}, func(string) {}, nil, nil)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestOpenSubscribesBeforeReturning(t *testing.T) {
	client := &fakeClient{}
	a := newFakeAdapter(t, client)

	require.NoError(t, a.Open(context.Background()))
	assert.Equal(t, 1, client.subscribes)
}

func TestOpenFailsWhenSubscribeRejected(t *testing.T) {
	client := &fakeClient{subscribeErr: errors.New("not authorized")}
	a := newFakeAdapter(t, client)

	err := a.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConnectFailed))
	assert.True(t, client.disconnected, "rejected subscribe must release the connection")
}

func TestSubscribeFailureIsTransient(t *testing.T) {
	client := &fakeClient{subscribeErr: errors.New("rejected")}
	a := newFakeAdapter(t, client)

	err := a.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
