// Package mqttsub subscribes to a broker topic and forwards message
// payloads as raw telemetry chunks.
package mqttsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/transport"
)

const connectTimeout = 10 * time.Second

// Config holds broker connection settings.
type Config struct {
	// Broker is the broker URL, e.g. tcp://host:1883 or ws://host:9001.
	Broker string
	// Topic to subscribe to. Wildcards are allowed.
	Topic string
	// ClientID defaults to a timestamped pulseboard id.
	ClientID string
	Username string
	Password string
	// QoS for the subscription, 0 by default.
	QoS byte
}

// Adapter subscribes to one topic on one broker.
type Adapter struct {
	config Config
	onData transport.DataFunc
	onErr  transport.ErrorFunc
	logger *slog.Logger

	client     mqtt.Client
	newClient  func(*mqtt.ClientOptions) mqtt.Client
	started    atomic.Bool
	closed     atomic.Bool
	subscribed atomic.Bool
	closeOnce  sync.Once
}

var _ transport.Adapter = (*Adapter)(nil)

// New creates an MQTT adapter. onErr may be nil.
func New(config Config, onData transport.DataFunc, onErr transport.ErrorFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		config:    config,
		onData:    onData,
		onErr:     onErr,
		logger:    logger,
		newClient: mqtt.NewClient,
	}
}

// Kind returns the transport type.
func (a *Adapter) Kind() transport.Kind { return transport.KindMQTT }

// Open connects to the broker and subscribes before returning, so a
// subscription the broker rejects fails the open instead of leaving a
// silently deaf device. The paho client auto-reconnects; the OnConnect
// handler only resubscribes after a reconnect.
func (a *Adapter) Open(ctx context.Context) error {
	if a.config.Broker == "" || a.config.Topic == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "MQTT", "Open", "broker and topic required")
	}
	if !a.started.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "MQTT", "Open", "connect")
	}

	clientID := a.config.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("pulseboard-%d", time.Now().UnixNano())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(a.config.Broker)
	opts.SetClientID(clientID)
	if a.config.Username != "" {
		opts.SetUsername(a.config.Username)
		opts.SetPassword(a.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// The first subscribe happens synchronously in Open.
		if !a.subscribed.Load() {
			return
		}
		if err := a.subscribe(c); err != nil {
			a.logger.Error("mqtt resubscribe failed", "topic", a.config.Topic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if a.closed.Load() {
			return
		}
		a.logger.Warn("mqtt connection lost, reconnecting", "broker", a.config.Broker, "error", err)
	})

	a.client = a.newClient(opts)

	token := a.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.WrapTransient(errors.ErrConnectFailed, "MQTT", "Open", "connect timeout")
	}
	if err := token.Error(); err != nil {
		return errors.WrapTransient(err, "MQTT", "Open", "connect")
	}

	select {
	case <-ctx.Done():
		a.client.Disconnect(0)
		return errors.Wrap(ctx.Err(), "MQTT", "Open", "connect")
	default:
	}

	if err := a.subscribe(a.client); err != nil {
		a.client.Disconnect(250)
		return errors.Wrap(err, "MQTT", "Open", "subscribe")
	}
	a.subscribed.Store(true)

	a.logger.Info("mqtt subscribed", "broker", a.config.Broker, "topic", a.config.Topic)
	return nil
}

// subscribe runs once in Open and again after every reconnect.
func (a *Adapter) subscribe(c mqtt.Client) error {
	token := c.Subscribe(a.config.Topic, a.config.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if a.closed.Load() {
			return
		}
		a.onData(string(msg.Payload()))
	})
	if !token.WaitTimeout(connectTimeout) {
		return errors.WrapTransient(errors.ErrConnectFailed, "MQTT", "subscribe", "subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrConnectFailed, err), "MQTT", "subscribe", "subscribe")
	}
	return nil
}

// Close unsubscribes and disconnects.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		if a.client != nil && a.client.IsConnectionOpen() {
			_ = a.client.Unsubscribe(a.config.Topic).WaitTimeout(time.Second)
		}
		if a.client != nil {
			a.client.Disconnect(250)
		}
	})
	return nil
}
