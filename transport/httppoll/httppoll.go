// Package httppoll fetches a device's HTTP endpoint on a fixed interval and
// forwards each response body as one raw telemetry chunk.
package httppoll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/transport"
)

const (
	// DefaultInterval between polls.
	DefaultInterval = 2 * time.Second

	// maxBodySize caps how much of a response we read; device endpoints
	// return small JSON documents.
	maxBodySize = 1 << 20
)

// Config holds polling settings.
type Config struct {
	// URL of the device endpoint.
	URL string
	// Interval between polls, DefaultInterval when zero.
	Interval time.Duration
	// Client overrides the HTTP client, mostly for tests.
	Client *http.Client
}

// Adapter polls one endpoint.
type Adapter struct {
	config Config
	onData transport.DataFunc
	onErr  transport.ErrorFunc
	logger *slog.Logger
	client *http.Client

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

var _ transport.Adapter = (*Adapter)(nil)

// New creates an HTTP polling adapter. onErr may be nil.
func New(config Config, onData transport.DataFunc, onErr transport.ErrorFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Adapter{
		config:   config,
		onData:   onData,
		onErr:    onErr,
		logger:   logger,
		client:   client,
		shutdown: make(chan struct{}),
	}
}

// Kind returns the transport type.
func (a *Adapter) Kind() transport.Kind { return transport.KindHTTP }

// Open probes the endpoint once; a failed probe fails the connect. On
// success the first body is delivered immediately and polling starts.
// Individual poll failures after that are tolerated as transient.
func (a *Adapter) Open(ctx context.Context) error {
	if a.config.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "HTTPPoll", "Open", "url required")
	}
	if !a.started.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "HTTPPoll", "Open", "probe endpoint")
	}

	body, err := a.fetch(ctx)
	if err != nil {
		return errors.WrapTransient(err, "HTTPPoll", "Open", "probe endpoint")
	}
	a.onData(body)

	interval := a.config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	a.wg.Add(1)
	go a.pollLoop(interval)
	return nil
}

func (a *Adapter) pollLoop(interval time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.shutdown:
			return
		case <-ticker.C:
			body, err := a.fetch(context.Background())
			if err != nil {
				// Transient: keep polling, the device may come back
				a.logger.Warn("poll failed", "url", a.config.URL, "error", err)
				continue
			}
			select {
			case <-a.shutdown:
				return
			default:
			}
			a.onData(body)
		}
	}
}

func (a *Adapter) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Close stops the poll loop. No data callback fires after it returns.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		close(a.shutdown)
		a.wg.Wait()
	})
	return nil
}
