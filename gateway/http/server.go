// Package http serves the dashboard API: device lifecycle, fleet metrics,
// chat, host stats, realtime push, and Prometheus metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/c360/pulseboard/chat"
	"github.com/c360/pulseboard/config"
	"github.com/c360/pulseboard/engine"
	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/health"
	"github.com/c360/pulseboard/metric"
	"github.com/c360/pulseboard/realtime"
	"github.com/c360/pulseboard/registry"
	"github.com/c360/pulseboard/telemetry"
)

// Server is the HTTP gateway.
type Server struct {
	cfg        *config.Safe
	registry   *registry.Registry
	engine     *engine.Engine
	hub        *realtime.Hub
	transcript *chat.Transcript
	generator  *telemetry.Generator
	monitor    *health.Monitor
	metrics    *metric.MetricsRegistry
	logger     *slog.Logger

	router *gin.Engine
	srv    *http.Server

	serverCounters
}

// Deps carries the server's collaborators. Metrics, monitor, and transcript
// may be nil; the matching endpoints then report unavailable.
type Deps struct {
	Config     *config.Safe
	Registry   *registry.Registry
	Engine     *engine.Engine
	Hub        *realtime.Hub
	Transcript *chat.Transcript
	Generator  *telemetry.Generator
	Monitor    *health.Monitor
	Metrics    *metric.MetricsRegistry
	Logger     *slog.Logger
}

// NewServer builds the gateway and its routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gen := deps.Generator
	if gen == nil {
		gen = telemetry.NewGenerator()
	}

	s := &Server{
		cfg:        deps.Config,
		registry:   deps.Registry,
		engine:     deps.Engine,
		hub:        deps.Hub,
		transcript: deps.Transcript,
		generator:  gen,
		monitor:    deps.Monitor,
		metrics:    deps.Metrics,
		logger:     logger,
	}
	s.initRouter()
	return s
}

func (s *Server) initRouter() {
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/summary", s.handleSummary)
		api.GET("/pcb", s.handlePCB)
		api.GET("/iot-edge", s.handleIoTEdge)
		api.GET("/system", s.handleSystem)

		api.GET("/devices", s.handleDevicesList)
		api.POST("/devices/connect", s.handleDeviceConnect)
		api.GET("/devices/:id", s.handleDeviceDetail)
		api.POST("/devices/:id/disconnect", s.handleDeviceDisconnect)
		api.DELETE("/devices/:id", s.handleDeviceRemove)

		api.POST("/chat", s.handleChatAsk)
		api.GET("/chat/history", s.handleChatHistory)
		api.DELETE("/chat/history", s.handleChatClear)
		api.GET("/chat/voice", s.handleChatVoiceGet)
		api.PUT("/chat/voice", s.handleChatVoiceSet)
	}

	s.router.GET("/ws", s.handleWS)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Router exposes the handler tree, mostly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := ":8080"
	if s.cfg != nil {
		addr = s.cfg.Get().Server.ListenAddr
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.startTime.Store(time.Now().UnixNano())

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "Gateway", "Start", "serve")
	}
}

// Stop drains in-flight requests within the timeout.
func (s *Server) Stop(timeout time.Duration) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.requestsTotal.Add(1)
		s.lastRequest.Store(start.UnixNano())
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
