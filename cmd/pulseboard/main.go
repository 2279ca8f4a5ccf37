// Package main implements the entry point for PulseBoard, a telemetry
// dashboard service for PCB and IoT edge devices: serial, MQTT, HTTP, and
// WebSocket device transports feed bounded per-device reading history,
// served over a REST and realtime WebSocket API with a metrics-aware chat
// assistant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/pulseboard/chat"
	"github.com/c360/pulseboard/config"
	"github.com/c360/pulseboard/engine"
	gateway "github.com/c360/pulseboard/gateway/http"
	"github.com/c360/pulseboard/health"
	"github.com/c360/pulseboard/localstore"
	"github.com/c360/pulseboard/metric"
	"github.com/c360/pulseboard/realtime"
	"github.com/c360/pulseboard/registry"
	"github.com/c360/pulseboard/telemetry"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "pulseboard"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if cliCfg.ShowVersion {
		printVersion()
		return nil
	}
	if cliCfg.ShowHelp {
		printUsage()
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, cliCfg)

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	logger.Info("starting",
		"listen_addr", cfg.Server.ListenAddr,
		"history_size", cfg.Devices.HistorySize,
		"config", cliCfg.ConfigPath)

	safeCfg := config.NewSafe(cfg)
	if cliCfg.ConfigPath != "" {
		err := config.Watch(cliCfg.ConfigPath, logger, func(next *config.Config) error {
			safeCfg.Update(next)
			return nil
		})
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		}
	}

	metricsRegistry := metric.NewMetricsRegistry()

	store, err := localstore.Open(cfg.Chat.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(
		registry.WithHistoryCapacity(cfg.Devices.HistorySize),
		registry.WithLogger(logger),
	)
	hub := realtime.NewHub(logger)
	defer hub.Close()

	engineMetrics, err := engine.NewMetrics(metricsRegistry)
	if err != nil {
		return err
	}
	eng := engine.New(reg, hub,
		engine.WithLogger(logger),
		engine.WithMetrics(engineMetrics),
		engine.WithDefaults(engine.Defaults{
			BaudRate:     cfg.Devices.BaudRate,
			PollInterval: time.Duration(cfg.Devices.PollIntervalMs) * time.Millisecond,
			SimInterval:  time.Duration(cfg.Devices.SimIntervalMs) * time.Millisecond,
		}),
	)
	defer eng.Close()

	monitor := health.NewMonitor()
	monitor.Register("store", func() error {
		_, _, err := store.Get("health-probe")
		return err
	})
	monitor.Register("registry", func() error {
		_ = reg.Count()
		return nil
	})
	monitor.Register("engine", func() error {
		if h := eng.Health(); !h.Healthy {
			return fmt.Errorf("engine closed after %d stream errors", h.ErrorCount)
		}
		return nil
	})

	server := gateway.NewServer(gateway.Deps{
		Config:     safeCfg,
		Registry:   reg,
		Engine:     eng,
		Hub:        hub,
		Transcript: chat.NewTranscript(store, logger),
		Generator:  telemetry.NewGenerator(),
		Monitor:    monitor,
		Metrics:    metricsRegistry,
		Logger:     logger,
	})

	if err := server.Initialize(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	if err := server.Stop(cfg.Server.ShutdownTimeout); err != nil {
		logger.Warn("gateway shutdown incomplete", "error", err)
	}
	logger.Info("stopped")
	return nil
}

func applyOverrides(cfg *config.Config, cli *CLIConfig) {
	if cli.ListenAddr != "" {
		cfg.Server.ListenAddr = cli.ListenAddr
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
}
