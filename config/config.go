// Package config loads service configuration from YAML and the environment
// and supports hot reload of the tunable parts.
package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/c360/pulseboard/errors"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Devices DevicesConfig `mapstructure:"devices"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig covers the HTTP gateway.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DevicesConfig holds connection defaults.
type DevicesConfig struct {
	// BaudRate default for serial connections.
	BaudRate int `mapstructure:"baud_rate"`
	// PollIntervalMs default for HTTP polling.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// SimIntervalMs default for simulated devices.
	SimIntervalMs int `mapstructure:"sim_interval_ms"`
	// HistorySize bounds per-device reading history.
	HistorySize int `mapstructure:"history_size"`
}

// ChatConfig covers the assistant's persistence.
type ChatConfig struct {
	// StorePath is the sqlite file holding chat state.
	StorePath string `mapstructure:"store_path"`
}

// LogConfig covers structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or text
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Devices: DevicesConfig{
			BaudRate:       115200,
			PollIntervalMs: 2000,
			SimIntervalMs:  2000,
			HistorySize:    50,
		},
		Chat: ChatConfig{
			StorePath: "data/pulseboard.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from path, layering file values over defaults
// and PULSEBOARD_* environment variables over both. An empty path returns
// the defaults with env overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("PULSEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("devices.baud_rate", d.Devices.BaudRate)
	v.SetDefault("devices.poll_interval_ms", d.Devices.PollIntervalMs)
	v.SetDefault("devices.sim_interval_ms", d.Devices.SimIntervalMs)
	v.SetDefault("devices.history_size", d.Devices.HistorySize)
	v.SetDefault("chat.store_path", d.Chat.StorePath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func (c *Config) validate() error {
	if c.Server.ListenAddr == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "validate", "server.listen_addr required")
	}
	if c.Devices.HistorySize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "validate", "devices.history_size must be positive")
	}
	if c.Devices.BaudRate <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "validate", "devices.baud_rate must be positive")
	}
	return nil
}

// ChangeCallback receives the freshly parsed configuration after a file
// change.
type ChangeCallback func(cfg *Config) error

// Watch reloads the file on change and hands the result to callback.
// Changes arriving within the debounce window are coalesced; a config that
// fails to parse or validate is logged and discarded, keeping the previous
// one active.
func Watch(path string, logger *slog.Logger, callback ChangeCallback) error {
	if logger == nil {
		logger = slog.Default()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Watch", "resolve config path")
	}

	v := viper.New()
	applyDefaults(v)
	v.SetConfigFile(absPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return errors.WrapInvalid(err, "Config", "Watch", "read config file")
	}

	var mu sync.Mutex
	var lastChange time.Time
	const debounce = 2 * time.Second

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write {
			return
		}
		mu.Lock()
		now := time.Now()
		if now.Sub(lastChange) < debounce {
			mu.Unlock()
			return
		}
		lastChange = now
		mu.Unlock()

		cfg := Default()
		if err := v.Unmarshal(cfg); err != nil {
			logger.Error("reloaded config unreadable, keeping previous", "path", e.Name, "error", err)
			return
		}
		if err := cfg.validate(); err != nil {
			logger.Error("reloaded config invalid, keeping previous", "path", e.Name, "error", err)
			return
		}
		if err := callback(cfg); err != nil {
			logger.Error("config reload rejected", "path", e.Name, "error", err)
			return
		}
		logger.Info("configuration reloaded", "path", e.Name)
	})
	v.WatchConfig()
	return nil
}
