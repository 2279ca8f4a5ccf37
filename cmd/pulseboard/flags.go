package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	ListenAddr  string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("PULSEBOARD_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: PULSEBOARD_CONFIG)")

	flag.StringVar(&cfg.ListenAddr, "listen",
		getEnv("PULSEBOARD_LISTEN", ""),
		"Gateway listen address, overrides config (env: PULSEBOARD_LISTEN)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("PULSEBOARD_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: PULSEBOARD_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("PULSEBOARD_LOG_FORMAT", ""),
		"Log format: json, text (env: PULSEBOARD_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help and exit")

	flag.Parse()
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, Version)
}

func printUsage() {
	fmt.Printf("Usage: %s [options]\n\nOptions:\n", appName)
	flag.PrintDefaults()
}
