// ABOUTME: Entry point for the chatter-relay device daemon
// ABOUTME: Bridges a physical button, an MQTT broker and a completion service

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/chatter-relay/internal/config"
	"github.com/2389/chatter-relay/internal/device"
	"github.com/2389/chatter-relay/internal/relay"
	"github.com/2389/chatter-relay/internal/sampler"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
        _           _   _                            _
   ___ | |__   __ _| |_| |_ ___ _ __      _ __ ___| | __ _ _   _
  / __|| '_ \ / _' | __| __/ _ \ '__|____| '__/ _ \ |/ _' | | | |
 | (__ | | | | (_| | |_| ||  __/ | |_____| | |  __/ | (_| | |_| |
  \___||_| |_|\__,_|\__|\__\___|_|       |_|  \___|_|\__,_|\__, |
                                                           |___/
`

// getConfigPath returns the path to the relay config file.
// Priority: CHATTER_CONFIG env var > XDG_CONFIG_HOME/chatter/relay.yaml > ~/.config/chatter/relay.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CHATTER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "relay.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "chatter", "relay.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: chatter-relay <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the relay daemon")
		fmt.Println("  version   Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Broker:  %s\n", cfg.Broker.URI)
	green.Print("    ▶ ")
	fmt.Printf("Model:   %s\n", cfg.Completion.Model)
	green.Print("    ▶ ")
	fmt.Printf("Button:  %s (polled)\n", cfg.Input.Pin)
	fmt.Println()

	logger.Info("starting chatter-relay",
		"config", configPath,
		"broker_uri", cfg.Broker.URI,
		"pin", cfg.Input.Pin,
		"reply_topic", relay.TopicReplies,
	)

	line, err := sampler.OpenLine(cfg.Input.Pin)
	if err != nil {
		return fmt.Errorf("opening input line: %w", err)
	}

	d := device.New(cfg, line, logger)
	return d.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
