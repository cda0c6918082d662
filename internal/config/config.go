// ABOUTME: Configuration loading and parsing for chatter-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete chatter-relay configuration
type Config struct {
	Broker     BrokerConfig     `yaml:"broker"`
	Completion CompletionConfig `yaml:"completion"`
	Input      InputConfig      `yaml:"input"`
	Relay      RelayConfig      `yaml:"relay"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BrokerConfig holds the MQTT broker connection parameters
type BrokerConfig struct {
	URI      string `yaml:"uri"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CompletionConfig holds the completion-service parameters
type CompletionConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // empty uses the library default endpoint
	Model   string `yaml:"model"`
}

// InputConfig holds the button input line parameters
type InputConfig struct {
	Pin          string        `yaml:"pin"`
	PollInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	PollIntervalRaw string `yaml:"poll_interval"`
}

// RelayConfig holds the conversation relay parameters
type RelayConfig struct {
	InitialPrompt  string        `yaml:"initial_prompt"`
	BufferCapacity int           `yaml:"buffer_capacity"`
	QueueSize      int           `yaml:"queue_size"`
	MaxTurns       int           `yaml:"max_turns"` // 0 = unbounded
	EchoGuardTTL   time.Duration `yaml:"-"`

	EchoGuardTTLRaw string `yaml:"echo_guard_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Broker.URI == "" {
		return fmt.Errorf("broker.uri is required")
	}

	if c.Completion.APIKey == "" {
		return fmt.Errorf("completion.api_key is required")
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion.model is required")
	}

	if c.Input.Pin == "" {
		return fmt.Errorf("input.pin is required")
	}

	if c.Relay.InitialPrompt == "" {
		return fmt.Errorf("relay.initial_prompt is required")
	}
	if c.Relay.BufferCapacity < 0 {
		return fmt.Errorf("relay.buffer_capacity must not be negative")
	}
	if c.Relay.MaxTurns < 0 {
		return fmt.Errorf("relay.max_turns must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Input.PollIntervalRaw != "" {
		cfg.Input.PollInterval, err = time.ParseDuration(cfg.Input.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Input.PollIntervalRaw, err)
		}
	}

	if cfg.Relay.EchoGuardTTLRaw != "" {
		cfg.Relay.EchoGuardTTL, err = time.ParseDuration(cfg.Relay.EchoGuardTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing echo_guard_ttl %q: %w", cfg.Relay.EchoGuardTTLRaw, err)
		}
	}

	return nil
}
