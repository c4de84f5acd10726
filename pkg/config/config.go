// Package config loads the relayd server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getrelayd/relayd/pkg/broker"
)

// Config is the top-level server configuration.
type Config struct {
	// Listen is the public listen address serving /events and /ws.
	Listen string `yaml:"listen"`

	// AdminListen is the admin API listen address. Empty disables the
	// admin server.
	AdminListen string `yaml:"adminListen"`

	// Metrics enables the Prometheus endpoint on the admin server.
	Metrics bool `yaml:"metrics"`

	// HeartbeatInterval is the keep-alive broadcast period, as a Go
	// duration string ("30s").
	HeartbeatInterval string `yaml:"heartbeatInterval"`

	// ConnectionTimeout is the advisory idle ceiling, as a Go duration
	// string ("5m").
	ConnectionTimeout string `yaml:"connectionTimeout"`

	// MaxConnectionsPerUser is the per-user admission quota.
	MaxConnectionsPerUser int `yaml:"maxConnectionsPerUser"`

	// MaxMessageSize is the inbound WebSocket frame limit in bytes.
	MaxMessageSize int64 `yaml:"maxMessageSize"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the output format: text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:      ":4480",
		AdminListen: ":4490",
		Metrics:     true,
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates a YAML configuration file. Fields left unset
// fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values that cannot be checked by the YAML layer.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if _, err := c.heartbeatInterval(); err != nil {
		return err
	}
	if _, err := c.connectionTimeout(); err != nil {
		return err
	}
	if c.MaxConnectionsPerUser < 0 {
		return fmt.Errorf("config: maxConnectionsPerUser must not be negative")
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("config: maxMessageSize must not be negative")
	}
	return nil
}

func (c *Config) heartbeatInterval() (time.Duration, error) {
	return parseDuration("heartbeatInterval", c.HeartbeatInterval)
}

func (c *Config) connectionTimeout() (time.Duration, error) {
	return parseDuration("connectionTimeout", c.ConnectionTimeout)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", field, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", field)
	}
	return d, nil
}

// BrokerOptions converts the configuration into broker options. Zero
// fields keep the broker defaults. Call Validate first; invalid
// durations are treated as unset here.
func (c *Config) BrokerOptions() broker.Options {
	hb, _ := c.heartbeatInterval()
	ct, _ := c.connectionTimeout()
	return broker.Options{
		HeartbeatInterval:     hb,
		ConnectionTimeout:     ct,
		MaxConnectionsPerUser: c.MaxConnectionsPerUser,
		MaxMessageSize:        c.MaxMessageSize,
	}
}
