// Package config loads the process configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c360/streamfan/errors"
)

// EnvPrefix namespaces the override variables, e.g. STREAMFAN_NATS_URL.
const EnvPrefix = "STREAMFAN"

// Config is the complete process configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Stream  StreamConfig  `json:"stream"`
	NATS    NATSConfig    `json:"nats"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds the WebSocket listener settings.
type ServerConfig struct {
	Addr           string   `json:"addr"`
	Path           string   `json:"path"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// StreamConfig holds per-connection limits and cadences.
type StreamConfig struct {
	MaxChannels          int      `json:"max_channels"`
	StateRefreshInterval Duration `json:"state_refresh_interval"`
	StateCacheTTL        Duration `json:"state_cache_ttl"`
}

// NATSConfig holds the optional cross-node fanout settings.
type NATSConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// MetricsConfig holds the Prometheus exposure settings.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingConfig holds the slog settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`
	// Format is "json" or "text".
	Format string `json:"format,omitempty"`
}

// Duration unmarshals either a JSON number of nanoseconds or a Go duration
// string like "10s".
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(data))
	}
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":3000",
			Path: "/streaming",
		},
		Stream: StreamConfig{
			MaxChannels:          32,
			StateRefreshInterval: Duration(10 * time.Second),
			StateCacheTTL:        Duration(10 * time.Second),
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the file at path (optional), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse config file")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvPrefix + "_SERVER_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv(EnvPrefix + "_SERVER_PATH"); val != "" {
		cfg.Server.Path = val
	}
	if val := os.Getenv(EnvPrefix + "_SERVER_ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = strings.Split(val, ",")
	}
	if val := os.Getenv(EnvPrefix + "_STREAM_MAX_CHANNELS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Stream.MaxChannels = n
		}
	}
	if val := os.Getenv(EnvPrefix + "_STREAM_STATE_REFRESH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Stream.StateRefreshInterval = Duration(d)
		}
	}
	if val := os.Getenv(EnvPrefix + "_NATS_ENABLED"); val != "" {
		cfg.NATS.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv(EnvPrefix + "_NATS_URL"); val != "" {
		cfg.NATS.URL = val
	}
	if val := os.Getenv(EnvPrefix + "_METRICS_ADDR"); val != "" {
		cfg.Metrics.Addr = val
	}
	if val := os.Getenv(EnvPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "check server addr")
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return errors.WrapInvalid(
			fmt.Errorf("server path %q must start with /", c.Server.Path),
			"config", "Validate", "check server path")
	}
	if c.Stream.MaxChannels <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("max_channels must be positive, got %d", c.Stream.MaxChannels),
			"config", "Validate", "check channel limit")
	}
	if c.Stream.StateRefreshInterval <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("state_refresh_interval must be positive"),
			"config", "Validate", "check refresh interval")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "check nats url")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log level %q", c.Logging.Level),
			"config", "Validate", "check log level")
	}
	return nil
}
