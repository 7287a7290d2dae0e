// Package config loads the shipper's TOML configuration, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Chichichkin/logshipper/internal/daemon"
)

// Service identifies one of the supported ingestion vendors.
type Service string

const (
	ServiceAxiom       Service = "axiom"
	ServiceBetterStack Service = "betterstack"
	ServiceDatadog     Service = "datadog"
	ServiceLoki        Service = "loki"
)

// Services lists every supported vendor.
var Services = []Service{ServiceAxiom, ServiceBetterStack, ServiceDatadog, ServiceLoki}

const (
	DefaultPath          = "config.toml"
	DefaultBatchSize     = 10
	DefaultMaxBatchBytes = 1 << 20
	DefaultRetryAttempts = 3
	DefaultRetryDelayMs  = 1000
)

type Config struct {
	LogPath         string           `toml:"log_path"`
	BatchSize       int              `toml:"batch_size"`
	MaxBatchBytes   int              `toml:"max_batch_bytes"`
	RetryAttempts   int              `toml:"retry_attempts"`
	RetryDelayMs    int              `toml:"retry_delay_ms"`
	Filter          []string         `toml:"filter"`
	FollowMode      string           `toml:"follow_mode"`
	FileWaitTimeout Duration         `toml:"file_wait_timeout"`
	MetricsInterval Duration         `toml:"metrics_interval"`
	LogLevel        string           `toml:"log_level"`
	LogService      LogServiceConfig `toml:"log_service"`
}

// LogServiceConfig selects the sink and carries its credentials.
type LogServiceConfig struct {
	Service      Service  `toml:"service"`
	APIKey       string   `toml:"api_key"`
	IngestionURL string   `toml:"ingestion_url"`
	Dataset      string   `toml:"dataset"`
	Compress     bool     `toml:"compress"`
	Timeout      Duration `toml:"timeout"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "5s", "1m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		BatchSize:       DefaultBatchSize,
		MaxBatchBytes:   DefaultMaxBatchBytes,
		RetryAttempts:   DefaultRetryAttempts,
		RetryDelayMs:    DefaultRetryDelayMs,
		FollowMode:      daemon.FollowNotify,
		MetricsInterval: Duration{30 * time.Second},
		LogLevel:        "info",
		LogService: LogServiceConfig{
			Timeout: Duration{10 * time.Second},
		},
	}
}

// Load reads the configuration at path over the defaults, applies
// environment overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults without validating it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	cfg.LogService.Service = Service(strings.ToLower(strings.TrimSpace(string(cfg.LogService.Service))))
	cfg.FollowMode = strings.ToLower(strings.TrimSpace(cfg.FollowMode))
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogPath = getEnv("LOGSHIPPER_LOG_PATH", c.LogPath)
	c.LogLevel = getEnv("LOGSHIPPER_LOG_LEVEL", c.LogLevel)
	c.LogService.APIKey = getEnv("LOGSHIPPER_API_KEY", c.LogService.APIKey)
	c.LogService.IngestionURL = getEnv("LOGSHIPPER_INGESTION_URL", c.LogService.IngestionURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate reports every problem at once. A configuration that fails
// validation must not start watching.
func (c *Config) Validate() error {
	var errs []error

	if c.LogPath == "" {
		errs = append(errs, errors.New("log_path is required"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize))
	}
	if c.MaxBatchBytes < 1 {
		errs = append(errs, fmt.Errorf("max_batch_bytes must be at least 1, got %d", c.MaxBatchBytes))
	}
	if c.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry_attempts must not be negative, got %d", c.RetryAttempts))
	}
	if c.RetryDelayMs < 0 {
		errs = append(errs, fmt.Errorf("retry_delay_ms must not be negative, got %d", c.RetryDelayMs))
	}
	if c.FollowMode != daemon.FollowNotify && c.FollowMode != daemon.FollowPoll {
		errs = append(errs, fmt.Errorf("follow_mode must be %q or %q, got %q", daemon.FollowNotify, daemon.FollowPoll, c.FollowMode))
	}
	if c.FileWaitTimeout.Duration < 0 {
		errs = append(errs, errors.New("file_wait_timeout must not be negative"))
	}

	if err := c.LogService.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks that the fields the chosen vendor needs are present.
func (s LogServiceConfig) Validate() error {
	var errs []error

	switch s.Service {
	case ServiceAxiom:
		if s.Dataset == "" {
			errs = append(errs, errors.New("log_service.dataset is required for axiom"))
		}
	case ServiceBetterStack, ServiceDatadog, ServiceLoki:
		if s.IngestionURL == "" {
			errs = append(errs, fmt.Errorf("log_service.ingestion_url is required for %s", s.Service))
		}
	case "":
		return errors.New("log_service.service is required")
	default:
		return fmt.Errorf("unsupported log service %q", s.Service)
	}

	if s.APIKey == "" && s.Service != ServiceLoki {
		errs = append(errs, fmt.Errorf("log_service.api_key is required for %s", s.Service))
	}

	return errors.Join(errs...)
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}
