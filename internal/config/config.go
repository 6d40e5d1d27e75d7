package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains server-wide settings
type ServerConfig struct {
	Hostname string `yaml:"hostname"` // FQDN used in Message-ID and HELO
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	APIKey       string        `yaml:"api_key"`       // Empty = no authentication
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // HTTP read timeout (default: 30s)
	WriteTimeout time.Duration `yaml:"write_timeout"` // HTTP write timeout (default: 30s)
	IdleTimeout  time.Duration `yaml:"idle_timeout"`  // HTTP idle timeout (default: 60s)
}

// DatabaseConfig contains the email record store settings.
// An empty DSN selects the in-memory store (single process only).
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig contains the shared counter store and queue backend settings.
// An empty URL selects the in-memory queue and limiter (single process only).
type RedisConfig struct {
	URL string `yaml:"url"`
	DB  int    `yaml:"db"`
}

// QueueConfig contains delayed queue and processor settings
type QueueConfig struct {
	KeyPrefix           string        `yaml:"key_prefix"`
	Workers             int           `yaml:"workers"`
	ProcessInterval     time.Duration `yaml:"process_interval"`
	MinDispatchInterval time.Duration `yaml:"min_dispatch_interval"` // Queue-wide spacing between dispatches
}

// RateLimitConfig contains per-sender quota settings.
// The window length is fixed at one hour.
type RateLimitConfig struct {
	DefaultHourlyLimit int `yaml:"default_hourly_limit"`
}

// SMTPConfig contains outbound SMTP relay settings
type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Timeout     time.Duration `yaml:"timeout"`
	Sandbox     bool          `yaml:"sandbox"`      // Capture messages locally instead of sending
	SandboxPath string        `yaml:"sandbox_path"` // BoltDB file for captured messages
	DKIM        DKIMConfig    `yaml:"dkim"`
}

// DKIMConfig contains DKIM signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // Default: :9090
	Path       string `yaml:"path"`        // Default: /metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SetDefaults fills in default values for unset fields
func (c *Config) SetDefaults() {
	if c.Server.Hostname == "" {
		hostname, _ := os.Hostname()
		c.Server.Hostname = hostname
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 30 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Queue.KeyPrefix == "" {
		c.Queue.KeyPrefix = "dripq"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 5
	}
	if c.Queue.ProcessInterval == 0 {
		c.Queue.ProcessInterval = 1 * time.Second
	}
	if c.Queue.MinDispatchInterval == 0 {
		c.Queue.MinDispatchInterval = 2 * time.Second
	}

	if c.RateLimit.DefaultHourlyLimit == 0 {
		c.RateLimit.DefaultHourlyLimit = 200
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 30 * time.Second
	}
	if c.SMTP.SandboxPath == "" {
		c.SMTP.SandboxPath = "/var/lib/dripq/sandbox.db"
	}
	if c.SMTP.DKIM.Selector == "" {
		c.SMTP.DKIM.Selector = "dripq"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1")
	}
	if c.Queue.MinDispatchInterval < 0 {
		return fmt.Errorf("queue.min_dispatch_interval must not be negative")
	}
	if c.RateLimit.DefaultHourlyLimit < 1 {
		return fmt.Errorf("rate_limit.default_hourly_limit must be positive")
	}
	if !c.SMTP.Sandbox && c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required unless sandbox mode is enabled")
	}
	if c.SMTP.DKIM.Enabled {
		if c.SMTP.DKIM.Domain == "" {
			return fmt.Errorf("smtp.dkim.domain is required when DKIM is enabled")
		}
		if c.SMTP.DKIM.KeyFile == "" {
			return fmt.Errorf("smtp.dkim.key_file is required when DKIM is enabled")
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}
