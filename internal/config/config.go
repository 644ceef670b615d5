package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig identifies the deployment this daemon belongs to.
type AppConfig struct {
	DeploymentID string `mapstructure:"deployment_id"`
	AppName      string `mapstructure:"app_name"`
}

// APIConfig holds the HTTP API configuration.
type APIConfig struct {
	Port int `mapstructure:"port"`
}

// IngestConfig holds event ingestion configuration.
type IngestConfig struct {
	Source                     string `mapstructure:"source"`
	RingCapacity               int    `mapstructure:"ring_capacity"`
	QueueSize                  int    `mapstructure:"queue_size"`
	DegradedThreshold          int    `mapstructure:"degraded_threshold"`
	ReconnectMaxBackoffSeconds int    `mapstructure:"reconnect_max_backoff_seconds"`
}

// PathsConfig holds the on-disk layout.
type PathsConfig struct {
	LogDir   string `mapstructure:"log_dir"`
	StateDir string `mapstructure:"state_dir"`
}

// MetricsConfig holds the host metrics sampler configuration.
type MetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

// SnapshotConfig holds the status snapshotter configuration.
type SnapshotConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// RetentionConfig holds log rotation retention.
type RetentionConfig struct {
	Days int `mapstructure:"days"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
}

// Config is the top-level configuration struct. All values are fixed at
// process start; there is no hot reload.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	API       APIConfig       `mapstructure:"api"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"log"`
}

const (
	SourceNative = "native"
	SourceCLI    = "cli"
)

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig() error {
	viper.SetDefault("app.deployment_id", "")
	viper.SetDefault("app.app_name", "unknown")
	viper.SetDefault("api.port", 9090)
	viper.SetDefault("ingest.source", SourceNative)
	viper.SetDefault("ingest.ring_capacity", 500)
	viper.SetDefault("ingest.queue_size", 256)
	viper.SetDefault("ingest.degraded_threshold", 5)
	viper.SetDefault("ingest.reconnect_max_backoff_seconds", 60)
	viper.SetDefault("paths.log_dir", "/var/log/buildwatch")
	viper.SetDefault("paths.state_dir", "/var/lib/buildwatch")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.interval_seconds", 60)
	viper.SetDefault("snapshot.interval_seconds", 300)
	viper.SetDefault("retention.days", 7)
	viper.SetDefault("log.log_level", "INFO")

	// Specify the config file details.
	viper.SetConfigName("config") // Looks for config.yaml
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // current directory
	viper.AddConfigPath("/etc/buildwatch")

	// Read the config file if available.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	if err := InitConfig(); err != nil {
		return nil, err
	}
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Ingest.Source != SourceNative && c.Ingest.Source != SourceCLI {
		return fmt.Errorf("ingest.source must be %q or %q, got %q", SourceNative, SourceCLI, c.Ingest.Source)
	}
	if c.Ingest.RingCapacity <= 0 {
		return fmt.Errorf("ingest.ring_capacity must be positive, got %d", c.Ingest.RingCapacity)
	}
	if c.Ingest.QueueSize <= 0 {
		return fmt.Errorf("ingest.queue_size must be positive, got %d", c.Ingest.QueueSize)
	}
	if c.Retention.Days <= 0 {
		return fmt.Errorf("retention.days must be positive, got %d", c.Retention.Days)
	}
	return nil
}
