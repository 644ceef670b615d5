package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	return Config{
		App:       AppConfig{AppName: "unknown"},
		API:       APIConfig{Port: 9090},
		Ingest:    IngestConfig{Source: SourceNative, RingCapacity: 500, QueueSize: 256, DegradedThreshold: 5, ReconnectMaxBackoffSeconds: 60},
		Paths:     PathsConfig{LogDir: "/var/log/buildwatch", StateDir: "/var/lib/buildwatch"},
		Metrics:   MetricsConfig{Enabled: true, IntervalSeconds: 60},
		Snapshot:  SnapshotConfig{IntervalSeconds: 300},
		Retention: RetentionConfig{Days: 7},
		Logging:   LoggingConfig{Level: "INFO"},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), *cfg)
}

func TestValidate(t *testing.T) {
	t.Run("accepts cli source", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Ingest.Source = SourceCLI
		require.NoError(t, cfg.validate())
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Ingest.Source = "podman"
		require.Error(t, cfg.validate())
	})

	t.Run("rejects non-positive ring capacity", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Ingest.RingCapacity = 0
		require.Error(t, cfg.validate())
	})

	t.Run("rejects non-positive queue size", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Ingest.QueueSize = -1
		require.Error(t, cfg.validate())
	})

	t.Run("rejects non-positive retention", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Retention.Days = 0
		require.Error(t, cfg.validate())
	})
}
