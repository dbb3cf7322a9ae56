package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("BRIDGE_SECRET", "s3cr3t")
	path := writeConfig(t, `
broker:
  base_url: http://localhost:8080
  api_key: key
  secret: ${BRIDGE_SECRET}
execution:
  instruments: [EURUSD, EURJPY]
  cooldown: 2m
replication:
  suppression_window: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cr3t", cfg.Broker.Secret)
	assert.Equal(t, []string{"EURUSD", "EURJPY"}, cfg.Execution.Instruments)
	assert.Equal(t, 2*time.Minute, cfg.Execution.Cooldown)
	assert.Equal(t, 4*time.Second, cfg.Execution.PollInterval)
	assert.Equal(t, 100, cfg.Execution.Bars)
	assert.Equal(t, int64(234001), cfg.Execution.Magic)
	assert.Equal(t, 5*time.Second, cfg.Replication.SuppressionWindow)
	assert.Equal(t, time.Second, cfg.Replication.PollInterval)
	assert.Equal(t, "sqlite", cfg.Replication.StateBackend)
	assert.Equal(t, 15*time.Minute, cfg.Runtime.ResyncInterval)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NCTB_RUNTIME_DRY_RUN", "true")
	path := writeConfig(t, "execution:\n  volume: 0.2\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.DryRun)
	assert.Equal(t, 0.2, cfg.Execution.Volume)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no instruments", func(c *Config) { c.Execution.Instruments = nil }},
		{"zero volume", func(c *Config) { c.Execution.Volume = 0 }},
		{"zero poll", func(c *Config) { c.Execution.PollInterval = 0 }},
		{"bad backend", func(c *Config) { c.Replication.StateBackend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Replication.StateBackend = "redis" }},
		{"no bridge url", func(c *Config) { c.Runtime.DryRun = false; c.Broker.BaseUrl = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), exception.ErrConfiguration)
		})
	}

	assert.NoError(t, validConfig().Validate())
}

func validConfig() *Config {
	return &Config{
		Execution: ExecutionConfig{
			Enabled:      true,
			Instruments:  []string{"EURUSD"},
			Volume:       0.1,
			PollInterval: time.Second,
			Bars:         100,
		},
		Replication: ReplicationConfig{
			Enabled:      true,
			PollInterval: time.Second,
			StateBackend: "sqlite",
		},
		Runtime: RuntimeConfig{DryRun: true},
	}
}
