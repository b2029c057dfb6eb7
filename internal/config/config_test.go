package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "memtier.toml", `
[redis]
addr = "redis.internal:6380"
db = 2

[cleanup]
interval_seconds = 60
cron = "0 0 3 * * *"

[pressure]
warning_percent = 60.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 60, cfg.Cleanup.IntervalSeconds)
	assert.Equal(t, "0 0 3 * * *", cfg.Cleanup.Cron)
	assert.Equal(t, 60.0, cfg.Pressure.WarningPercent)

	// Defaults fill everything else.
	assert.Equal(t, 85.0, cfg.Pressure.CriticalPercent)
	assert.Equal(t, 100, cfg.Cleanup.CacheBatchSize)
	assert.Equal(t, 1800, cfg.Memory.WorkingTTLSeconds)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "memtier.yaml", `
redis:
  addr: "127.0.0.1:6379"
memory:
  cache_ttl_seconds: 7200
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, 7200, cfg.Memory.CacheTTLSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "memtier.ini", "[redis]\naddr=localhost")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults pass",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "inverted pressure thresholds",
			mutate: func(c *Config) {
				c.Pressure.WarningPercent = 90
				c.Pressure.CriticalPercent = 80
			},
			wantErr: true,
		},
		{
			name: "emergency above 100",
			mutate: func(c *Config) {
				c.Pressure.EmergencyPercent = 120
			},
			wantErr: true,
		},
		{
			name: "negative cleanup interval",
			mutate: func(c *Config) {
				c.Cleanup.IntervalSeconds = -1
			},
			wantErr: true,
		},
		{
			name: "unhealthy latency below degraded",
			mutate: func(c *Config) {
				c.Health.DegradedLatencyMs = 600
			},
			wantErr: true,
		},
		{
			name: "bad logging level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}
