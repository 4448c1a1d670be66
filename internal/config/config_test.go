package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/pix_orchestrator.db", cfg.Storage.Path)
	assert.Equal(t, 60*time.Second, cfg.Sync.PollingInterval)
	assert.True(t, cfg.Sync.CatchupEnabled)
	assert.Equal(t, 7, cfg.Sync.MaxCatchupDays)
	assert.Equal(t, "backups", cfg.Backup.Dir)
	assert.Contains(t, cfg.Source.KeysURL, "olinda.bcb.gov.br")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.Sync.PollingInterval)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  path: /tmp/custom.db
sync:
  polling_interval: 5m
  max_catchup_days: 3
backup:
  compress: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Storage.Path)
	assert.Equal(t, 5*time.Minute, cfg.Sync.PollingInterval)
	assert.Equal(t, 3, cfg.Sync.MaxCatchupDays)
	assert.True(t, cfg.Backup.Compress)
	// Untouched keys keep defaults.
	assert.Equal(t, "backups", cfg.Backup.Dir)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PIXD_SYNC_MAX_CATCHUP_DAYS", "14")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Sync.MaxCatchupDays)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }},
		{"zero polling interval", func(c *Config) { c.Sync.PollingInterval = 0 }},
		{"zero catchup days", func(c *Config) { c.Sync.MaxCatchupDays = 0 }},
		{"negative retention", func(c *Config) { c.Backup.RetentionDays = -1 }},
		{"missing source urls", func(c *Config) { c.Source.KeysURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}
