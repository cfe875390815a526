package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "logs.db", cfg.Database.Path)
	assert.True(t, cfg.Syslog.Enabled)
	assert.Equal(t, 514, cfg.Syslog.Port)
	assert.True(t, cfg.REST.Enabled)
	assert.Equal(t, 8080, cfg.REST.Port)
	assert.True(t, cfg.SNMP.Enabled)
	assert.Equal(t, 162, cfg.SNMP.Port)
	assert.Equal(t, 100, cfg.Queue.BatchSize)
	assert.Equal(t, time.Second, cfg.Queue.FlushInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /var/lib/ledgerlog/logs.db
syslog:
  port: 1514
queue:
  batch_size: 50
  flush_interval: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ledgerlog/logs.db", cfg.Database.Path)
	assert.Equal(t, 1514, cfg.Syslog.Port)
	assert.Equal(t, 50, cfg.Queue.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Queue.FlushInterval)
	// Untouched keys keep their defaults
	assert.Equal(t, 8080, cfg.REST.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestChangedFlagsOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("database", "d", "logs.db", "")
	flags.Uint16("syslog-port", 514, "")
	flags.Int("batch-size", 100, "")
	require.NoError(t, flags.Parse([]string{"-d", "other.db", "--batch-size", "25"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "other.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Queue.BatchSize)
	// Unchanged flag leaves the default
	assert.Equal(t, 514, cfg.Syslog.Port)
}
