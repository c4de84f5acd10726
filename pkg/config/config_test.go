package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relayd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
listen: ":8080"
adminListen: ":8081"
metrics: true
heartbeatInterval: 15s
connectionTimeout: 2m
maxConnectionsPerUser: 5
maxMessageSize: 65536
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, ":8081", cfg.AdminListen)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, 5, cfg.MaxConnectionsPerUser)
	assert.Equal(t, int64(65536), cfg.MaxMessageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	opts := cfg.BrokerOptions()
	assert.Equal(t, 15*time.Second, opts.HeartbeatInterval)
	assert.Equal(t, 2*time.Minute, opts.ConnectionTimeout)
	assert.Equal(t, 5, opts.MaxConnectionsPerUser)
	assert.Equal(t, int64(65536), opts.MaxMessageSize)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `listen: ":9000"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, Default().AdminListen, cfg.AdminListen)
	assert.Equal(t, "info", cfg.Log.Level)

	// Unset broker fields stay zero so the broker applies its own
	// defaults.
	opts := cfg.BrokerOptions()
	assert.Equal(t, time.Duration(0), opts.HeartbeatInterval)
	assert.Equal(t, 0, opts.MaxConnectionsPerUser)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "listen: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
listen: ":8080"
heartbeatInterval: thirty-seconds
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "heartbeatInterval")
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := Default()
	cfg.MaxConnectionsPerUser = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxMessageSize = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ConnectionTimeout = "-5s"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyListen(t *testing.T) {
	cfg := Default()
	cfg.Listen = ""
	assert.Error(t, cfg.Validate())
}
