package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
	"server_address": ":3001",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"db_connection_timeout": "3s",
	"disable_gzip": true
}`

const testYAML = `server_address: ":3002"
log_level: debug
file_storage_path: yaml_storage.json
`

func writeTempConfig(t *testing.T, pattern, content string) string {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), pattern)
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	return file.Name()
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"testbin"}, args...)
	t.Cleanup(func() {
		os.Args = saved
	})
}

func TestApplyDefaults(t *testing.T) {
	values := Config{RunAddr: ":9999"}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":9999", values.RunAddr)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, "data.json", values.DBFileName)
	assert.Equal(t, 10*time.Second, values.DBConnectionTimeout)
	assert.False(t, values.DisableGzip)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "data.json", cfg.DBFileName)
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.json", testJSON))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.RunAddr)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.DBConnectionTimeout)
	assert.True(t, cfg.DisableGzip)
	assert.Equal(t, "info", cfg.LogLevel) // default
}

func TestConfigYAMLFile(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.yaml", testYAML))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3002", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "yaml_storage.json", cfg.DBFileName)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config*.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("FILE_STORAGE_PATH", "env_storage.json")
	withArgs(t, "-a", ":6000", "-t", "7s")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, 7*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "env_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigFileFromFlag(t *testing.T) {
	storagePath := filepath.Join(t.TempDir(), "flag_storage.json")
	withArgs(t, "-c", writeTempConfig(t, "config*.yml", testYAML), "-f", storagePath)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":3002", cfg.RunAddr)
	assert.Equal(t, storagePath, cfg.DBFileName)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "bad address", env: map[string]string{"SERVER_ADDRESS": "no-port-here"}},
		{name: "storage path is a directory", env: map[string]string{"FILE_STORAGE_PATH": os.TempDir()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "absent.json"))

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigMemoryStorage(t *testing.T) {
	t.Setenv("FILE_STORAGE_PATH", MemoryStorage)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)
	assert.Equal(t, MemoryStorage, cfg.DBFileName)
}
