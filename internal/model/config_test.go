package model_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasklists/internal/model"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultAppConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
store:
  driver: postgres
  postgres_dsn: postgres://localhost/tasks
redis:
  addr: localhost:6379
  ttl: 5m
resolver:
  fanout_limit: 8
`), 0o644))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, model.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tasks", cfg.Store.PostgresDSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 8, cfg.Resolver.FanoutLimit)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  sqlite_path: file.db\n"), 0o644))
	t.Setenv("TASKAPI_STORE_SQLITE_PATH", "env.db")
	t.Setenv("TASKAPI_HTTP_ADDR", ":7070")

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Store.SQLitePath)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "store:\n  driver: dynamo\n"},
		{"postgres without dsn", "store:\n  driver: postgres\n"},
		{"malformed", "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := model.LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := model.DefaultAppConfig()
	want.HTTP.Addr = ":1234"
	want.Redis.Addr = "cache:6379"
	want.Redis.TTL = 90 * time.Second
	want.Resolver.FanoutLimit = 3

	require.NoError(t, model.SaveConfig(path, want))

	got, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
