package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hackx/skillos/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Empty(t, cfg.Gateway.URL)
	assert.Equal(t, "system_stats", cfg.Gateway.MetricsTable)
	assert.Equal(t, 15*time.Second, cfg.Gateway.RequestTimeout)
	assert.Equal(t, 50, cfg.Metrics.Capacity)
	assert.Equal(t, 10*time.Second, cfg.Metrics.PollInterval)
	assert.Equal(t, time.Second, cfg.Metrics.RefreshInterval)
	assert.Equal(t, 60*time.Second, cfg.Auth.ResendCooldown)
	assert.Equal(t, "auto", cfg.Output.Color)
	assert.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)

	content := `
version: 1
gateway:
  url: https://abc.supabase.co/
  anon_key: public-key
  request_timeout: 5s
metrics:
  capacity: 120
  poll_interval: 30s
auth:
  resend_cooldown: 90s
session:
  path: ` + filepath.Join(dir, "s.yaml") + `
output:
  color: never
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://abc.supabase.co", cfg.Gateway.URL, "trailing slash trimmed")
	assert.Equal(t, "public-key", cfg.Gateway.AnonKey)
	assert.Equal(t, "system_stats", cfg.Gateway.MetricsTable, "default kept")
	assert.Equal(t, 5*time.Second, cfg.Gateway.RequestTimeout)
	assert.Equal(t, 120, cfg.Metrics.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Metrics.PollInterval)
	assert.Equal(t, time.Second, cfg.Metrics.RefreshInterval)
	assert.Equal(t, 90*time.Second, cfg.Auth.ResendCooldown)
	assert.Equal(t, filepath.Join(dir, "s.yaml"), cfg.Session.Path)
	assert.Equal(t, "never", cfg.Output.Color)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("gateway:\n  url: https://file.example.com\n"), 0o644))

	t.Setenv("SKILLOS_GATEWAY_URL", "https://env.example.com")
	t.Setenv("SKILLOS_GATEWAY_ANON_KEY", "env-key")
	t.Setenv("SKILLOS_METRICS_CAPACITY", "25")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Gateway.URL)
	assert.Equal(t, "env-key", cfg.Gateway.AnonKey)
	assert.Equal(t, 25, cfg.Metrics.Capacity)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("SKILLOS_GATEWAY_ANON_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gateway.AnonKey)
	assert.Equal(t, 50, cfg.Metrics.Capacity)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("gateway: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  poll_interval: often\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid config format")
}

func TestFind(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

		got, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("version: 1\n"), 0o644))
		chdir(t, dir)
		t.Setenv("HOME", t.TempDir())

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, ConfigFileName, filepath.Base(got))
		assert.FileExists(t, got)
	})

	t.Run("global", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		chdir(t, t.TempDir())
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(global), 0o755))
		require.NoError(t, os.WriteFile(global, []byte("version: 1\n"), 0o644))

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, global, got)
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		chdir(t, t.TempDir())

		got, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SKILLOS_TEST_DIR", "logs")

	assert.Equal(t, "", ExpandTilde(""))
	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, filepath.Join(home, "a", "b"), ExpandTilde("~/a/b"))
	assert.Equal(t, "/tmp/logs/x", ExpandTilde("/tmp/$SKILLOS_TEST_DIR/x"))
	assert.Equal(t, "~user/x", ExpandTilde("~user/x"))
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
