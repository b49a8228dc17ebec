package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "linggen", "editor.yaml")
}

func TestLoad_Defaults(t *testing.T) {
	path := tempPath(t)
	cfg, err := New(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8787", cfg.Backend.HTTPURL)
	assert.Equal(t, "/api/query", cfg.Backend.ExplainEndpoint)
	assert.True(t, cfg.HealthPoll.Enabled)
	assert.Equal(t, 5*time.Second, cfg.HealthPoll.Interval())
	assert.True(t, cfg.HealthPoll.ShowStatusBar)
	assert.Equal(t, "127.0.0.1:0", cfg.View.Addr)
	assert.Equal(t, 1200.0, cfg.View.Width)
	assert.Equal(t, "https://linggen.dev", cfg.InstallURL)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "editor-state.db"), cfg.StatePath)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  httpUrl: http://10.0.0.2:9000
healthPoll:
  intervalMs: 250
`), 0o644))

	cfg, err := New(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:9000", cfg.Backend.HTTPURL)
	assert.Equal(t, time.Second, cfg.HealthPoll.Interval(), "interval is floored at one second")

	t.Setenv("LINGGEN_BACKEND_HTTPURL", "http://env:1")
	t.Setenv("LINGGEN_HEALTHPOLL_ENABLED", "false")
	cfg, err = New(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env:1", cfg.Backend.HTTPURL)
	assert.False(t, cfg.HealthPoll.Enabled)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad url", "backend:\n  httpUrl: not a url\n", "HTTPURL"},
		{"bad level", "logLevel: loud\n", "LogLevel"},
		{"bad addr", "view:\n  addr: nope\n", "View.Addr"},
		{"negative size", "view:\n  width: -1\n", "Width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tempPath(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := New(path).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSet(t *testing.T) {
	path := tempPath(t)
	l := New(path)

	val, err := l.Set("healthPoll.intervalMs", "2000")
	require.NoError(t, err)
	assert.Equal(t, 2000, val)

	_, err = l.Set("healthPoll.enabled", "false")
	require.NoError(t, err)

	cfg, err := New(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.HealthPoll.IntervalMs)
	assert.False(t, cfg.HealthPoll.Enabled)
	assert.Equal(t, "http://localhost:8787", cfg.Backend.HTTPURL)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "installurl", "defaults are not persisted")
}

func TestSet_Rejects(t *testing.T) {
	l := New(tempPath(t))

	_, err := l.Set("nope", "1")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = l.Set("healthPoll.intervalMs", "soon")
	assert.Error(t, err)

	_, err = l.Set("backend.httpUrl", "::bad")
	assert.Error(t, err)
	_, statErr := os.Stat(l.Path())
	assert.True(t, os.IsNotExist(statErr), "invalid values are not written")
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "backend.httpUrl")
	assert.Contains(t, keys, "healthPoll.intervalMs")
	assert.IsIncreasing(t, keys)
}

func TestWatch(t *testing.T) {
	path := tempPath(t)
	l := New(path)
	assert.Error(t, l.Watch(func(Config) {}), "missing file")

	_, err := l.Set("healthPoll.intervalMs", "3000")
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	changes := make(chan Config, 8)
	require.NoError(t, l.Watch(func(c Config) { changes <- c }))

	require.NoError(t, os.WriteFile(path, []byte("healthPoll:\n  intervalMs: 7000\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.HealthPoll.IntervalMs == 7000 {
				return
			}
		case <-deadline:
			t.Fatal("no config change observed")
		}
	}
}
