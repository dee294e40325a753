package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// writeHomeConfig sets HOME to a temp dir and writes a config file under
// ~/.config/toolscope with the given permissions. Returns the config path.
func writeHomeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "toolscope")
	require.NoError(t, os.MkdirAll(dir, 0700))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8921, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 10, cfg.Filter.TopK)
	assert.Equal(t, 100, cfg.Filter.CacheEntries)
	assert.Equal(t, "fastembed", cfg.Embedding.Provider)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, zapcore.InfoLevel, cfg.Logging.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeHomeConfig(t, `
server:
  port: 9100
  shutdown_timeout: 20s
filter:
  top_k: 5
  min_score: 0.25
  cache_entries: 50
embedding:
  provider: tei
  base_url: http://localhost:8080
logging:
  level: debug
  format: console
`, 0600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 5, cfg.Filter.TopK)
	assert.InDelta(t, 0.25, cfg.Filter.MinScore, 1e-9)
	assert.Equal(t, 50, cfg.Filter.CacheEntries)
	assert.Equal(t, "tei", cfg.Embedding.Provider)
	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	// Unset keys keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 2000, cfg.Filter.MaxContextTokens)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeHomeConfig(t, "server:\n  port: 9100\n", 0600)

	t.Setenv("TOOLSCOPE_SERVER_PORT", "9200")
	t.Setenv("TOOLSCOPE_FILTER_TOP_K", "3")
	t.Setenv("TOOLSCOPE_EMBEDDING_CACHE_DIR", "/tmp/models")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Filter.TopK)
	assert.Equal(t, "/tmp/models", cfg.Embedding.CacheDir)
}

func TestLoad_RejectsWorldReadableFile(t *testing.T) {
	path := writeHomeConfig(t, "server:\n  port: 9100\n", 0644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_RejectsPathOutsideAllowedDirs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("server:\n  port: 9100\n"), 0600))

	_, err := Load(outside)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file must be in")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "port out of range",
			yaml:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "tei without base_url",
			yaml:    "embedding:\n  provider: tei\n",
			wantErr: "embedding.base_url",
		},
		{
			name:    "min_score out of range",
			yaml:    "filter:\n  min_score: 2.0\n",
			wantErr: "filter.min_score",
		},
		{
			name:    "zero cache entries",
			yaml:    "filter:\n  cache_entries: 0\n",
			wantErr: "filter.cache_entries",
		},
		{
			name:    "bad log format",
			yaml:    "logging:\n  format: logfmt\n",
			wantErr: "logging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeHomeConfig(t, tt.yaml, 0600)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
}
