package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Positional(t *testing.T) {
	cfg, exit, err := Parse([]string{"-workers", "3", "-task-timeout", "5s", "net.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "net.hcl", cfg.NetworkPath)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.TaskTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Nil(t, cfg.Checkpoint)
}

func TestParse_NetworkFlagWins(t *testing.T) {
	cfg, _, err := Parse([]string{"-n", "short.hcl", "-network", "long.hcl", "pos.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "long.hcl", cfg.NetworkPath)
}

func TestParse_HelpAndNoPath(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)

	out.Reset()
	_, exit, err = Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-bogus"}, "flag provided but not defined: -bogus"},
		{"log format", []string{"-log-format", "xml", "a.hcl"}, "invalid log-format"},
		{"log level", []string{"-log-level", "loud", "a.hcl"}, "invalid log-level"},
		{"negative workers", []string{"-workers", "-2", "a.hcl"}, "must not be negative"},
		{"missing config", []string{"-config", "/nonexistent/burstflow.yaml", "a.hcl"}, "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.want)
		})
	}
}

func TestParse_ConfigFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burstflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: from-file.hcl
workers: 4
concurrency: 2
log_level: debug
checkpoint_redis:
  addr: redis:6379
  key_prefix: "test:"
`), 0o600))

	cfg, _, err := Parse([]string{"-config", path, "-workers", "8", "-checkpoint-redis", "localhost:6380"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "from-file.hcl", cfg.NetworkPath)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NotNil(t, cfg.Checkpoint)
	assert.Equal(t, "localhost:6380", cfg.Checkpoint.Addr)
	assert.Equal(t, "test:", cfg.Checkpoint.KeyPrefix)
}
