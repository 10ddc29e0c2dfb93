package reactor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_overridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: 127.0.0.1:9000
workers: 3
idle_timeout_ms: 1500
log_level: debug
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Address)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 1500, cfg.IdleTimeoutMs)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DEFAULT_MAX_CONNECTIONS, cfg.MaxConnections)
	assert.Equal(t, DEFAULT_READ_BUFFER, cfg.ReadBuffer)
	assert.Equal(t, -1, cfg.PollTimeoutMs)
}

func TestLoadConfig_rejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"negative workers": "workers: -1\n",
		"zero read buffer": "read_buffer: 0\n",
		"bad log level":    "log_level: loud\n",
		"not yaml":         "workers: [1, 2\n",
		"hook queue short": "hook_threads: 8\nhook_queue_length: 4\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reactor.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadConfig(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_missingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelInformational, level)

	level, err = ParseLogLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelWarning, level)

	level, err = ParseLogLevel("off")
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelDisabled, level)
}
