package fsm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	settings, err := LoadSettings([]byte("jobTimeout: 10ms\nstopOnError: false\n"))
	require.NoError(t, err)
	assert.Equal(t, Settings{JobTimeout: 10 * time.Millisecond, StopOnError: false}, settings)

	settings, err = LoadSettings([]byte("jobTimeout: 1m\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, settings.JobTimeout)
	assert.True(t, settings.StopOnError, "unset fields keep their default")

	settings, err = LoadSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	_, err = LoadSettings([]byte("jobTimeout: -1s\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadSettings([]byte("jobTimeout: [not, a, duration]\n"))
	require.Error(t, err)
}

func TestLoadSettingsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fsm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobTimeout: 250ms\n"), 0o600))

	settings, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, settings.JobTimeout)

	_, err = LoadSettingsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSettings_FromEnv(t *testing.T) {
	t.Parallel()

	settings, err := DefaultSettings().FromEnv(map[string]string{
		"FSM_JOB_TIMEOUT":   "2s",
		"FSM_STOP_ON_ERROR": "false",
		"JOB_TIMEOUT":       "9s",
	})
	require.NoError(t, err)
	assert.Equal(t, Settings{JobTimeout: 2 * time.Second}, settings)

	settings, err = DefaultSettings().FromEnv(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	_, err = DefaultSettings().FromEnv(map[string]string{"FSM_JOB_TIMEOUT": "soon"})
	require.Error(t, err)

	_, err = DefaultSettings().FromEnv(map[string]string{"FSM_JOB_TIMEOUT": "-5s"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWithSettings(t *testing.T) {
	t.Parallel()

	opts := defaultOptions()
	WithSettings(Settings{JobTimeout: time.Second})(opts)

	assert.Equal(t, time.Second, opts.jobTimeout)
	assert.False(t, opts.stopOnError)
}
