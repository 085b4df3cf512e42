package fsm

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultJobTimeout = 5 * time.Second

	// EnvPrefix prefixes the environment variables read by Settings.FromEnv.
	EnvPrefix = "FSM_"
)

// Settings are the engine options that can be kept outside of code.
type Settings struct {
	JobTimeout  time.Duration `env:"JOB_TIMEOUT"   yaml:"jobTimeout"`
	StopOnError bool          `env:"STOP_ON_ERROR" yaml:"stopOnError"`
}

// DefaultSettings returns a five second job timeout with stop-on-error enabled.
func DefaultSettings() Settings {
	return Settings{
		JobTimeout:  defaultJobTimeout,
		StopOnError: true,
	}
}

// LoadSettings parses YAML over the defaults. Durations use Go syntax ("10ms").
func LoadSettings(data []byte) (Settings, error) {
	settings := DefaultSettings()

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}

	if settings.JobTimeout < 0 {
		return Settings{}, fmt.Errorf("%w: negative job timeout %s", ErrInvalidConfig, settings.JobTimeout)
	}

	return settings, nil
}

// LoadSettingsFile reads and parses a YAML settings file.
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file: %w", err)
	}

	return LoadSettings(data)
}

// FromEnv overlays FSM_JOB_TIMEOUT and FSM_STOP_ON_ERROR on s. A nil environ
// reads the process environment. Unset variables leave the field unchanged.
func (s Settings) FromEnv(environ map[string]string) (Settings, error) {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}

	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("parsing settings from environment: %w", err)
	}

	if s.JobTimeout < 0 {
		return Settings{}, fmt.Errorf("%w: negative job timeout %s", ErrInvalidConfig, s.JobTimeout)
	}

	return s, nil
}
