// Package config loads sidekick settings from a TOML file with
// environment variable overrides, and watches the file for live changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the full configuration tree.
type Settings struct {
	Assist  AssistSettings  `toml:"assist"`
	Logging LoggingSettings `toml:"logging"`
}

// AssistSettings controls the agent session.
type AssistSettings struct {
	// Enabled starts the agent at launch and keeps it running.
	Enabled bool `toml:"enabled"`

	// AgentPath overrides binary discovery with an explicit executable.
	AgentPath string `toml:"agent_path"`

	// CacheDir overrides where downloaded agent versions live.
	CacheDir string `toml:"cache_dir"`

	// RequestTimeoutSeconds bounds individual agent requests.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// RequestTimeout returns the request bound as a duration.
func (s AssistSettings) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// LoggingSettings controls log output.
type LoggingSettings struct {
	Level string `toml:"level"`
}

// Default returns the settings used when no file or overrides exist.
func Default() Settings {
	return Settings{
		Assist: AssistSettings{
			Enabled:               false,
			RequestTimeoutSeconds: 30,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// DefaultPath returns the conventional settings file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "sidekick", "config.toml"), nil
}

// Load reads settings from path, layering the file over the defaults and
// environment overrides over the file. A missing file is not an error.
func Load(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment only.
	case err != nil:
		return settings, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&settings)
	return settings, nil
}

// Environment variables recognized by applyEnv.
const (
	envEnabled        = "SIDEKICK_ENABLED"
	envAgentPath      = "SIDEKICK_AGENT_PATH"
	envCacheDir       = "SIDEKICK_CACHE_DIR"
	envRequestTimeout = "SIDEKICK_REQUEST_TIMEOUT_SECONDS"
	envLogLevel       = "SIDEKICK_LOG_LEVEL"
)

// applyEnv overlays environment variables onto settings. Empty values are
// treated as set.
func applyEnv(s *Settings) {
	if val, ok := os.LookupEnv(envEnabled); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			s.Assist.Enabled = b
		}
	}
	if val, ok := os.LookupEnv(envAgentPath); ok {
		s.Assist.AgentPath = val
	}
	if val, ok := os.LookupEnv(envCacheDir); ok {
		s.Assist.CacheDir = val
	}
	if val, ok := os.LookupEnv(envRequestTimeout); ok {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			s.Assist.RequestTimeoutSeconds = n
		}
	}
	if val, ok := os.LookupEnv(envLogLevel); ok {
		s.Logging.Level = val
	}
}
