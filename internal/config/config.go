// Package config provides daemon configuration loading.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults for the daemon configuration.
const (
	DefaultListenHost     = "127.0.0.1"
	DefaultListenPort     = 9720
	DefaultDestinationDir = "/var/lib/profiled/profiles"
	DefaultConfigPath     = "/etc/profiled/config.yaml"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "PROFILED_CONFIG"
)

// Config is the daemon configuration, distinct from the per-session
// configuration in internal/session.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Log       LogConfig       `yaml:"log"`
	Profiles  ProfilesConfig  `yaml:"profiles"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ListenConfig sets the control API bind address.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig sets logging behavior.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// ProfilesConfig sets artifact storage behavior.
type ProfilesConfig struct {
	// DestinationDirectory is the default directory for locally stored
	// artifacts and large-submission temp files. Sessions may override it
	// per-session via the structured configuration.
	DestinationDirectory string `yaml:"destination_directory"`
}

// TelemetryConfig sets the collector used for telemetry-routed artifacts.
type TelemetryConfig struct {
	// Endpoint is the collector base URL. Empty disables telemetry routing
	// by default; sessions are then stored locally unless a structured
	// configuration says otherwise.
	Endpoint string `yaml:"endpoint"`
	// TimeoutSecs bounds a single submission. Zero uses the built-in
	// default.
	TimeoutSecs int `yaml:"timeout_secs"`
}

// Default returns the daemon defaults.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Host: DefaultListenHost,
			Port: DefaultListenPort,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Profiles: ProfilesConfig{
			DestinationDirectory: DefaultDestinationDir,
		},
	}
}

// Load reads the daemon configuration. The path is resolved in this order:
// the explicit argument, the PROFILED_CONFIG environment variable, then the
// built-in default path. A missing file yields the defaults; anything else
// is parsed over them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
