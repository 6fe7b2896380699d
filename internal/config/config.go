// Package config loads optional tuning for the diagnostics monitors from
// a .diag.yaml file. Every value has a default; running without any
// config file is the normal case.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".diag.yaml"
	// GlobalConfigDir holds the global config, relative to $HOME.
	GlobalConfigDir = ".config/diag"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Config carries monitor tuning. Zero values mean "use the monitor's
// default".
type Config struct {
	Connections ConnectionsConfig `mapstructure:"connections"`
	Latency     LatencyConfig     `mapstructure:"latency"`
	DNS         DNSConfig         `mapstructure:"dns"`
	SSL         SSLConfig         `mapstructure:"ssl"`
	Watch       WatchConfig       `mapstructure:"watch"`
}

type ConnectionsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type LatencyConfig struct {
	TrackInterval time.Duration `mapstructure:"track_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

type DNSConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type SSLConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Targets  []string      `mapstructure:"targets"`
}

// Default returns a config with every field zero, deferring to the
// monitors' built-in defaults.
func Default() *Config {
	return &Config{}
}

// Load reads config from path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	// viper's default decode hooks already parse "5s"-style durations.
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Find locates a config file: the explicit --config path first, then
// .diag.yaml in the current directory, then the global file under
// ~/.config/diag. An empty return means "no config", which is fine.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", nil
	}
	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}
