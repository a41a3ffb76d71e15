package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Loader handles configuration loading.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a new config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// Load loads the configuration from file, falling back to defaults
// when no file exists. Environment variables prefixed ENGRAM_ override
// file values.
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".engram", "engram.json")
	}

	l.v.SetEnvPrefix("ENGRAM")
	l.v.AutomaticEnv()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := fillDataDir(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	l.v.SetConfigFile(configPath)
	l.v.SetConfigType("json")

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := fillDataDir(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Watch reloads the config on file change and hands the result to fn.
// Reload errors keep the previous config in effect. A no-op when no
// config file was loaded.
func (l *Loader) Watch(fn func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := DefaultConfig()
		if err := l.v.Unmarshal(cfg); err != nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
}

// GetConfigPath returns the effective config file path.
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "engram.json"
	}
	return filepath.Join(home, ".engram", "engram.json")
}

// Save writes the configuration to the config path, creating the
// directory when needed.
func (l *Loader) Save(cfg *Config) error {
	path := l.GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fillDataDir(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".engram")
	}
	if cfg.Stores.FactDBPath == "" {
		cfg.Stores.FactDBPath = filepath.Join(cfg.DataDir, "facts.db")
	}
	if cfg.Stores.EpisodeDBPath == "" {
		cfg.Stores.EpisodeDBPath = filepath.Join(cfg.DataDir, "episodes.db")
	}
	return nil
}
