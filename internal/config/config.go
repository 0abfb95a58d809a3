// Package config loads and saves the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/shutdown"
)

const (
	DirName  = "powernap"
	FileName = "config.yaml"

	// MaxDefaultDuration mirrors the countdown's manual-edit cap.
	MaxDefaultDuration = 5 * time.Hour
)

var ErrInvalid = errors.New("invalid configuration")

// Config is persisted to ~/.config/powernap/config.yaml.
type Config struct {
	// DefaultDuration is the remaining time shown at launch.
	DefaultDuration time.Duration `yaml:"default_duration"`
	Shutdown        Shutdown      `yaml:"shutdown"`
	// ConfirmQuit asks before quitting while a countdown is active.
	ConfirmQuit bool   `yaml:"confirm_quit"`
	LogLevel    string `yaml:"log_level"`
	// HistoryDB overrides the history database location.
	HistoryDB string `yaml:"history_db,omitempty"`
}

type Shutdown struct {
	// Method is one of auto, logind, command, dry-run.
	Method string `yaml:"method"`
	// Command overrides the platform power-off command.
	Command []string `yaml:"command,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		DefaultDuration: 2 * time.Hour,
		Shutdown:        Shutdown{Method: shutdown.MethodAuto},
		ConfirmQuit:     true,
		LogLevel:        "info",
	}
}

// DefaultPath returns ~/.config/powernap/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Dir returns the application config directory.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(cfg, DirName), nil
}

// Load reads path. A missing file is created with defaults. Out-of-range
// values fall back to defaults; unknown keys are rejected.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.validate()
	return cfg, nil
}

func (c *Config) validate() {
	def := DefaultConfig()
	if c.DefaultDuration < 0 {
		c.DefaultDuration = def.DefaultDuration
	}
	if c.DefaultDuration > MaxDefaultDuration {
		c.DefaultDuration = MaxDefaultDuration
	}
	if !slices.Contains(shutdown.Methods, c.Shutdown.Method) {
		c.Shutdown.Method = def.Shutdown.Method
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		c.LogLevel = def.LogLevel
	}
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// HistoryPath returns the history database path, defaulting to history.db
// next to the config file.
func (c *Config) HistoryPath(configPath string) string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return filepath.Join(filepath.Dir(configPath), "history.db")
}
