// Package config loads flow's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the merged configuration: defaults, then the YAML file,
// then FLOW_* environment variables.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	// LogPath receives the structured log. The terminal belongs to the UI.
	LogPath string `yaml:"log_path" mapstructure:"log_path"`

	Timer   TimerConfig   `yaml:"timer" mapstructure:"timer"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
}

type TimerConfig struct {
	// TickInterval is the display refresh rate, e.g. "100ms". It never
	// affects measured time.
	TickInterval string `yaml:"tick_interval" mapstructure:"tick_interval"`
}

type SessionConfig struct {
	// Category is stamped on every recorded session.
	Category string `yaml:"category" mapstructure:"category"`
}

// Dir returns ~/.config/flow.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "flow"), nil
}

// Path returns ~/.config/flow/flow.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "flow.yaml"), nil
}

func DefaultConfig() *Config {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	return &Config{
		DBPath:   filepath.Join(dir, "flow.db"),
		LogLevel: "info",
		LogPath:  filepath.Join(dir, "flow.log"),
		Timer:    TimerConfig{TickInterval: "100ms"},
		Session:  SessionConfig{Category: "focus"},
	}
}

// Load reads path (the default location when empty) over the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("flow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_path", cfg.LogPath)
	v.SetDefault("timer.tick_interval", cfg.Timer.TickInterval)
	v.SetDefault("session.category", cfg.Session.Category)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	d, err := time.ParseDuration(c.Timer.TickInterval)
	if err != nil {
		return fmt.Errorf("config: timer.tick_interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("config: timer.tick_interval must be positive, got %s", d)
	}
	return nil
}

// TickInterval returns the parsed display refresh interval.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Timer.TickInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level %q: %w", s, err)
	}
	return l, nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes the default configuration to path, creating its
// directory. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	data, err := DefaultConfig().Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	content := append([]byte("# flow configuration\n"), data...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
