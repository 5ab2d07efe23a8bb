// Package config defines graphstep's configuration, its defaults and how it
// is loaded from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GRAPHSTEP_GRAPH_MODE.
const EnvPrefix = "GRAPHSTEP"

// FileName is the config file looked up in the home directory.
const FileName = ".graphstep.yaml"

type Config struct {
	Graph     GraphConfig     `mapstructure:"graph"`
	Scripts   ScriptsConfig   `mapstructure:"scripts"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type GraphConfig struct {
	// Mode is "undirected" or "directed".
	Mode    string `mapstructure:"mode"`
	StartID int    `mapstructure:"start_id"`
	Curves  bool   `mapstructure:"curves"`
}

// ScriptsConfig overrides the embedded bootstrap scripts. Empty means embedded.
type ScriptsConfig struct {
	Init       string `mapstructure:"init"`
	Graph      string `mapstructure:"graph"`
	Algorithms string `mapstructure:"algorithms"`
}

type PlaybackConfig struct {
	CleanBeforeRun bool `mapstructure:"clean_before_run"`
	// AutoStep continues every wait after Delay. Headless playback always
	// continues.
	AutoStep bool          `mapstructure:"auto_step"`
	Delay    time.Duration `mapstructure:"delay"`
}

type LayoutConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// Spring starts the layout process at boot.
	Spring    bool    `mapstructure:"spring"`
	Length    float64 `mapstructure:"length"`
	Stiffness float64 `mapstructure:"stiffness"`
	Repulsion float64 `mapstructure:"repulsion"`
	MaxStep   float64 `mapstructure:"max_step"`
}

type LogConfig struct {
	File    string `mapstructure:"file"`
	Level   string `mapstructure:"level"`
	JSON    bool   `mapstructure:"json"`
	MaxSize int    `mapstructure:"max_size"` // megabytes
	MaxAge  int    `mapstructure:"max_age"`  // days
}

type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Disabled bool   `mapstructure:"disabled"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("graph.mode", graph.Undirected.String())
	v.SetDefault("graph.start_id", 0)
	v.SetDefault("graph.curves", false)

	v.SetDefault("scripts.init", "")
	v.SetDefault("scripts.graph", "")
	v.SetDefault("scripts.algorithms", "")

	v.SetDefault("playback.clean_before_run", true)
	v.SetDefault("playback.auto_step", false)
	v.SetDefault("playback.delay", 600*time.Millisecond)

	v.SetDefault("layout.interval", 50*time.Millisecond)
	v.SetDefault("layout.spring", false)
	v.SetDefault("layout.length", 12.0)
	v.SetDefault("layout.stiffness", 0.08)
	v.SetDefault("layout.repulsion", 60.0)
	v.SetDefault("layout.max_step", 2.0)

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_age", 7)

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.disabled", false)
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path, or ~/.graphstep.yaml when path is empty. A missing
// default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, FileName)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default is the configuration with nothing overridden.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("config: bad defaults: %v", err))
	}
	return cfg
}

func (c Config) Validate() error {
	if _, err := graph.ParseMode(c.Graph.Mode); err != nil {
		return fmt.Errorf("graph.mode: %w", err)
	}
	if c.Graph.StartID < 0 {
		return fmt.Errorf("graph.start_id must not be negative, got %d", c.Graph.StartID)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Layout.Interval <= 0 {
		return fmt.Errorf("layout.interval must be positive, got %s", c.Layout.Interval)
	}
	if c.Playback.Delay < 0 {
		return fmt.Errorf("playback.delay must not be negative, got %s", c.Playback.Delay)
	}
	return nil
}

// Mode is the parsed graph mode. Call after Validate.
func (c Config) Mode() graph.Mode {
	m, _ := graph.ParseMode(c.Graph.Mode)
	return m
}

func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
