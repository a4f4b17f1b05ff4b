package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/tunesmith/internal/logger"
)

// Config represents the tunesmith configuration file
// (~/.config/tunesmith/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	Checkpoint string `yaml:"checkpoint"`
	Corpus     string `yaml:"corpus"`

	// Generation defaults
	SeedText    *string  `yaml:"seed_text"`
	Temperature *float64 `yaml:"temperature"`
	Length      *int64   `yaml:"length"`

	// Host limits
	MaxLength      *int64   `yaml:"max_length"`
	MaxTemperature *float64 `yaml:"max_temperature"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tunesmith", "config.yaml")
}

// LoadConfig reads path, or the default location when path is empty.
// A missing file yields a zero Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setupLogging runs before every command: it loads the config file and
// installs the logger in the context.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	log, err := logger.ForFormat(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, err
	}
	ctx = logger.WithContext(ctx, log)
	return withConfig(ctx, cfg), nil
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFromContext(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}

// applyGenerateConfig applies config file defaults to generate command
// variables when the corresponding flag was not explicitly set.
func applyGenerateConfig(c *cli.Command, cfg Config, seedText *string, temp *float64, length *int64) {
	if cfg.SeedText != nil && !c.IsSet("seed-text") {
		*seedText = *cfg.SeedText
	}
	if cfg.Temperature != nil && !c.IsSet("temperature") {
		*temp = *cfg.Temperature
	}
	if cfg.Length != nil && !c.IsSet("length") {
		*length = *cfg.Length
	}
}

// applyLimitsConfig applies config file host limits.
func applyLimitsConfig(c *cli.Command, cfg Config, maxLength *int64, maxTemp *float64) {
	if cfg.MaxLength != nil && !c.IsSet("max-length") {
		*maxLength = *cfg.MaxLength
	}
	if cfg.MaxTemperature != nil && !c.IsSet("max-temperature") {
		*maxTemp = *cfg.MaxTemperature
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
