// Package config loads CLI settings from a YAML file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, TSCAT_*
// environment variables, then command-line flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvDB       = "TSCAT_DB"
	EnvAuthor   = "TSCAT_AUTHOR"
	EnvLogLevel = "TSCAT_LOG_LEVEL"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the CLI configuration.
type Config struct {
	DB       string `yaml:"db"`
	Author   string `yaml:"author"`
	LogLevel string `yaml:"log_level"`
	Format   string `yaml:"format"`
	Watch    Watch  `yaml:"watch"`
}

// Watch configures the inbox watcher.
type Watch struct {
	Pattern string `yaml:"pattern"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:       "tscat.db",
		LogLevel: "info",
		Format:   FormatText,
		Watch:    Watch{Pattern: "**/*.json"},
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment through lookup, which is
// normally os.LookupEnv. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.DB = v
	}
	if v, ok := lookup(EnvAuthor); ok && v != "" {
		c.Author = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.DB == "" {
		return errors.New("db: is empty")
	}
	if c.Format != FormatText && c.Format != FormatJSON {
		return fmt.Errorf("format: %q must be one of %s, %s", c.Format, FormatText, FormatJSON)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if !doublestar.ValidatePattern(c.Watch.Pattern) {
		return fmt.Errorf("watch.pattern: %q is not a valid glob", c.Watch.Pattern)
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
