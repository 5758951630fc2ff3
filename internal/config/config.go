// Package config loads the cellarfront settings from flags, an optional
// YAML file and CELLARFRONT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks the environment variables that override settings.
// CELLARFRONT_API_BASE_URL maps to api.base_url.
const EnvPrefix = "CELLARFRONT_"

type API struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

type Sessions struct {
	DB  string        `koanf:"db" validate:"required"`
	TTL time.Duration `koanf:"ttl" validate:"gte=0"`
}

type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type Window struct {
	// DefaultYear is assumed for drafts without a vintage; 0 means the
	// current year.
	DefaultYear int `koanf:"default_year" validate:"gte=0"`
}

// Config holds every setting.
type Config struct {
	Listen   string   `koanf:"listen" validate:"required"`
	API      API      `koanf:"api"`
	Sessions Sessions `koanf:"sessions"`
	Log      Log      `koanf:"log"`
	Window   Window   `koanf:"window"`
}

// Flags returns a flag set carrying every setting with its default. Callers
// may add their own flags before parsing.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Path to a YAML config file")
	fs.String("listen", ":8080", "Address the web UI listens on")
	fs.String("api.base_url", "http://localhost:8000", "Base URL of the wine API")
	fs.Duration("api.timeout", 0, "Timeout per API call (0 waits indefinitely)")
	fs.String("sessions.db", "cellarfront.db", "Path to the SQLite session database")
	fs.Duration("sessions.ttl", 24*time.Hour, "Drop sessions idle for longer than this (0 keeps them)")
	fs.String("log.level", "info", "Log level: debug, info, warn or error")
	fs.Int("window.default_year", 0, "Year assumed for wines without a vintage (0 is the current year)")
	return fs
}

// Load merges the sources in increasing priority: flag defaults, the config
// file, the environment, then flags set on the command line. fs must have
// been parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Unchanged flags only fill keys the file and environment left unset.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns CELLARFRONT_SESSIONS_TTL into sessions.ttl. Only the first
// underscore separates sections; the rest belong to the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewLogger builds the process logger writing text to stderr.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel()}))
}
