// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

// Package config loads wpikzbior settings from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/logging"
	"github.com/wpikzbior/wpikzbior/internal/xdg"
)

// Config holds the server settings.
type Config struct {
	ListenAddr      string        `koanf:"listen_addr"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	DatabaseURL     string        `koanf:"database_url"`
	LogFormat       string        `koanf:"log_format"`
	LogLevel        string        `koanf:"log_level"`
	SecureCookies   bool          `koanf:"secure_cookies"`
	SessionLifetime time.Duration `koanf:"session_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	// TouchLastAccess records last_access in the background after each
	// bearer authentication.
	TouchLastAccess bool          `koanf:"touch_last_access"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ListenAddr:      "0.0.0.0:2025",
		MetricsAddr:     "127.0.0.1:9100",
		LogFormat:       "json",
		LogLevel:        "info",
		SecureCookies:   true,
		SessionLifetime: auth.SessionLifetime,
		AutoMigrate:     true,
		ShutdownTimeout: 10 * time.Second,
		ConnectTimeout:  30 * time.Second,
	}
}

// FlagConfig is the flag naming the YAML file to load.
const FlagConfig = "config"

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"listen-addr":       "listen_addr",
	"metrics-addr":      "metrics_addr",
	"database-url":      "database_url",
	"log-format":        "log_format",
	"log-level":         "log_level",
	"secure-cookies":    "secure_cookies",
	"session-lifetime":  "session_lifetime",
	"auto-migrate":      "auto_migrate",
	"shutdown-timeout":  "shutdown_timeout",
	"connect-timeout":   "connect_timeout",
	"touch-last-access": "touch_last_access",
}

// RegisterFlags adds the config flags to fs. Their defaults match Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "config file (default: $XDG_CONFIG_HOME/wpikzbior/config.yaml if present)")
	fs.String("listen-addr", d.ListenAddr, "web listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool("secure-cookies", d.SecureCookies, "mark the session cookie Secure")
	fs.Duration("session-lifetime", d.SessionLifetime, "session lifetime")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply pending migrations on start")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout")
	fs.Duration("connect-timeout", d.ConnectTimeout, "database connect timeout")
	fs.Bool("touch-last-access", d.TouchLastAccess, "update session last_access on each bearer authentication")
}

// LoadOptions controls where Load reads from. Zero values are usable.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set.
	Path string
	// Flags, if set, supplies explicitly changed flags.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds a Config from defaults, the config file, DATABASE_URL and
// PORT, and flags. The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")
	d := Default()
	for key, val := range map[string]any{
		"listen_addr":       d.ListenAddr,
		"metrics_addr":      d.MetricsAddr,
		"database_url":      d.DatabaseURL,
		"log_format":        d.LogFormat,
		"log_level":         d.LogLevel,
		"secure_cookies":    d.SecureCookies,
		"session_lifetime":  d.SessionLifetime,
		"auto_migrate":      d.AutoMigrate,
		"shutdown_timeout":  d.ShutdownTimeout,
		"connect_timeout":   d.ConnectTimeout,
		"touch_last_access": d.TouchLastAccess,
	} {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	path, explicit := opts.Path, opts.Path != ""
	if !explicit && opts.Flags != nil {
		if p, err := opts.Flags.GetString(FlagConfig); err == nil && p != "" {
			path, explicit = p, true
		}
	}
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(k, path, explicit); err != nil {
			return nil, err
		}
	}

	if url := getenv("DATABASE_URL"); url != "" {
		_ = k.Set("database_url", url) //nolint:errcheck // Set on a flat key cannot fail
	}
	if port := getenv("PORT"); port != "" {
		host, _, err := net.SplitHostPort(k.String("listen_addr"))
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("field", "listen_addr").Wrap(err)
		}
		_ = k.Set("listen_addr", net.JoinHostPort(host, port)) //nolint:errcheck // Set on a flat key cannot fail
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return invalid("listen_addr", "listen_addr must be host:port, got %q", c.ListenAddr)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return invalid("metrics_addr", "metrics_addr must be host:port or empty, got %q", c.MetricsAddr)
		}
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return invalid("database_url", "database_url is required (set DATABASE_URL)")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", "log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SessionLifetime <= 0 {
		return invalid("session_lifetime", "session_lifetime must be positive, got %s", c.SessionLifetime)
	}
	if c.ShutdownTimeout <= 0 {
		return invalid("shutdown_timeout", "shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return invalid("connect_timeout", "connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}
