// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/plugincall/internal/api"
	"github.com/holomush/plugincall/internal/jsonrpc"
	"github.com/holomush/plugincall/internal/logging"
	"github.com/holomush/plugincall/internal/world"
	"github.com/holomush/plugincall/internal/xdg"
)

// Config is the host configuration. Values come from the config file, then
// command-line flags.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Plugins  PluginsConfig  `koanf:"plugins"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	World    world.Seed     `koanf:"world"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// GatewayConfig configures the gateway socket.
type GatewayConfig struct {
	Socket      string        `koanf:"socket"`
	ReadTimeout time.Duration `koanf:"read_timeout"`
	// Methods is an allow-list of glob patterns. Empty exposes every method.
	Methods []string `koanf:"methods"`
}

// PluginsConfig configures plugin execution.
type PluginsConfig struct {
	Dirs            []string      `koanf:"dirs"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxResponseSize int64         `koanf:"max_response_size"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig selects PostgreSQL attribute storage. An empty URL keeps
// attributes in memory.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// Default configuration values.
const (
	defaultLogFormat       = "json"
	defaultLogLevel        = "info"
	defaultPluginTimeout   = 10 * time.Second
	defaultMaxResponseSize = 1 << 20
)

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-format":        "log.format",
	"log-level":         "log.level",
	"socket":            "gateway.socket",
	"read-timeout":      "gateway.read_timeout",
	"methods":           "gateway.methods",
	"plugins-dir":       "plugins.dirs",
	"plugin-timeout":    "plugins.timeout",
	"max-response-size": "plugins.max_response_size",
	"metrics-addr":      "metrics.addr",
	"database-url":      "database.url",
	"auto-migrate":      "database.auto_migrate",
}

// addConfigFlags registers the flags that override config file values.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.String("log-format", defaultLogFormat, "log format (json or text)")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("socket", "", "gateway socket path (default: XDG_RUNTIME_DIR/plugincall/gateway.sock)")
	flags.Duration("read-timeout", api.DefaultReadTimeout, "gateway request read timeout")
	flags.StringSlice("methods", nil, "gateway method allow-list patterns")
	flags.StringSlice("plugins-dir", nil, "directories of plugin call definition documents (default: XDG_CONFIG_HOME/plugincall/plugins)")
	flags.Duration("plugin-timeout", defaultPluginTimeout, "plugin call timeout (0 = none)")
	flags.Int64("max-response-size", defaultMaxResponseSize, "largest plugin response in bytes")
	flags.String("metrics-addr", "", "metrics and health HTTP address (empty = disabled)")
	flags.String("database-url", "", "PostgreSQL URL for attribute storage (empty = in memory)")
	flags.Bool("auto-migrate", false, "apply database migrations on start")
}

// loadConfig reads path, or the default config file when path is empty, and
// applies flags on top. A missing default file is not an error.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat
	}
	if cfg.Gateway.Socket == "" {
		cfg.Gateway.Socket = api.SocketPath()
	}
	if cfg.Gateway.ReadTimeout == 0 {
		cfg.Gateway.ReadTimeout = api.DefaultReadTimeout
	}
	if len(cfg.Plugins.Dirs) == 0 {
		cfg.Plugins.Dirs = []string{xdg.PluginsDir()}
	}
	if cfg.Plugins.MaxResponseSize == 0 {
		cfg.Plugins.MaxResponseSize = defaultMaxResponseSize
	}
}

// Validate checks that the configuration is usable.
func (cfg *Config) Validate() error {
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("log.format", cfg.Log.Format).
			Errorf("log format must be 'json' or 'text', got %q", cfg.Log.Format)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Gateway.ReadTimeout < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("gateway read timeout must not be negative")
	}
	if cfg.Plugins.Timeout < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("plugin timeout must not be negative")
	}
	if cfg.Plugins.MaxResponseSize < jsonrpc.MaxMessageSize {
		return oops.Code("CONFIG_INVALID").With("plugins.max_response_size", cfg.Plugins.MaxResponseSize).
			Errorf("max response size must be at least %d bytes", jsonrpc.MaxMessageSize)
	}
	return nil
}

// setupLogging installs the default logger for cfg.
func setupLogging(cfg *Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetDefault(logging.Options{
		Service: "plugincall",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
	})
	return nil
}
