// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves the XDG Base Directory locations plugincall uses for
// its configuration, plugin definitions and gateway socket.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "plugincall"

func baseDir(env string, fallback ...string) string {
	if base := os.Getenv(env); base != "" {
		return base
	}
	return filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
}

// ConfigDir returns $XDG_CONFIG_HOME/plugincall, or ~/.config/plugincall.
func ConfigDir() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), appName)
}

// ConfigFile returns the default configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// PluginsDir returns the default directory plugin definition documents are
// loaded from.
func PluginsDir() string {
	return filepath.Join(ConfigDir(), "plugins")
}

// StateDir returns $XDG_STATE_HOME/plugincall, or ~/.local/state/plugincall.
func StateDir() string {
	return filepath.Join(baseDir("XDG_STATE_HOME", ".local", "state"), appName)
}

// RuntimeDir returns $XDG_RUNTIME_DIR/plugincall, falling back to
// StateDir()/run when XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if base := os.Getenv("XDG_RUNTIME_DIR"); base != "" {
		return filepath.Join(base, appName)
	}
	return filepath.Join(StateDir(), "run")
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("DIR_CREATE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
