// Package xdg resolves XDG Base Directory paths for relaycore.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "relaycore"

// ConfigDir returns the relaycore config directory. XDG_CONFIG_HOME
// wins; otherwise ~/.config is assumed.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// StateDir returns the relaycore state directory. XDG_STATE_HOME wins;
// otherwise ~/.local/state is assumed.
func StateDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "state")
	}
	return filepath.Join(base, appName)
}

// EnsureDir creates path and any missing parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
