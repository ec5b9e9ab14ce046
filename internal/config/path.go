// Package config provides configuration loading and path utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}

// DatabaseExists reports whether a database file is present at path.
// In-memory databases never exist on disk.
func DatabaseExists(path string) bool {
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
