package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}

// DefaultSnapshotPath is where the cache snapshot database lives unless
// configured otherwise. When the home directory cannot be resolved the
// snapshot lands in the working directory.
func DefaultSnapshotPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kakeibo-cache.db"
	}
	return filepath.Join(home, ".local", "share", "ksync", "cache.db")
}
