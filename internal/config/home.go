package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetHome returns the parallelizer home directory
// Priority order:
//  1. PARALLELIZER_HOME environment variable (if set)
//  2. .parallelizer under the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	if home := os.Getenv("PARALLELIZER_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create parallelizer home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".parallelizer")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create parallelizer home directory: %w", err)
	}
	return home, nil
}

// ResolveDBPath returns an absolute run history path. Relative paths are
// resolved against the parallelizer home's parent so the default
// ".parallelizer/history.db" lands inside the home directory.
func ResolveDBPath(dbPath string) (string, error) {
	if dbPath == ":memory:" || filepath.IsAbs(dbPath) {
		return dbPath, nil
	}
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	if rel, ok := trimHomePrefix(dbPath); ok {
		return filepath.Join(home, rel), nil
	}
	return filepath.Join(filepath.Dir(home), dbPath), nil
}

func trimHomePrefix(p string) (string, bool) {
	clean := filepath.Clean(p)
	prefix := ".parallelizer" + string(filepath.Separator)
	if len(clean) > len(prefix) && clean[:len(prefix)] == prefix {
		return clean[len(prefix):], true
	}
	return "", false
}
