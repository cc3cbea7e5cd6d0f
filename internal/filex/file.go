// Package filex has small filesystem helpers for the client's local files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// UserDataPath returns name inside the per-user config directory of app,
// e.g. ~/.config/metaltracker/client.db. Without a usable home directory it
// returns name, which resolves against the working directory.
func UserDataPath(app, name string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return name
	}
	return filepath.Join(dir, app, name)
}

// EnsureParentDir creates the directory that will hold path, readable only
// by the owner, and returns path made absolute.
func EnsureParentDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return abs, nil
}
