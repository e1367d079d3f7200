// Package filesystem resolves where seodash keeps its local state.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AppDirName is the per-user directory holding the session store and config
const AppDirName = "seodash"

// Common file system errors
var (
	ErrDirNotFound = errors.New("directory not found")
)

// DefaultDataPath returns filename inside the per-user seodash directory.
// When the user config directory cannot be determined the executable directory is used.
func DefaultDataPath(filename string) (string, error) {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppDirName, filename), nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	return filepath.Join(filepath.Dir(exePath), filename), nil
}

// EnsureDirectoryExists creates the directory for the given file path if it doesn't exist
func EnsureDirectoryExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." {
		return nil // Current directory
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}
