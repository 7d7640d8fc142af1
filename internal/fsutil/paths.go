package fsutil

import (
	"os"
	"path/filepath"
)

// AppName names the application's subdirectory under the platform cache,
// config, and data directories.
const AppName = "nixflake"

// CacheDir returns the platform-specific cache directory for the resolver's
// downloaded tarballs and git exports.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DataDir returns the data directory for the content-addressed store:
// $XDG_DATA_HOME/nixflake if that variable is set, else
// ~/.local/share/nixflake, on every platform.
func DataDir() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	return filepath.Join(dir, ".local", "share", AppName), nil
}

// StoreDir returns the directory backing the content-addressed store.
func StoreDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store"), nil
}

// EnsureDirs creates the cache and store directories if they don't exist.
func EnsureDirs() error {
	dirs := []func() (string, error){CacheDir, StoreDir}
	for _, dirFn := range dirs {
		dir, err := dirFn()
		if err != nil {
			return err
		}
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}
