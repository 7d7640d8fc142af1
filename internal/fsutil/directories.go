package fsutil

import (
	"os"
	"path/filepath"
)

// EnsureDir creates path and all necessary parent directories if they don't
// exist, using DirModeDefault permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of filePath if it doesn't exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}
