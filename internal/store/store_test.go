package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertPathAndAssert(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "flake.nix"), []byte("name := 1"), 0o644))

	path, err := s.InsertPath("myflake", src)
	require.NoError(t, err)
	assert.NoError(t, s.AssertStorePath(path))

	_, err = os.Stat(filepath.Join(path, "flake.nix"))
	assert.NoError(t, err)
}

func TestAssertStorePathRejectsOutsideStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	assert.Error(t, s.AssertStorePath(t.TempDir()))
}

func TestInsertAllowedPath(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	s.InsertAllowedPath("/nix/store/abc-foo")
	assert.Contains(t, s.AllowedPaths(), "/nix/store/abc-foo")
}
