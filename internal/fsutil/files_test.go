package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveFileSameFilesystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), FileModeDefault))

	dst := filepath.Join(dir, "nested", "dst.txt")
	require.NoError(t, Move(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestMoveDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), DirModeDefault))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "f.txt"), []byte("x"), FileModeDefault))

	dst := filepath.Join(dir, "dstdir")
	require.NoError(t, Move(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestMoveRejectsEmptyPaths(t *testing.T) {
	require.Error(t, Move("", "dst"))
	require.Error(t, Move("src", ""))
}

func TestEnsureDirCreatesNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
