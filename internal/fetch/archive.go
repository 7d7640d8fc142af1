package fetch

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
	"github.com/nixflake/nixflake/internal/errdefs"
)

// extractArchive extracts every entry of archivePath into destDir. GitHub's
// tarball endpoint can return plain tar or gzipped tar depending on
// Accept-Encoding negotiation, so this uses the format-sniffing filesystem
// view rather than assuming a specific compression.
func extractArchive(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return errdefs.Wrapf(err, "open archive %s", archivePath)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errdefs.Wrapf(err, "create extraction dir %s", destDir)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return extractEntry(fsys, path, destDir, d)
	})
}

func extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}
	// Symlinks inside a fetched flake source tree are never followed or
	// recreated: a malicious tarball could otherwise point one outside the
	// extraction directory.
	info, err := d.Info()
	if err != nil {
		return errdefs.Wrapf(err, "stat archive entry %s", path)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}

	target := filepath.Join(destDir, path)
	if d.IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	src, err := fsys.Open(path)
	if err != nil {
		return errdefs.Wrapf(err, "open archive entry %s", path)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errdefs.Wrapf(err, "create parent dir for %s", target)
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errdefs.Wrapf(err, "create %s", target)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return errdefs.Wrapf(err, "write %s", target)
	}
	return nil
}
