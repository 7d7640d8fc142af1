// Package flake implements the flake and non-flake loaders: fetching a
// resolved reference, evaluating its metadata, and reading its embedded
// lock file.
package flake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/eval"
	"github.com/nixflake/nixflake/internal/fetch"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/lockfile"
	"github.com/nixflake/nixflake/internal/logging"
	"github.com/nixflake/nixflake/internal/store"
)

// Flake is the metadata extracted from a materialized flake source tree.
type Flake struct {
	ID               string
	Ref              flakeref.Ref
	Path             string
	Description      string
	Requires         []flakeref.Ref
	NonFlakeRequires map[string]flakeref.Ref
	RevCount         int
	LockFile         *lockfile.LockFile

	attrs *eval.Attrs
}

// CallProvides invokes the flake's "provides" function with deps bound as its
// sole argument, returning whatever the script returns.
func (f *Flake) CallProvides(deps map[string]interface{}) (interface{}, error) {
	return f.attrs.CallProvides(deps)
}

// NonFlake is a fetched source dependency with no flake.nix of its own.
type NonFlake struct {
	Alias string
	Ref   flakeref.Ref
	Path  string
}

// Loader fetches and evaluates flakes and non-flakes.
type Loader struct {
	Fetcher *fetch.Fetcher
	Store   *store.Store
}

// NewLoader constructs a Loader over the given fetcher and store.
func NewLoader(f *fetch.Fetcher, st *store.Store) *Loader {
	return &Loader{Fetcher: f, Store: st}
}

// GetFlake fetches ref, evaluates its flake.nix, and reads its embedded
// flake.lock if present.
func (l *Loader) GetFlake(ctx context.Context, ref flakeref.Ref, pure, impureTop bool) (*Flake, error) {
	info, resolved, err := l.Fetcher.Fetch(ctx, ref, pure, impureTop)
	if err != nil {
		return nil, err
	}
	if err := l.Store.AssertStorePath(info.StorePath); err != nil {
		return nil, err
	}
	l.Store.InsertAllowedPath(info.StorePath)

	// A GitHub reference is rewritten so downstream consumers observe the
	// pinned revision rather than the floating ref they started with.
	if ref.Kind == flakeref.KindGitHub {
		resolved = ref.BaseRef()
		resolved.Rev = info.Rev
	}

	source, err := readTreeFile(info.StorePath, "flake.nix")
	if err != nil {
		return nil, err
	}
	attrs, err := eval.EvalFile(source)
	if err != nil {
		return nil, errdefs.Wrapf(err, "evaluate %s", filepath.Join(info.StorePath, "flake.nix"))
	}

	id, err := attrs.RequireString("name")
	if err != nil {
		return nil, err
	}
	if !attrs.HasFunction("provides") {
		return nil, fmt.Errorf("%w: %q", errdefs.ErrMissingFlakeAttribute, "provides")
	}

	f := &Flake{
		ID:    id,
		Ref:   resolved,
		Path:  info.StorePath,
		attrs: attrs,
	}
	f.Description, _ = attrs.String("description")
	if reqStrs, ok := attrs.StringList("requires"); ok {
		for _, s := range reqStrs {
			r, err := flakeref.Parse(s)
			if err != nil {
				return nil, errdefs.Wrapf(err, "requires entry %q in %s", s, id)
			}
			f.Requires = append(f.Requires, r)
		}
	}
	if nonFlakeStrs, ok := attrs.StringMap("nonFlakeRequires"); ok {
		f.NonFlakeRequires = make(map[string]flakeref.Ref, len(nonFlakeStrs))
		for alias, s := range nonFlakeStrs {
			r, err := flakeref.Parse(s)
			if err != nil {
				return nil, errdefs.Wrapf(err, "nonFlakeRequires entry %q in %s", s, id)
			}
			f.NonFlakeRequires[alias] = r
		}
	}
	if info.RevCount > 0 {
		f.RevCount = info.RevCount
	}

	f.LockFile = lockfile.New()
	if lockData, err := readTreeFile(info.StorePath, "flake.lock"); err == nil {
		lf, err := lockfile.Parse(lockData)
		if err != nil {
			return nil, errdefs.Wrapf(err, "embedded flake.lock of %s", id)
		}
		f.LockFile = lf
	}

	logging.Info("loaded flake", logging.Fields{"id": id, "ref": resolved.String()})
	return f, nil
}

// GetNonFlake fetches ref without evaluating any metadata file.
func (l *Loader) GetNonFlake(ctx context.Context, alias string, ref flakeref.Ref, pure, impureTop bool) (*NonFlake, error) {
	info, resolved, err := l.Fetcher.Fetch(ctx, ref, pure, impureTop)
	if err != nil {
		return nil, err
	}
	if err := l.Store.AssertStorePath(info.StorePath); err != nil {
		return nil, err
	}
	l.Store.InsertAllowedPath(info.StorePath)
	if ref.Kind == flakeref.KindGitHub {
		resolved = ref.BaseRef()
		resolved.Rev = info.Rev
	}
	return &NonFlake{Alias: alias, Ref: resolved, Path: info.StorePath}, nil
}

// readTreeFile reads name from within root, refusing to follow a symlink at
// any path component: a fetched source tree is untrusted input, and a
// symlink pointing outside root must not let flake.nix or flake.lock
// escape it.
func readTreeFile(root, name string) ([]byte, error) {
	full := filepath.Join(root, name)
	if err := verifyNoSymlinks(root, full); err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func verifyNoSymlinks(root, full string) error {
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return err
	}
	cur := root
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", errdefs.ErrSymlinkNotAllowed, cur)
		}
	}
	return nil
}
