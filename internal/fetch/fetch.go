// Package fetch implements the Fetcher: dispatching a resolved flake
// reference to the GitHub-tarball, git-clone, or local-path fetch strategy
// and returning the resulting store path and pinned revision.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/logging"
	"github.com/nixflake/nixflake/internal/store"
)

// SourceInfo describes the result of a successful fetch.
type SourceInfo struct {
	StorePath string
	Rev       string
	RevCount  int // 0 when the source (e.g. a GitHub tarball) carries no history
}

// GitExporter exports a git ref to a fresh directory, returning the checked
// out commit and, when available, its commit depth.
type GitExporter interface {
	Export(ctx context.Context, uri, ref, rev, destDir string) (resolvedRev string, revCount int, err error)
}

// Options configures a Fetcher.
type Options struct {
	CacheDir    string
	TarballTTL  time.Duration
	HTTPTimeout time.Duration
	UserAgent   string
}

// Fetcher dispatches fetches by reference variant and enforces the purity
// rule: a non-immutable reference is rejected before any network activity
// when pure mode forbids it.
type Fetcher struct {
	store  *store.Store
	github *githubClient
	git    GitExporter
	opts   Options
}

// New constructs a Fetcher backed by st, using the real git CLI for git/path
// variants unless gitExporter is non-nil (tests supply a fake).
func New(st *store.Store, opts Options, gitExporter GitExporter) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "nixflake/1"
	}
	if opts.HTTPTimeout == 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	if gitExporter == nil {
		gitExporter = NewCLIGitExporter()
	}
	return &Fetcher{
		store:  st,
		github: newGitHubClient(opts.HTTPTimeout, opts.UserAgent),
		git:    gitExporter,
		opts:   opts,
	}
}

// Fetch materializes ref in the store. impureTop marks the single top-level
// call of a resolution performed with the root reference supplied directly
// by the user; every recursive dependency fetch must pass false.
func (f *Fetcher) Fetch(ctx context.Context, ref flakeref.Ref, pure, impureTop bool) (SourceInfo, flakeref.Ref, error) {
	if pure && !impureTop && !ref.IsImmutable() {
		return SourceInfo{}, flakeref.Ref{}, fmt.Errorf("%w: %s", errdefs.ErrPurityViolation, ref.String())
	}

	logging.Info("fetching flake source", logging.Fields{"ref": ref.String(), "kind": ref.Kind.String()})

	switch ref.Kind {
	case flakeref.KindGitHub:
		return f.fetchGitHub(ctx, ref)
	case flakeref.KindGit:
		return f.fetchGit(ctx, ref)
	case flakeref.KindPath:
		return f.fetchPath(ctx, ref)
	default:
		return SourceInfo{}, flakeref.Ref{}, fmt.Errorf("%w: cannot fetch indirect reference %s", errdefs.ErrUnresolvedIndirectRef, ref.String())
	}
}

func (f *Fetcher) fetchGitHub(ctx context.Context, ref flakeref.Ref) (SourceInfo, flakeref.Ref, error) {
	revOrRef := ref.Rev
	if revOrRef == "" {
		revOrRef = ref.Ref
	}
	if revOrRef == "" {
		revOrRef = "master"
	}

	ttl := f.opts.TarballTTL
	if ref.IsImmutable() {
		ttl = 0 // a pinned rev never needs revalidation
	}

	archivePath, rev, err := f.github.fetchTarball(ctx, f.cacheSubdir("tarballs"), ref.Owner, ref.Repo, revOrRef, ttl)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, err
	}

	workDir, err := os.MkdirTemp(f.cacheSubdir("tmp"), "github-*")
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, errdefs.Wrap(err, "create extraction dir")
	}
	if err := extractArchive(ctx, archivePath, workDir); err != nil {
		return SourceInfo{}, flakeref.Ref{}, err
	}
	srcDir, err := singleSubdir(workDir)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, err
	}

	storePath, err := f.store.InsertPath(ref.Repo, srcDir)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, err
	}

	resolved := ref.BaseRef()
	resolved.Rev = rev
	return SourceInfo{StorePath: storePath, Rev: rev}, resolved, nil
}

func (f *Fetcher) fetchGit(ctx context.Context, ref flakeref.Ref) (SourceInfo, flakeref.Ref, error) {
	workDir, err := os.MkdirTemp(f.cacheSubdir("tmp"), "git-*")
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, errdefs.Wrap(err, "create export dir")
	}
	rev, revCount, err := f.git.Export(ctx, ref.URI, ref.Ref, ref.Rev, workDir)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, errdefs.Wrapf(err, "export git %s", ref.URI)
	}
	storePath, err := f.store.InsertPath(filepath.Base(ref.URI), workDir)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, err
	}
	return SourceInfo{StorePath: storePath, Rev: rev, RevCount: revCount}, ref.WithRev(rev), nil
}

func (f *Fetcher) fetchPath(ctx context.Context, ref flakeref.Ref) (SourceInfo, flakeref.Ref, error) {
	if _, err := os.Stat(filepath.Join(ref.URI, ".git")); err != nil {
		return SourceInfo{}, flakeref.Ref{}, fmt.Errorf("%w: %s", errdefs.ErrNotAGitRepo, ref.URI)
	}
	workDir, err := os.MkdirTemp(f.cacheSubdir("tmp"), "path-*")
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, errdefs.Wrap(err, "create export dir")
	}
	rev, revCount, err := f.git.Export(ctx, ref.URI, "", "", workDir)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, errdefs.Wrapf(err, "export path %s", ref.URI)
	}
	storePath, err := f.store.InsertPath(filepath.Base(ref.URI), workDir)
	if err != nil {
		return SourceInfo{}, flakeref.Ref{}, err
	}
	return SourceInfo{StorePath: storePath, Rev: rev, RevCount: revCount}, ref.WithRev(rev), nil
}

func (f *Fetcher) cacheSubdir(name string) string {
	dir := filepath.Join(f.opts.CacheDir, name)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func singleSubdir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errdefs.Wrap(err, "read extracted archive")
	}
	for _, e := range entries {
		if e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return dir, nil
}
