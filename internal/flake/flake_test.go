package flake

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/fetch"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/registry"
	"github.com/nixflake/nixflake/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGitExporter writes a fixed flake.nix script for every URI it is
// asked to export, keyed by the flake reference string ("git+" followed by
// the URI the fetcher passes in) so different test fixtures can declare
// different dependency graphs.
type scriptedGitExporter struct {
	scripts map[string]string
	rev     string
}

func (e scriptedGitExporter) Export(ctx context.Context, uri, ref, rev, destDir string) (string, int, error) {
	script, ok := e.scripts["git+"+uri]
	if !ok {
		script = `name := "leaf"
provides := func(deps) { return deps }
`
	}
	if err := os.WriteFile(filepath.Join(destDir, "flake.nix"), []byte(script), 0o644); err != nil {
		return "", 0, err
	}
	return e.rev, 1, nil
}

func newTestLoader(t *testing.T, scripts map[string]string) *Loader {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	exporter := scriptedGitExporter{scripts: scripts, rev: "0123456789abcdef0123456789abcdef01234567"}
	f := fetch.New(st, fetch.Options{CacheDir: t.TempDir(), HTTPTimeout: 5 * time.Second}, exporter)
	return NewLoader(f, st)
}

func TestGetFlakeRequiresNameAndProvides(t *testing.T) {
	const uri = "git+https://example.com/root.git"
	scripts := map[string]string{
		uri: `name := "root"
description := "root flake"
provides := func(deps) { return deps }
`,
	}
	l := newTestLoader(t, scripts)
	ref, err := flakeref.Parse(uri)
	require.NoError(t, err)

	f, err := l.GetFlake(context.Background(), ref, false, true)
	require.NoError(t, err)
	assert.Equal(t, "root", f.ID)
	assert.Equal(t, "root flake", f.Description)
	assert.True(t, f.Ref.IsImmutable())
}

func TestGetFlakeMissingProvidesFails(t *testing.T) {
	const uri = "git+https://example.com/bad.git"
	scripts := map[string]string{uri: `name := "bad"`}
	l := newTestLoader(t, scripts)
	ref, err := flakeref.Parse(uri)
	require.NoError(t, err)

	_, err = l.GetFlake(context.Background(), ref, false, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrMissingFlakeAttribute)
}

func TestResolveFlakeWithNonFlakeDependency(t *testing.T) {
	const rootURI = "git+https://example.com/root.git"
	scripts := map[string]string{
		rootURI: `name := "root"
nonFlakeRequires := {data: "git+https://example.com/data.git"}
provides := func(deps) { return deps }
`,
	}
	l := newTestLoader(t, scripts)
	ref, err := flakeref.Parse(rootURI)
	require.NoError(t, err)

	deps, err := l.ResolveFlake(context.Background(), ref, &registry.Stack{}, false)
	require.NoError(t, err)
	require.Len(t, deps.NonFlakeDeps, 1)
	assert.Equal(t, "data", deps.NonFlakeDeps[0].Alias)
}

func TestResolveFlakeDetectsDependencyCycle(t *testing.T) {
	const rootURI = "git+https://example.com/root.git"
	scripts := map[string]string{
		rootURI: `name := "root"
requires := ["git+https://example.com/root.git"]
provides := func(deps) { return deps }
`,
	}
	l := newTestLoader(t, scripts)
	ref, err := flakeref.Parse(rootURI)
	require.NoError(t, err)

	_, err = l.ResolveFlake(context.Background(), ref, &registry.Stack{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrDependencyCycle)
}

func TestResolveFlakeBuildsLockFile(t *testing.T) {
	const rootURI = "git+https://example.com/root.git"
	const childURI = "git+https://example.com/child.git"
	scripts := map[string]string{
		rootURI: `name := "root"
requires := ["git+https://example.com/child.git"]
provides := func(deps) { return deps }
`,
		childURI: `name := "child"
provides := func(deps) { return deps }
`,
	}
	l := newTestLoader(t, scripts)
	ref, err := flakeref.Parse(rootURI)
	require.NoError(t, err)

	deps, err := l.ResolveFlake(context.Background(), ref, &registry.Stack{}, false)
	require.NoError(t, err)

	lf := deps.ToLockFile()
	require.Contains(t, lf.Requires, "child")
	assert.True(t, lf.Requires["child"].URI.IsImmutable())

	value := MakeFlakeValue(deps)
	assert.Equal(t, "root", value.ID)
	assert.Contains(t, value.Deps, "child")
}

func TestValueProvidesScopedToOwnDeps(t *testing.T) {
	const rootURI = "git+https://example.com/root.git"
	const childURI = "git+https://example.com/child.git"
	scripts := map[string]string{
		rootURI: `name := "root"
requires := ["git+https://example.com/child.git"]
provides := func(deps) { return deps.child.id }
`,
		childURI: `name := "child"
provides := func(deps) { return deps }
`,
	}
	l := newTestLoader(t, scripts)
	ref, err := flakeref.Parse(rootURI)
	require.NoError(t, err)

	deps, err := l.ResolveFlake(context.Background(), ref, &registry.Stack{}, false)
	require.NoError(t, err)

	value := MakeFlakeValue(deps)
	result, err := value.Provides()
	require.NoError(t, err)
	assert.Equal(t, "child", result)
}
