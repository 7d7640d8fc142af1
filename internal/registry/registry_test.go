package registry

import (
	"path/filepath"
	"testing"

	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(t *testing.T, s string) flakeref.Ref {
	t.Helper()
	r, err := flakeref.Parse(s)
	require.NoError(t, err)
	return r
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Empty(t, reg.Entries)
	assert.Equal(t, currentVersion, reg.Version)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := New()
	reg.Add(ref(t, "nixpkgs"), ref(t, "github:NixOS/nixpkgs"))

	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, reg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	target, ok := loaded.Lookup(ref(t, "nixpkgs"))
	require.True(t, ok)
	assert.Equal(t, "github:NixOS/nixpkgs", target.String())
}

func TestParseRejectsVersionMismatch(t *testing.T) {
	_, err := Parse([]byte(`{"version":2,"flakes":{}}`))
	require.Error(t, err)
}

func TestMarshalIsSortedAndIndented(t *testing.T) {
	reg := New()
	reg.Add(ref(t, "zeta"), ref(t, "github:a/z"))
	reg.Add(ref(t, "alpha"), ref(t, "github:a/a"))

	data, err := reg.Marshal()
	require.NoError(t, err)
	s := string(data)
	// "alpha" sorts before "zeta" in the map key ordering encoding/json applies.
	assert.Less(t, indexOf(s, "alpha"), indexOf(s, "zeta"))
	assert.Contains(t, s, "    \"version\"")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestStackOrderedPureEmptiesAmbient(t *testing.T) {
	global := New()
	global.Add(ref(t, "nixpkgs"), ref(t, "github:NixOS/nixpkgs"))
	flag := New()

	s := &Stack{Global: global, Flag: flag, Pure: true}
	ordered := s.Ordered()
	require.Len(t, ordered, 1)
	assert.Same(t, flag, ordered[0])
}

func TestStackOrderedFlagWinsOverGlobal(t *testing.T) {
	global := New()
	global.Add(ref(t, "nixpkgs"), ref(t, "github:NixOS/old"))
	flag := New()
	flag.Add(ref(t, "nixpkgs"), ref(t, "github:NixOS/new"))

	s := NewStack(global, New(), New(), flag)
	for _, reg := range s.Ordered() {
		if target, ok := reg.Lookup(ref(t, "nixpkgs")); ok {
			assert.Equal(t, "github:NixOS/new", target.String())
			return
		}
	}
	t.Fatal("no registry matched")
}
