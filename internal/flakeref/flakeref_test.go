package flakeref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"github:NixOS/nixpkgs",
		"github:NixOS/nixpkgs/release-23.11",
		"github:NixOS/nixpkgs?rev=" + "0123456789abcdef0123456789abcdef01234567",
		"git+https://example.com/repo.git",
		"git+https://example.com/repo.git?ref=main",
		"file:///home/user/flake",
		"nixpkgs",
	}
	for _, c := range cases {
		ref, err := Parse(c)
		require.NoError(t, err, c)
		assert.Equal(t, c, ref.String(), "round-trip mismatch for %q", c)
	}
}

func TestParseGitHubRef(t *testing.T) {
	ref, err := Parse("github:NixOS/nixpkgs/nixos-23.11")
	require.NoError(t, err)
	assert.Equal(t, KindGitHub, ref.Kind)
	assert.Equal(t, "NixOS", ref.Owner)
	assert.Equal(t, "nixpkgs", ref.Repo)
	assert.Equal(t, "nixos-23.11", ref.Ref)
	assert.False(t, ref.IsImmutable())
	assert.True(t, ref.IsDirect())
}

func TestParseAlias(t *testing.T) {
	ref, err := Parse("nixpkgs")
	require.NoError(t, err)
	assert.Equal(t, KindAlias, ref.Kind)
	assert.Equal(t, "nixpkgs", ref.Name)
	assert.False(t, ref.IsDirect())
}

func TestParsePath(t *testing.T) {
	ref, err := Parse("./local/flake")
	require.NoError(t, err)
	assert.Equal(t, KindPath, ref.Kind)
	assert.True(t, ref.IsDirect())
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestBaseRef(t *testing.T) {
	ref, err := Parse("github:NixOS/nixpkgs/release-23.11?rev=0123456789abcdef0123456789abcdef01234567")
	require.NoError(t, err)
	base := ref.BaseRef()
	assert.Empty(t, base.Ref)
	assert.Empty(t, base.Rev)
	assert.Equal(t, ref.Owner, base.Owner)
}

func TestIsImmutable(t *testing.T) {
	direct, err := Parse("git+https://example.com/repo.git")
	require.NoError(t, err)
	assert.False(t, direct.IsImmutable())

	pinned := direct.WithRev("0123456789abcdef0123456789abcdef01234567")
	assert.True(t, pinned.IsImmutable())
}

func TestValidRev(t *testing.T) {
	assert.True(t, ValidRev("0123456789abcdef0123456789abcdef01234567"))
	assert.False(t, ValidRev("tooshort"))
	assert.False(t, ValidRev("zzzz6789abcdef0123456789abcdef0123456789"))
}

func TestEqual(t *testing.T) {
	a, _ := Parse("github:NixOS/nixpkgs")
	b, _ := Parse("github:NixOS/nixpkgs")
	c, _ := Parse("github:NixOS/nix")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
