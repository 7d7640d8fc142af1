package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFlake = `
name := "hello"
description := "a sample flake"
requires := ["github:NixOS/nixpkgs"]
nonFlakeRequires := {data: "github:example/data"}
provides := func(deps) {
	return deps
}
`

func TestEvalFileProjectsAttrs(t *testing.T) {
	attrs, err := EvalFile([]byte(sampleFlake))
	require.NoError(t, err)

	name, err := attrs.RequireString("name")
	require.NoError(t, err)
	assert.Equal(t, "hello", name)

	desc, ok := attrs.String("description")
	assert.True(t, ok)
	assert.Equal(t, "a sample flake", desc)

	reqs, ok := attrs.StringList("requires")
	assert.True(t, ok)
	assert.Equal(t, []string{"github:NixOS/nixpkgs"}, reqs)

	nonFlake, ok := attrs.StringMap("nonFlakeRequires")
	assert.True(t, ok)
	assert.Equal(t, "github:example/data", nonFlake["data"])

	assert.True(t, attrs.HasFunction("provides"))
}

func TestEvalFileMissingAttribute(t *testing.T) {
	attrs, err := EvalFile([]byte(`name := "hello"`))
	require.NoError(t, err)

	_, err = attrs.RequireString("provides")
	require.Error(t, err)
}

func TestCallProvidesBindsArguments(t *testing.T) {
	const script = `
name := "hello"
provides := func(deps) {
	return deps.nixpkgs.outPath
}
`
	attrs, err := EvalFile([]byte(script))
	require.NoError(t, err)

	result, err := attrs.CallProvides(map[string]interface{}{
		"nixpkgs": map[string]interface{}{"outPath": "/nix/store/abc-nixpkgs"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/nix/store/abc-nixpkgs", result)
}
