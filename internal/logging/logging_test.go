package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoWritesToTestOutput(t *testing.T) {
	var buf bytes.Buffer
	SetTestOutput(&buf)
	defer UnsetTestOutput()

	Init("info", "text")
	Info("resolving flake", Fields{"ref": "github:NixOS/nixpkgs"})

	assert.Contains(t, buf.String(), "resolving flake")
	assert.Contains(t, buf.String(), "github:NixOS/nixpkgs")
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	SetTestOutput(&buf)
	defer UnsetTestOutput()

	Init("info", "text")
	Debug("should not appear")

	assert.Empty(t, buf.String())
}
