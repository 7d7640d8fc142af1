package errdefs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrNotAGitRepo, "path %s", "/tmp/foo")
	assert.True(t, errors.Is(err, ErrNotAGitRepo))
	assert.Contains(t, err.Error(), "/tmp/foo")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}
