// Package errdefs collects the sentinel error values raised by the resolver
// and the helpers used to attach context to them.
package errdefs

import "fmt"

// Sentinel errors for the resolver's documented error kinds. Call sites wrap
// these with fmt.Errorf's %w verb (or Wrap/Wrapf) so errors.Is still matches
// while the message carries the offending reference or path.
var (
	ErrVersionMismatch       = fmt.Errorf("unsupported file version")
	ErrPurityViolation       = fmt.Errorf("mutable reference not allowed in pure evaluation mode")
	ErrCycleInRegistry       = fmt.Errorf("cycle detected while resolving registry entries")
	ErrUnresolvedIndirectRef = fmt.Errorf("indirect reference did not resolve to a direct reference")
	ErrMalformedETag         = fmt.Errorf("malformed ETag in GitHub response")
	ErrMissingFlakeAttribute = fmt.Errorf("flake is missing a required attribute")
	ErrNotAGitRepo           = fmt.Errorf("path is not a git repository")
	ErrUsage                 = fmt.Errorf("invalid usage")
	ErrDependencyCycle       = fmt.Errorf("cycle detected in dependency graph")
	ErrSymlinkNotAllowed     = fmt.Errorf("symlink not allowed in flake source tree")
)

// Wrap attaches msg as context to err, preserving errors.Is/As matching.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf attaches a formatted message as context to err.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
