package fetch

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nixflake/nixflake/internal/errdefs"
)

// CLIGitExporter implements GitExporter by shelling out to the system git
// binary: clone the requested ref (or the default branch), check out rev if
// pinned, and read back the resolved commit and its depth.
type CLIGitExporter struct{}

// NewCLIGitExporter returns the default GitExporter.
func NewCLIGitExporter() *CLIGitExporter { return &CLIGitExporter{} }

// Export clones uri into destDir, checking out rev (if set) or ref (if set),
// and returns the resulting commit hash and commit depth.
func (CLIGitExporter) Export(ctx context.Context, uri, ref, rev, destDir string) (string, int, error) {
	args := []string{"clone", "--quiet"}
	if ref != "" && rev == "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, uri, destDir)
	if err := runGit(ctx, "", args...); err != nil {
		return "", 0, errdefs.Wrapf(err, "clone %s", uri)
	}

	if rev != "" {
		if err := runGit(ctx, destDir, "checkout", "--quiet", rev); err != nil {
			return "", 0, errdefs.Wrapf(err, "checkout %s", rev)
		}
	}

	resolvedRev, err := gitOutput(ctx, destDir, "rev-parse", "HEAD")
	if err != nil {
		return "", 0, errdefs.Wrap(err, "resolve HEAD")
	}
	resolvedRev = strings.TrimSpace(resolvedRev)

	countStr, err := gitOutput(ctx, destDir, "rev-list", "--count", "HEAD")
	revCount := 0
	if err == nil {
		revCount, _ = strconv.Atoi(strings.TrimSpace(countStr))
	}

	return resolvedRev, revCount, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errdefs.Wrapf(err, "git %s: %s", strings.Join(args, " "), stderr.String())
	}
	return nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}
