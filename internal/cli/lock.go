package cli

import (
	"fmt"
	"path/filepath"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/lockfile"
	"github.com/spf13/cobra"
)

// NewLockCmd creates the lock command group.
func NewLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect and update flake.lock files",
	}
	cmd.AddCommand(newLockUpdateCmd(), newLockShowCmd())
	return cmd
}

func newLockUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <path>",
		Short: "Resolve the local flake at path and write its closure to path/flake.lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runLockUpdate,
	}
}

// runLockUpdate implements UpdateLockFile(path): the top reference is always
// the local flake rooted at path, never a GitHub or alias reference -- there
// is no sensible lock file to write for those. path is threaded through
// flakeref.Parse rather than built by hand so that the same "does this look
// like a local path" rules apply as everywhere else a reference is parsed.
func runLockUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	ref, err := flakeref.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse path %q: %w", args[0], err)
	}
	if ref.Kind != flakeref.KindPath {
		return fmt.Errorf("%w: lock update requires a local path, got %s", errdefs.ErrUsage, ref.Kind)
	}

	stack, err := loadRegistryStack(cfg)
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	deps, err := loader.ResolveFlake(cmd.Context(), ref, stack, cfg.Pure)
	if err != nil {
		return err
	}

	lockPath := filepath.Join(ref.URI, "flake.lock")
	lf := deps.ToLockFile()
	if err := lf.Save(lockPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", lockPath)
	return nil
}

func newLockShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <lockPath>",
		Short: "Pretty-print a lock file",
		Args:  cobra.ExactArgs(1),
		RunE:  runLockShow,
	}
}

func runLockShow(_ *cobra.Command, args []string) error {
	lf, err := lockfile.Load(args[0])
	if err != nil {
		return err
	}
	data, err := lf.Marshal()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
