package cli

import (
	"fmt"

	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/spf13/cobra"
)

// NewFlakeCmd creates the flake command group.
func NewFlakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flake",
		Short: "Inspect individual flakes",
	}
	cmd.AddCommand(newFlakeMetadataCmd())
	return cmd
}

func newFlakeMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <ref>",
		Short: "Fetch ref and print its own metadata, without resolving dependencies",
		Args:  cobra.ExactArgs(1),
		RunE:  runFlakeMetadata,
	}
}

func runFlakeMetadata(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	ref, err := flakeref.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse reference %q: %w", args[0], err)
	}

	stack, err := loadRegistryStack(cfg)
	if err != nil {
		return err
	}
	resolved, err := loadResolvedRef(stack, ref)
	if err != nil {
		return err
	}

	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	f, err := loader.GetFlake(cmd.Context(), resolved, cfg.Pure, true)
	if err != nil {
		return err
	}

	fmt.Printf("id:          %s\n", f.ID)
	fmt.Printf("description: %s\n", f.Description)
	fmt.Printf("ref:         %s\n", f.Ref.String())
	fmt.Printf("store path:  %s\n", f.Path)
	fmt.Printf("revCount:    %d\n", f.RevCount)
	fmt.Printf("requires:    %d\n", len(f.Requires))
	fmt.Printf("nonFlakeRequires: %d\n", len(f.NonFlakeRequires))
	return nil
}
