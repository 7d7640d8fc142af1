package cli

import (
	"fmt"

	"github.com/nixflake/nixflake/internal/flake"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/logging"
	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <ref>",
		Short: "Resolve a flake reference and print its dependency tree",
		Long: `Resolve fetches the flake at ref, recursively resolves its requires and
nonFlakeRequires, and prints the resulting dependency tree.`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
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
	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	deps, err := loader.ResolveFlake(cmd.Context(), ref, stack, cfg.Pure)
	if err != nil {
		return err
	}
	logging.Debug("purity sandbox allow-list", logging.Fields{"paths": loader.Store.AllowedPaths()})

	if OutputFormat != nil && *OutputFormat == "json" {
		lf := deps.ToLockFile()
		data, err := lf.Marshal()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printDependencyTree(deps, 0)

	value := flake.MakeFlakeValue(deps)
	provided, err := value.Provides()
	if err != nil {
		return fmt.Errorf("invoke %s provides: %w", value.ID, err)
	}
	fmt.Printf("provides: %v\n", provided)
	return nil
}

func printDependencyTree(d *flake.Dependencies, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Printf("%s%s (%s)\n", indent, d.Flake.ID, d.Flake.Ref.String())
	for _, nf := range d.NonFlakeDeps {
		fmt.Printf("%s  %s -> %s\n", indent, nf.Alias, nf.Ref.String())
	}
	for _, child := range d.FlakeDeps {
		printDependencyTree(child, depth+1)
	}
}
