package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath    string
	pure          bool
	registryFlags []string
	verbose       bool
	outputFormat  string
)

// NewRootCmd builds the nixflake command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nixflake",
		Short: "Resolve and lock flake dependency closures",
		Long: `nixflake fetches flake references, resolves their requires and
nonFlakeRequires through a registry stack, and writes the result to a
flake.lock file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVar(&pure, "pure", false, "reject mutable references outside the top-level ref")
	cmd.PersistentFlags().StringArrayVar(&registryFlags, "registry", nil, "FROM=TO registry entry, highest priority (repeatable)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")

	ConfigPath = &configPath
	Pure = &pure
	RegistryFlags = &registryFlags
	Verbose = &verbose
	OutputFormat = &outputFormat

	cmd.AddCommand(
		NewResolveCmd(),
		NewLockCmd(),
		NewRegistryCmd(),
		NewFlakeCmd(),
		NewVersionCmd(),
	)

	return cmd
}
