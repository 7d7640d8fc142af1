package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/registry"
	"github.com/spf13/cobra"
)

// NewRegistryCmd creates the registry command group.
func NewRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the user flake registry",
	}
	cmd.AddCommand(newRegistryAddCmd(), newRegistryRemoveCmd(), newRegistryListCmd())
	return cmd
}

func userRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "nix", "registry.json"), nil
}

func newRegistryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <from> <to>",
		Short: "Add or replace a registry redirection",
		Args:  cobra.ExactArgs(2),
		RunE:  runRegistryAdd,
	}
}

func runRegistryAdd(_ *cobra.Command, args []string) error {
	path, err := userRegistryPath()
	if err != nil {
		return err
	}
	reg, err := registry.Load(path)
	if err != nil {
		return err
	}
	from, err := flakeref.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse %q: %w", args[0], err)
	}
	to, err := flakeref.Parse(args[1])
	if err != nil {
		return fmt.Errorf("parse %q: %w", args[1], err)
	}
	reg.Add(from, to)
	return reg.Save(path)
}

func newRegistryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <from>",
		Short: "Remove a registry redirection",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegistryRemove,
	}
}

func runRegistryRemove(_ *cobra.Command, args []string) error {
	path, err := userRegistryPath()
	if err != nil {
		return err
	}
	reg, err := registry.Load(path)
	if err != nil {
		return err
	}
	from, err := flakeref.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse %q: %w", args[0], err)
	}
	if !reg.Remove(from) {
		return fmt.Errorf("no registry entry for %s", from.String())
	}
	return reg.Save(path)
}

func newRegistryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registry redirections",
		Args:  cobra.NoArgs,
		RunE:  runRegistryList,
	}
}

func runRegistryList(_ *cobra.Command, _ []string) error {
	path, err := userRegistryPath()
	if err != nil {
		return err
	}
	reg, err := registry.Load(path)
	if err != nil {
		return err
	}
	data, err := reg.Marshal()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
