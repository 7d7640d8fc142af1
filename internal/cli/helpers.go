// Package cli implements the nixflake command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixflake/nixflake/internal/config"
	"github.com/nixflake/nixflake/internal/fetch"
	"github.com/nixflake/nixflake/internal/flake"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/fsutil"
	"github.com/nixflake/nixflake/internal/logging"
	"github.com/nixflake/nixflake/internal/registry"
	"github.com/nixflake/nixflake/internal/resolver"
	"github.com/nixflake/nixflake/internal/store"
)

// These variables are set by the root command before any subcommand runs.
var (
	ConfigPath    *string
	Pure          *bool
	RegistryFlags *[]string
	Verbose       *bool
	OutputFormat  *string
)

func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("get default config path: %w", err)
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if Pure != nil && *Pure {
		cfg.Pure = true
	}
	if RegistryFlags != nil && len(*RegistryFlags) > 0 {
		cfg.Registries.Flag = append(cfg.Registries.Flag, *RegistryFlags...)
	}
	if Verbose != nil && *Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) {
	logging.Init(cfg.Log.Level, cfg.Log.Format)
}

func loadRegistryStack(cfg *config.Config) (*registry.Stack, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get user home directory: %w", err)
	}
	userReg, err := registry.Load(filepath.Join(home, ".config", "nix", "registry.json"))
	if err != nil {
		return nil, err
	}

	flagReg := registry.New()
	for _, entry := range cfg.Registries.Flag {
		from, to, err := parseRegistryFlag(entry)
		if err != nil {
			return nil, err
		}
		flagReg.Add(from, to)
	}

	stack := registry.NewStack(registry.New(), userReg, registry.New(), flagReg)
	stack.Pure = cfg.Pure
	return stack, nil
}

func parseRegistryFlag(entry string) (flakeref.Ref, flakeref.Ref, error) {
	for i := 0; i < len(entry); i++ {
		if entry[i] == '=' {
			from, err := flakeref.Parse(entry[:i])
			if err != nil {
				return flakeref.Ref{}, flakeref.Ref{}, fmt.Errorf("registry flag %q: %w", entry, err)
			}
			to, err := flakeref.Parse(entry[i+1:])
			if err != nil {
				return flakeref.Ref{}, flakeref.Ref{}, fmt.Errorf("registry flag %q: %w", entry, err)
			}
			return from, to, nil
		}
	}
	return flakeref.Ref{}, flakeref.Ref{}, fmt.Errorf("registry flag %q must have the form FROM=TO", entry)
}

func loadResolvedRef(stack *registry.Stack, ref flakeref.Ref) (flakeref.Ref, error) {
	return resolver.LookupFlake(stack, ref)
}

func newLoader(cfg *config.Config) (*flake.Loader, error) {
	storeDir, err := fsutil.StoreDir()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(storeDir)
	if err != nil {
		return nil, err
	}

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir, err = fsutil.CacheDir()
		if err != nil {
			return nil, err
		}
	}

	f := fetch.New(st, fetch.Options{
		CacheDir:    cacheDir,
		TarballTTL:  cfg.Cache.TarballTTL,
		HTTPTimeout: cfg.HTTP.Timeout,
		UserAgent:   cfg.HTTP.UserAgent,
	}, fetch.CLIGitExporter{})

	return flake.NewLoader(f, st), nil
}
