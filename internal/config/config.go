// Package config loads and saves the resolver's YAML configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nixflake/nixflake/internal/errdefs"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk resolver configuration.
type Config struct {
	Pure       bool             `yaml:"pure"`
	Registries RegistriesConfig `yaml:"registries"`
	Cache      CacheConfig      `yaml:"cache"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// RegistriesConfig holds registry entries supplied ahead of time rather than
// via repeated --registry flags.
type RegistriesConfig struct {
	Flag []string `yaml:"flag"`
}

// CacheConfig controls the fetcher's on-disk tarball cache.
type CacheConfig struct {
	Dir        string        `yaml:"dir"`
	TarballTTL time.Duration `yaml:"tarball_ttl"`
}

// HTTPConfig controls the GitHub tarball client.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir := "~/.cache/nixflake"
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "nixflake")
	}
	return &Config{
		Pure: false,
		Cache: CacheConfig{
			Dir:        cacheDir,
			TarballTTL: time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "nixflake/1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path. A missing file yields DefaultConfig,
// not an error.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errdefs.Wrapf(err, "open config %s", path)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses configuration from reader, applies defaults for any
// unset fields, and validates the result.
func LoadFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errdefs.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errdefs.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errdefs.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// Validate checks the configuration's ranges and enumerations.
func (c *Config) Validate() error {
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout cannot be negative")
	}
	if c.Cache.TarballTTL < 0 {
		return fmt.Errorf("cache.tarball_ttl cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q, must be one of: text, json", c.Log.Format)
	}

	return nil
}

// Save atomically writes c to path as 2-space-indented YAML.
func (c *Config) Save(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errdefs.Wrapf(err, "create config directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errdefs.Wrap(err, "create temp config file")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := yaml.NewEncoder(tmp)
	encoder.SetIndent(2)
	if err = encoder.Encode(c); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "encode config")
	}
	if err = encoder.Close(); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "close config encoder")
	}
	if err = tmp.Close(); err != nil {
		return errdefs.Wrap(err, "close temp config file")
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errdefs.Wrapf(err, "replace config %s", path)
	}
	return nil
}

// DefaultPath returns the default resolver config path under the user's
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errdefs.Wrap(err, "get user config directory")
	}
	return filepath.Join(dir, "nixflake", "config.yaml"), nil
}
