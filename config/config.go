// Package config handles loxa.toml interpreter configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "loxa.toml"

// Config represents a loxa.toml interpreter configuration.
type Config struct {
	VM    VMConfig    `toml:"vm"`
	Cache CacheConfig `toml:"cache"`

	// Dir is the directory containing the loxa.toml file (set at load time).
	Dir string `toml:"-"`
}

// VMConfig configures the execution core.
type VMConfig struct {
	Trace       bool `toml:"trace"`
	GCThreshold int  `toml:"gc-threshold"`
}

// CacheConfig configures the compiled-chunk cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no loxa.toml exists.
func Default() *Config {
	return &Config{
		VM: VMConfig{
			GCThreshold: 1024,
		},
		Cache: CacheConfig{
			Path: defaultCachePath(),
		},
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".loxa", "cache.db")
}

// Load parses a loxa.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults for values the file zeroed or omitted
	if c.VM.GCThreshold <= 0 {
		c.VM.GCThreshold = 1024
	}
	if c.Cache.Path == "" {
		c.Cache.Path = defaultCachePath()
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find a loxa.toml file, then loads
// and returns the configuration. Returns the defaults if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}
