// Package node holds the process-level configuration for an ethrex-state
// instance: data directory layout, code-cache sizing, layer retention, and
// the chain ID the store's on-disk metadata must match.
package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethrex/ethrex-state/statelayer"
)

// Config holds all configuration for an ethrex-state process.
type Config struct {
	// DataDir is the root directory for all data storage.
	DataDir string

	// ChainID is the numeric chain identifier a store's metadata is
	// stamped with and validated against on every open.
	ChainID uint64

	// CodeCacheMB is the code cache's in-memory budget, in megabytes.
	// Zero picks codecache.DefaultSizeBytes.
	CodeCacheMB int

	// Retention is the number of diff layers kept above the disk layer
	// before the oldest on the canonical path merges down. Zero picks
	// statelayer.DefaultRetention; values outside [MinRetention,
	// MaxRetention] are clamped by Validate.
	Retention int

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string
}

// defaultDataDir returns the platform-specific default data directory.
// Falls back to ".ethrex-state" in the current directory if the home
// directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ethrex-state"
	}
	return filepath.Join(home, ".ethrex-state")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:     defaultDataDir(),
		ChainID:     1,
		CodeCacheMB: 64,
		Retention:   statelayer.DefaultRetention,
		LogLevel:    "info",
	}
}

// Validate checks configuration values for correctness, clamping
// Retention into [MinRetention, MaxRetention] rather than rejecting it
// outright: a config file or environment value written for another
// build may fall outside the current bounds.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: datadir must not be empty")
	}
	if c.ChainID == 0 {
		return errors.New("config: chain_id must be greater than 0")
	}
	if c.CodeCacheMB < 0 {
		return fmt.Errorf("config: invalid codecache_mb: %d", c.CodeCacheMB)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}

	switch {
	case c.Retention == 0:
		c.Retention = statelayer.DefaultRetention
	case c.Retention < statelayer.MinRetention:
		c.Retention = statelayer.MinRetention
	case c.Retention > statelayer.MaxRetention:
		c.Retention = statelayer.MaxRetention
	}

	return nil
}

// CodeCacheBytes returns the code cache budget in bytes, as consumed by
// codecache.New.
func (c *Config) CodeCacheBytes() int {
	return c.CodeCacheMB * 1024 * 1024
}

// dataDirSubdirs lists subdirectories created inside the data directory.
var dataDirSubdirs = []string{
	"chaindata",
	"ancient",
}

// InitDataDir creates the data directory and its standard subdirectories
// if they do not already exist.
func (c *Config) InitDataDir() error {
	if c.DataDir == "" {
		return errors.New("config: datadir must not be empty")
	}
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("config: create datadir: %w", err)
	}
	for _, sub := range dataDirSubdirs {
		dir := filepath.Join(c.DataDir, sub)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("config: create %s: %w", sub, err)
		}
	}
	return nil
}

// ResolvePath resolves a path relative to the data directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}
