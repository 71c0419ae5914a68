package node

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names consulted by LoadConfigFromEnv.
const (
	EnvDataDir     = "ETHREX_DATADIR"
	EnvCodeCacheMB = "ETHREX_CODECACHE_MB"
	EnvRetention   = "ETHREX_RETENTION"
	EnvChainID     = "ETHREX_CHAIN_ID"
	EnvLogLevel    = "ETHREX_LOG_LEVEL"
)

// LoadConfigFromEnv starts from DefaultConfig and overlays any of the
// ETHREX_* environment variables that are set, then validates the
// result.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv(EnvDataDir); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv(EnvCodeCacheMB); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("node: invalid %s: %w", EnvCodeCacheMB, err)
		}
		cfg.CodeCacheMB = n
	}
	if v, ok := os.LookupEnv(EnvRetention); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("node: invalid %s: %w", EnvRetention, err)
		}
		cfg.Retention = n
	}
	if v, ok := os.LookupEnv(EnvChainID); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("node: invalid %s: %w", EnvChainID, err)
		}
		cfg.ChainID = n
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MergeConfig merges an override config onto a base config. Non-zero/
// non-empty fields from override take priority over base.
func MergeConfig(base, override Config) Config {
	result := base

	if override.DataDir != "" {
		result.DataDir = override.DataDir
	}
	if override.ChainID != 0 {
		result.ChainID = override.ChainID
	}
	if override.CodeCacheMB != 0 {
		result.CodeCacheMB = override.CodeCacheMB
	}
	if override.Retention != 0 {
		result.Retention = override.Retention
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}

	return result
}
