package main

import (
	"flag"

	"github.com/ethrex/ethrex-state/node"
)

// newFlagSet creates a flag.FlagSet that binds all CLI flags to the given
// Config. ContinueOnError lets run control error handling/exit codes
// directly instead of flag's default os.Exit.
func newFlagSet(cfg *node.Config) *flag.FlagSet {
	fs := flag.NewFlagSet("ethrex-state", flag.ContinueOnError)
	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory path")
	fs.Uint64Var(&cfg.ChainID, "chainid", cfg.ChainID, "chain identifier")
	fs.IntVar(&cfg.CodeCacheMB, "codecache-mb", cfg.CodeCacheMB, "code cache size in MB")
	fs.IntVar(&cfg.Retention, "retention", cfg.Retention, "diff layer retention count")
	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level (debug, info, warn, error)")
	return fs
}
