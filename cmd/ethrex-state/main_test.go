package main

import "testing"

func TestVersionFlag(t *testing.T) {
	code := run([]string{"--version"})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
}

func TestUnknownFlag(t *testing.T) {
	code := run([]string{"--bogus-flag"})
	if code != 2 {
		t.Fatalf("expected exit 2 for unknown flag, got %d", code)
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, exit, _ := parseFlags(nil)
	if exit {
		t.Fatal("expected no exit for empty args")
	}
	if cfg.ChainID != 1 {
		t.Errorf("expected default chain id 1, got %d", cfg.ChainID)
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	cfg, exit, _ := parseFlags([]string{
		"--datadir", "/tmp/ethrex-state-flags-test",
		"--chainid", "5",
		"--codecache-mb", "32",
		"--retention", "200",
		"--loglevel", "debug",
	})
	if exit {
		t.Fatal("expected no exit")
	}
	if cfg.DataDir != "/tmp/ethrex-state-flags-test" {
		t.Errorf("DataDir: got %q", cfg.DataDir)
	}
	if cfg.ChainID != 5 {
		t.Errorf("ChainID: got %d", cfg.ChainID)
	}
	if cfg.CodeCacheMB != 32 {
		t.Errorf("CodeCacheMB: got %d", cfg.CodeCacheMB)
	}
	if cfg.Retention != 200 {
		t.Errorf("Retention: got %d", cfg.Retention)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q", cfg.LogLevel)
	}
}

func TestDefaultGenesisAlloc(t *testing.T) {
	g := defaultGenesis(7)
	if g.ChainID != 7 {
		t.Errorf("ChainID: got %d", g.ChainID)
	}
	if len(g.Alloc) != 0 {
		t.Errorf("expected empty alloc, got %d entries", len(g.Alloc))
	}
}
