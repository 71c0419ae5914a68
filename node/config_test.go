package node

import (
	"path/filepath"
	"testing"

	"github.com/ethrex/ethrex-state/statelayer"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty datadir")
	}
}

func TestValidateRejectsZeroChainID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChainID = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero chain id")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestValidateClampsRetention(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, statelayer.DefaultRetention},
		{1, statelayer.MinRetention},
		{statelayer.MinRetention, statelayer.MinRetention},
		{statelayer.MaxRetention, statelayer.MaxRetention},
		{10000, statelayer.MaxRetention},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		cfg.Retention = c.in
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate(%d): %v", c.in, err)
		}
		if cfg.Retention != c.want {
			t.Errorf("Retention for input %d: got %d want %d", c.in, cfg.Retention, c.want)
		}
	}
}

func TestCodeCacheBytes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CodeCacheMB = 32
	if got, want := cfg.CodeCacheBytes(), 32*1024*1024; got != want {
		t.Errorf("CodeCacheBytes: got %d want %d", got, want)
	}
}

func TestResolvePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/ethrex-state-test"

	if got, want := cfg.ResolvePath("chaindata"), filepath.Join(cfg.DataDir, "chaindata"); got != want {
		t.Errorf("ResolvePath(relative): got %q want %q", got, want)
	}
	if got, want := cfg.ResolvePath("/abs/path"), "/abs/path"; got != want {
		t.Errorf("ResolvePath(absolute): got %q want %q", got, want)
	}
}
