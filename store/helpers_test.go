package store

import (
	"testing"

	"github.com/ethrex/ethrex-state/codecache"
	"github.com/ethrex/ethrex-state/rawdb"
)

// newSharedMemDB returns a MemoryDB a test can reopen multiple times,
// exercising the attach/re-attach path without a real filesystem.
func newSharedMemDB(t *testing.T) *rawdb.MemoryDB {
	t.Helper()
	return rawdb.NewMemoryDB()
}

// attachOrInitForTest mirrors NewMemory/New's init-then-attach sequence
// but against a caller-supplied database, so a test can reopen the same
// underlying MemoryDB instead of a fresh one each call.
func attachOrInitForTest(db rawdb.Database, genesis *Genesis, retention int) (*Store, error) {
	return newOrInit(db, genesis, retention, codecache.DefaultSizeBytes)
}
