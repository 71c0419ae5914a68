// Package codecache provides a bounded, write-through cache for contract
// bytecode in front of rawdb's content-addressed code table. Code is
// immutable once stored (it is keyed by its own Keccak-256 hash), so there
// is never a staleness concern — only a capacity one.
package codecache

import (
	"github.com/VictoriaMetrics/fastcache"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/types"
)

// DefaultSizeBytes is the default cache budget: ~64 MiB, per spec.md §4.4.
const DefaultSizeBytes = 64 * 1024 * 1024

// Cache fronts rawdb's code table with an in-memory fastcache.Cache.
type Cache struct {
	mem *fastcache.Cache
	db  rawdb.Database
}

// New creates a code cache of the given byte budget backed by db.
func New(db rawdb.Database, sizeBytes int) *Cache {
	if sizeBytes <= 0 {
		sizeBytes = DefaultSizeBytes
	}
	return &Cache{mem: fastcache.New(sizeBytes), db: db}
}

// Get returns the bytecode for codeHash, checking the in-memory cache
// first and falling back to disk on miss, populating the cache before
// returning.
func (c *Cache) Get(codeHash types.Hash) ([]byte, error) {
	if code, ok := c.mem.HasGet(nil, codeHash.Bytes()); ok {
		return code, nil
	}
	code, err := rawdb.ReadCode(c.db, codeHash)
	if err != nil {
		return nil, err
	}
	c.mem.Set(codeHash.Bytes(), code)
	return code, nil
}

// Put writes code to disk keyed by its Keccak-256 hash (content-addressed:
// writing the same hash twice is a harmless no-op) and inserts it into the
// cache, disk first so a crash between the two never loses durable data
// the cache claims to have.
func (c *Cache) Put(codeHash types.Hash, code []byte) error {
	if err := rawdb.WriteCode(c.db, codeHash, code); err != nil {
		return err
	}
	c.mem.Set(codeHash.Bytes(), code)
	return nil
}

// Has reports whether codeHash is known, checking the cache before disk.
func (c *Cache) Has(codeHash types.Hash) bool {
	if c.mem.Has(codeHash.Bytes()) {
		return true
	}
	return rawdb.HasCode(c.db, codeHash)
}

// Reset clears the in-memory cache without touching disk; used when
// switching chains (different chain ID / different code universe).
func (c *Cache) Reset() {
	c.mem.Reset()
}
