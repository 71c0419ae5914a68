package trie

import (
	"sync"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/types"
	"github.com/golang/snappy"
)

// NodeReader retrieves a trie node's RLP encoding by its Keccak-256 hash.
type NodeReader interface {
	Node(hash types.Hash) ([]byte, error)
}

// NodeWriter stores a trie node's RLP encoding keyed by its hash.
type NodeWriter interface {
	Put(hash types.Hash, data []byte) error
}

// Database is a two-layer node store: nodes produced by Commit but not yet
// flushed live in an in-memory dirty set; everything else falls through to
// a disk-backed NodeReader. It is the thing every Trie resolves hashNode
// references against.
type Database struct {
	mu    sync.RWMutex
	dirty map[types.Hash][]byte
	disk  NodeReader
	size  int
}

// NewDatabase creates a node database backed by disk, which may be nil for
// a purely in-memory database useful in tests.
func NewDatabase(disk NodeReader) *Database {
	return &Database{dirty: make(map[types.Hash][]byte), disk: disk}
}

// Node retrieves a node's RLP encoding, checking the dirty set before
// falling back to disk.
func (db *Database) Node(hash types.Hash) ([]byte, error) {
	if hash.IsZero() {
		return nil, ErrNotFound
	}
	db.mu.RLock()
	if data, ok := db.dirty[hash]; ok {
		db.mu.RUnlock()
		return data, nil
	}
	db.mu.RUnlock()
	if db.disk != nil {
		return db.disk.Node(hash)
	}
	return nil, ErrNotFound
}

// InsertNode records a node in the dirty set, to be persisted by a later
// Commit/Flush to a NodeWriter.
func (db *Database) InsertNode(hash types.Hash, data []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.dirty[hash]; !ok {
		db.size += len(data)
	}
	db.dirty[hash] = data
}

// DirtySize reports the total byte size of uncommitted node encodings.
func (db *Database) DirtySize() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.size
}

// DirtyCount reports the number of uncommitted nodes.
func (db *Database) DirtyCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.dirty)
}

// Flush writes every dirty node to w and clears the dirty set.
func (db *Database) Flush(w NodeWriter) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for hash, data := range db.dirty {
		if err := w.Put(hash, data); err != nil {
			return err
		}
	}
	db.dirty = make(map[types.Hash][]byte)
	db.size = 0
	return nil
}

// commitNode recursively hashes and stages every dirty node reachable from
// n into db, returning the collapsed (hash-substituted) and cached forms.
func commitNode(h *hasher, n node, db *Database) (node, node) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case valueNode, hashNode:
		return n, n
	case *shortNode:
		collapsed := n.copy()
		collapsed.Key = hexToCompact(n.Key)
		cached := n.copy()
		if _, ok := n.Val.(valueNode); !ok {
			childH, childC := commitNode(h, n.Val, db)
			collapsed.Val = childH
			cached.Val = childC
		}
		return stageNode(collapsed, cached, db)
	case *fullNode:
		collapsed := n.copy()
		cached := n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childH, childC := commitNode(h, n.Children[i], db)
				collapsed.Children[i] = childH
				cached.Children[i] = childC
			}
		}
		return stageNode(collapsed, cached, db)
	default:
		return n, n
	}
}

func stageNode(collapsed, cached node, db *Database) (node, node) {
	enc, err := encodeNode(collapsed)
	if err != nil {
		return collapsed, cached
	}
	if len(enc) < 32 {
		return collapsed, cached
	}
	hash := crypto.Keccak256(enc)
	db.InsertNode(types.BytesToHash(hash), enc)
	hn := hashNode(hash)
	switch c := cached.(type) {
	case *shortNode:
		c.flags.hash, c.flags.dirty = hn, false
	case *fullNode:
		c.flags.hash, c.flags.dirty = hn, false
	}
	return hn, cached
}

// snappyNodeReader transparently snappy-decompresses node blobs read from
// a disk-backed reader, matching how the on-disk schema stores trie nodes
// (see the rawdb package's account/storage trie node tables).
type snappyNodeReader struct {
	base NodeReader
}

// NewSnappyNodeReader wraps base so that Node decompresses results with
// snappy before returning them.
func NewSnappyNodeReader(base NodeReader) NodeReader {
	return &snappyNodeReader{base: base}
}

func (r *snappyNodeReader) Node(hash types.Hash) ([]byte, error) {
	raw, err := r.base.Node(hash)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, raw)
}

// snappyNodeWriter compresses node blobs with snappy before delegating to
// base, the disk-facing writer.
type snappyNodeWriter struct {
	base NodeWriter
}

// NewSnappyNodeWriter wraps base so that Put snappy-compresses data before
// storage.
func NewSnappyNodeWriter(base NodeWriter) NodeWriter {
	return &snappyNodeWriter{base: base}
}

func (w *snappyNodeWriter) Put(hash types.Hash, data []byte) error {
	return w.base.Put(hash, snappy.Encode(nil, data))
}
