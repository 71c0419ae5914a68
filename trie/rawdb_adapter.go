package trie

import (
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/types"
)

// accountTrieReader adapts the rawdb account-trie-node table to NodeReader.
type accountTrieReader struct {
	db rawdb.KeyValueReader
}

// NewAccountTrieReader wraps db's account trie node table as a NodeReader.
func NewAccountTrieReader(db rawdb.KeyValueReader) NodeReader {
	return NewSnappyNodeReader(&accountTrieReader{db: db})
}

func (r *accountTrieReader) Node(hash types.Hash) ([]byte, error) {
	data, err := rawdb.ReadAccountTrieNode(r.db, hash)
	if err != nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// accountTrieWriter adapts the rawdb account-trie-node table to NodeWriter.
type accountTrieWriter struct {
	db rawdb.KeyValueWriter
}

// NewAccountTrieWriter wraps db's account trie node table as a NodeWriter.
func NewAccountTrieWriter(db rawdb.KeyValueWriter) NodeWriter {
	return NewSnappyNodeWriter(&accountTrieWriter{db: db})
}

func (w *accountTrieWriter) Put(hash types.Hash, data []byte) error {
	return rawdb.WriteAccountTrieNode(w.db, hash, data)
}

// storageTrieReader adapts one account's slice of the rawdb storage-trie
// table (scoped by the owning account's address hash) to NodeReader.
type storageTrieReader struct {
	db       rawdb.KeyValueReader
	addrHash types.Hash
}

// NewStorageTrieReader wraps the storage trie node table owned by addrHash
// as a NodeReader.
func NewStorageTrieReader(db rawdb.KeyValueReader, addrHash types.Hash) NodeReader {
	return NewSnappyNodeReader(&storageTrieReader{db: db, addrHash: addrHash})
}

func (r *storageTrieReader) Node(hash types.Hash) ([]byte, error) {
	data, err := rawdb.ReadStorageTrieNode(r.db, r.addrHash, hash)
	if err != nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// storageTrieWriter adapts one account's slice of the storage-trie table
// to NodeWriter.
type storageTrieWriter struct {
	db       rawdb.KeyValueWriter
	addrHash types.Hash
}

// NewStorageTrieWriter wraps the storage trie node table owned by addrHash
// as a NodeWriter.
func NewStorageTrieWriter(db rawdb.KeyValueWriter, addrHash types.Hash) NodeWriter {
	return NewSnappyNodeWriter(&storageTrieWriter{db: db, addrHash: addrHash})
}

func (w *storageTrieWriter) Put(hash types.Hash, data []byte) error {
	return rawdb.WriteStorageTrieNode(w.db, w.addrHash, hash, data)
}
