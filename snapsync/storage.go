package snapsync

import (
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// StorageIngester verifies and persists one account's downloaded storage
// range pages into that account's on-disk storage trie, the same
// page-at-a-time, proof-checked-per-page approach AccountIngester uses for
// the account trie.
type StorageIngester struct {
	db       rawdb.Database
	addrHash types.Hash
	dbnd     *trie.Database
	t        *trie.Trie
	root     types.Hash
}

// NewStorageIngester creates an ingester for addrHash's storage trie,
// which must resolve to storageRoot once every page has been applied.
func NewStorageIngester(db rawdb.Database, addrHash, storageRoot types.Hash) (*StorageIngester, error) {
	dbnd := trie.NewDatabase(trie.NewStorageTrieReader(db, addrHash))
	t, err := trie.New(types.Hash{}, dbnd)
	if err != nil {
		return nil, err
	}
	return &StorageIngester{db: db, addrHash: addrHash, dbnd: dbnd, t: t, root: storageRoot}, nil
}

// ApplyPage verifies resp's range proof against the account's storage
// root and inserts every leaf into the running trie, returning whether
// more slots remain beyond the page.
func (ing *StorageIngester) ApplyPage(resp *StorageRangeResponse) (hasMore bool, err error) {
	keys := make([][]byte, len(resp.Keys))
	for i, k := range resp.Keys {
		keys[i] = k.Bytes()
	}

	hasMore, err = trie.VerifyRangeProof(ing.root, keys, resp.Values, resp.FirstProof, resp.LastProof)
	if err != nil {
		return false, ErrBadStorageProof
	}

	for i, key := range resp.Keys {
		if err := ing.t.Put(key.Bytes(), resp.Values[i]); err != nil {
			return false, err
		}
	}
	return hasMore, nil
}

// Flush commits the running trie and writes every produced node to disk
// under addrHash's storage trie namespace, returning its current root.
func (ing *StorageIngester) Flush() (types.Hash, error) {
	root, err := ing.t.Commit()
	if err != nil {
		return types.Hash{}, err
	}
	if err := ing.dbnd.Flush(trie.NewStorageTrieWriter(ing.db, ing.addrHash)); err != nil {
		return types.Hash{}, err
	}
	return root, nil
}
