package statelayer

import (
	"sync"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// DiskLayer is the persistent base of the layer stack. Account and storage
// reads resolve through the committed account/storage tries backed by
// rawdb, exactly the "expensive" path the diff layers above exist to
// avoid for recently-applied blocks.
type DiskLayer struct {
	db        rawdb.Database
	accountDB *trie.Database

	blockHash types.Hash
	number    uint64

	mu    sync.RWMutex
	root  types.Hash
	stale bool
}

// newDiskLayer constructs a disk layer rooted at root, representing the
// durably committed state as of blockHash/number.
func newDiskLayer(db rawdb.Database, blockHash types.Hash, number uint64, root types.Hash) *DiskLayer {
	return &DiskLayer{
		db:        db,
		accountDB: trie.NewDatabase(trie.NewAccountTrieReader(db)),
		blockHash: blockHash,
		number:    number,
		root:      root,
	}
}

func (dl *DiskLayer) BlockHash() types.Hash  { return dl.blockHash }
func (dl *DiskLayer) ParentHash() types.Hash { return types.Hash{} }
func (dl *DiskLayer) Number() uint64         { return dl.number }

func (dl *DiskLayer) Root() types.Hash {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.root
}

func (dl *DiskLayer) Stale() bool {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.stale
}

func (dl *DiskLayer) markStale() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.stale = true
}

func (dl *DiskLayer) accountTrie() (*trie.Trie, error) {
	dl.mu.RLock()
	root := dl.root
	dl.mu.RUnlock()
	return trie.New(root, dl.accountDB)
}

// Account implements Layer.
func (dl *DiskLayer) Account(addrHash types.Hash) (*types.Account, bool, error) {
	if dl.Stale() {
		return nil, false, ErrStale
	}
	t, err := dl.accountTrie()
	if err != nil {
		return nil, false, err
	}
	data, err := t.Get(addrHash.Bytes())
	if err == trie.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	acc := &types.Account{}
	if err := acc.DecodeRLP(data); err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// Storage implements Layer.
func (dl *DiskLayer) Storage(addrHash, slotHash types.Hash) (types.Hash, bool, error) {
	if dl.Stale() {
		return types.Hash{}, false, ErrStale
	}
	acc, found, err := dl.Account(addrHash)
	if err != nil || !found {
		return types.Hash{}, false, err
	}
	storageDB := trie.NewDatabase(trie.NewStorageTrieReader(dl.db, addrHash))
	t, err := trie.New(acc.StorageRoot, storageDB)
	if err != nil {
		return types.Hash{}, false, err
	}
	data, err := t.Get(slotHash.Bytes())
	if err == trie.ErrNotFound {
		return types.Hash{}, false, nil
	}
	if err != nil {
		return types.Hash{}, false, err
	}
	return DecodeStorageValue(data)
}
