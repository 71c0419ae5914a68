package statelayer

import (
	"sync"

	"github.com/ethrex/ethrex-state/codecache"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// Retention bounds, per §4.5: the latest N diff layers above the disk
// layer stay in memory before the oldest on the canonical path merges
// down.
const (
	MinRetention     = 64
	MaxRetention     = 256
	DefaultRetention = 128
)

// Tree is the forest of diff layers rooted at a single disk layer. Layers
// are keyed by the block hash they represent; a block may have any number
// of live children (a branching DAG), but only one ancestor line is ever
// canonical at a time.
type Tree struct {
	mu sync.Mutex

	db        rawdb.Database
	codeCache *codecache.Cache
	retention int

	layers   map[types.Hash]Layer
	children map[types.Hash][]types.Hash
	disk     *DiskLayer

	head      types.Hash
	safe      types.Hash
	finalized types.Hash
}

// NewTree creates a tree with a disk layer rooted at diskRoot, representing
// the durably committed state at diskBlockHash/diskNumber. A retention of
// zero picks DefaultRetention; the node package is responsible for keeping
// production configuration within [MinRetention, MaxRetention] (tests are
// free to pass smaller values to exercise the merge path without building
// dozens of blocks).
func NewTree(db rawdb.Database, codeCache *codecache.Cache, diskBlockHash types.Hash, diskNumber uint64, diskRoot types.Hash, retention int) *Tree {
	if retention <= 0 {
		retention = DefaultRetention
	}
	disk := newDiskLayer(db, diskBlockHash, diskNumber, diskRoot)
	return &Tree{
		db:        db,
		codeCache: codeCache,
		retention: retention,
		layers:    map[types.Hash]Layer{diskBlockHash: disk},
		children:  make(map[types.Hash][]types.Hash),
		disk:      disk,
		head:      diskBlockHash,
		safe:      diskBlockHash,
		finalized: diskBlockHash,
	}
}

// DiskLayer returns the tree's current persistent base layer.
func (t *Tree) DiskLayer() *DiskLayer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disk
}

// Head, Safe, and Finalized report the last block hashes accepted by
// ForkchoiceUpdate.
func (t *Tree) Head() types.Hash      { t.mu.Lock(); defer t.mu.Unlock(); return t.head }
func (t *Tree) Safe() types.Hash      { t.mu.Lock(); defer t.mu.Unlock(); return t.safe }
func (t *Tree) Finalized() types.Hash { t.mu.Lock(); defer t.mu.Unlock(); return t.finalized }

// ApplyBlock creates a new diff layer on top of parentHash recording the
// given account_updates, per §4.5's "Writes" contract. Applying a block
// whose hash is already live is a no-op that returns the existing layer
// id; applying one whose parent is neither the disk layer nor a live diff
// layer fails with ErrUnknownParent.
func (t *Tree) ApplyBlock(parentHash, blockHash types.Hash, number uint64, stateRoot types.Hash, updates []AccountUpdate) (types.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.layers[blockHash]; ok {
		return blockHash, nil
	}
	parent, ok := t.layers[parentHash]
	if !ok || parent.Stale() {
		return types.Hash{}, ErrUnknownParent
	}

	accounts := make(map[types.Hash]*accountOverride, len(updates))
	storage := make(map[types.Hash]map[types.Hash]types.Hash)
	for _, u := range updates {
		if u.Removed {
			accounts[u.AddressHash] = &accountOverride{removed: true}
			continue
		}
		if len(u.NewCode) > 0 && u.Info != nil {
			if err := t.codeCache.Put(u.Info.CodeHash, u.NewCode); err != nil {
				return types.Hash{}, err
			}
		}
		if u.Info != nil {
			accounts[u.AddressHash] = &accountOverride{account: &types.Account{
				Nonce:       u.Info.Nonce,
				Balance:     u.Info.Balance,
				StorageRoot: u.Info.StorageRoot,
				CodeHash:    u.Info.CodeHash,
			}}
		}
		if len(u.Storage) > 0 {
			storage[u.AddressHash] = u.Storage
		}
	}

	diff := newDiffLayer(parent, blockHash, parentHash, number, stateRoot, accounts, storage)
	t.layers[blockHash] = diff
	t.children[parentHash] = append(t.children[parentHash], blockHash)
	return blockHash, nil
}

// ForkchoiceUpdate validates that head/safe/finalized are live block
// hashes with head an extension of (or equal to) safe and safe an
// extension of (or equal to) finalized, then updates the tree's pointers,
// merges layers whose depth from head exceeds the retention bound, and
// marks stale the non-canonical layers at or below finalized's height
// (their entries stay in the tree).
func (t *Tree) ForkchoiceUpdate(head, safe, finalized types.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	headLayer, headOK := t.layers[head]
	safeLayer, safeOK := t.layers[safe]
	finalizedLayer, finOK := t.layers[finalized]
	if !headOK || !safeOK || !finOK {
		return ErrUnknownLayer
	}
	if headLayer.Stale() || safeLayer.Stale() || finalizedLayer.Stale() {
		return ErrReorgTooDeep
	}
	if !t.isAncestorOrSelf(head, safe) || !t.isAncestorOrSelf(safe, finalized) {
		return ErrReorgTooDeep
	}

	t.head, t.safe, t.finalized = head, safe, finalized

	for t.depthFromDisk(head) > t.retention {
		if err := t.mergeOldestOnPath(head); err != nil {
			return err
		}
	}
	t.pruneStaleSiblings(finalized)
	return nil
}

// isAncestorOrSelf reports whether ancestor lies on descendant's parent
// chain (including descendant itself).
func (t *Tree) isAncestorOrSelf(descendant, ancestor types.Hash) bool {
	cur, ok := t.layers[descendant]
	if !ok {
		return false
	}
	for {
		if cur.BlockHash() == ancestor {
			return true
		}
		if cur.BlockHash() == t.disk.BlockHash() {
			return false
		}
		parent, ok := t.layers[cur.ParentHash()]
		if !ok {
			return false
		}
		cur = parent
	}
}

// chainToDisk returns the layer chain from blockHash down to (and
// including) the disk layer, ordered head-first.
func (t *Tree) chainToDisk(blockHash types.Hash) []Layer {
	cur, ok := t.layers[blockHash]
	if !ok {
		return nil
	}
	var chain []Layer
	for {
		chain = append(chain, cur)
		if cur.BlockHash() == t.disk.BlockHash() {
			return chain
		}
		parent, ok := t.layers[cur.ParentHash()]
		if !ok {
			return chain
		}
		cur = parent
	}
}

func (t *Tree) depthFromDisk(blockHash types.Hash) int {
	chain := t.chainToDisk(blockHash)
	if len(chain) == 0 {
		return 0
	}
	return len(chain) - 1
}

// mergeOldestOnPath flattens the bottommost diff layer on head's chain
// (the child of the current disk layer) into a new disk layer.
func (t *Tree) mergeOldestOnPath(head types.Hash) error {
	chain := t.chainToDisk(head)
	if len(chain) < 2 {
		return nil
	}
	bottom, ok := chain[len(chain)-2].(*DiffLayer)
	if !ok {
		return nil
	}

	newDisk, err := t.flatten(bottom)
	if err != nil {
		return err
	}

	oldDiskHash := t.disk.BlockHash()
	t.disk.markStale()
	bottom.markStale()
	t.disk = newDisk
	t.layers[newDisk.BlockHash()] = newDisk

	for _, childHash := range t.children[bottom.BlockHash()] {
		if child, ok := t.layers[childHash].(*DiffLayer); ok {
			child.lock.Lock()
			child.parent = newDisk
			child.lock.Unlock()
		}
	}
	t.children[newDisk.BlockHash()] = t.children[bottom.BlockHash()]
	delete(t.children, bottom.BlockHash())
	delete(t.children, oldDiskHash)
	return nil
}

// flatten applies bottom's account and storage overrides to the current
// disk state, asserting the recomputed roots match what the layer
// recorded (the I1 check), and returns the resulting disk layer. Header,
// body, and receipt persistence for the merged block is the store
// façade's responsibility, not this package's.
func (t *Tree) flatten(bottom *DiffLayer) (*DiskLayer, error) {
	accountDB := trie.NewDatabase(trie.NewAccountTrieReader(t.db))
	acctTrie, err := trie.New(t.disk.Root(), accountDB)
	if err != nil {
		return nil, err
	}

	bottom.lock.RLock()
	accounts := bottom.accounts
	storageOverrides := bottom.storage
	bottom.lock.RUnlock()

	for addrHash, ov := range accounts {
		if ov.removed {
			if err := acctTrie.Delete(addrHash.Bytes()); err != nil {
				return nil, err
			}
			continue
		}
		enc, err := ov.account.EncodeRLP()
		if err != nil {
			return nil, err
		}
		if err := acctTrie.Put(addrHash.Bytes(), enc); err != nil {
			return nil, err
		}
	}

	for addrHash, slots := range storageOverrides {
		ov, ok := accounts[addrHash]
		if ok && ov.removed {
			continue
		}
		if err := t.mergeStorage(addrHash, slots, ov); err != nil {
			return nil, err
		}
	}

	newRoot, err := acctTrie.Commit()
	if err != nil {
		return nil, err
	}
	if newRoot != bottom.Root() {
		return nil, ErrRootMismatch
	}
	if err := accountDB.Flush(trie.NewAccountTrieWriter(t.db)); err != nil {
		return nil, err
	}

	if err := rawdb.WriteCanonicalHash(t.db, bottom.Number(), bottom.BlockHash()); err != nil {
		return nil, err
	}
	if err := rawdb.WriteBlockNumber(t.db, bottom.BlockHash(), bottom.Number()); err != nil {
		return nil, err
	}

	return newDiskLayer(t.db, bottom.BlockHash(), bottom.Number(), newRoot), nil
}

func (t *Tree) mergeStorage(addrHash types.Hash, slots map[types.Hash]types.Hash, ov *accountOverride) error {
	startRoot := trie.EmptyRoot
	if oldAcc, found, err := t.disk.Account(addrHash); err != nil {
		return err
	} else if found {
		startRoot = oldAcc.StorageRoot
	}

	storageDB := trie.NewDatabase(trie.NewStorageTrieReader(t.db, addrHash))
	storageTrie, err := trie.New(startRoot, storageDB)
	if err != nil {
		return err
	}
	for slotHash, value := range slots {
		if value.IsZero() {
			if err := storageTrie.Delete(slotHash.Bytes()); err != nil {
				return err
			}
			continue
		}
		enc, err := EncodeStorageValue(value)
		if err != nil {
			return err
		}
		if err := storageTrie.Put(slotHash.Bytes(), enc); err != nil {
			return err
		}
	}
	newStorageRoot, err := storageTrie.Commit()
	if err != nil {
		return err
	}
	if ov != nil && newStorageRoot != ov.account.StorageRoot {
		return ErrRootMismatch
	}
	return storageDB.Flush(trie.NewStorageTrieWriter(t.db, addrHash))
}

// pruneStaleSiblings marks every live, non-canonical layer at or below
// finalized's block number as stale, so later reads and forkchoice
// attempts against it surface ErrStale/ErrReorgTooDeep instead of
// silently resolving through a branch that lost the race. Entries remain
// in the layers map (rather than being deleted) precisely so that lookup
// still finds them and reports the stale condition.
func (t *Tree) pruneStaleSiblings(finalized types.Hash) {
	finLayer, ok := t.layers[finalized]
	if !ok {
		return
	}
	finNum := finLayer.Number()
	for hash, layer := range t.layers {
		if layer.Stale() || hash == t.disk.BlockHash() {
			continue
		}
		if layer.Number() > finNum {
			continue
		}
		if t.isAncestorOrSelf(finalized, hash) {
			continue
		}
		if dl, ok := layer.(*DiffLayer); ok {
			dl.markStale()
		}
	}
}

// Account resolves the account at addrHash as of blockHash, consulting
// each diff layer's bloom filter in turn before walking its override map
// so a guaranteed-absent key can jump straight to the disk layer.
func (t *Tree) Account(blockHash, addrHash types.Hash) (*types.Account, bool, error) {
	t.mu.Lock()
	layer, ok := t.layers[blockHash]
	disk := t.disk
	t.mu.Unlock()
	if !ok {
		return nil, false, ErrUnknownLayer
	}
	if layer.Stale() {
		return nil, false, ErrStale
	}
	if mayBeAbsentFromDiffChain(layer, disk, func(dl *DiffLayer) bool { return dl.mayContainAccount(addrHash) }) {
		return disk.Account(addrHash)
	}
	return layer.Account(addrHash)
}

// Storage resolves a storage slot as of blockHash, with the same bloom
// fast-path as Account.
func (t *Tree) Storage(blockHash, addrHash, slotHash types.Hash) (types.Hash, bool, error) {
	t.mu.Lock()
	layer, ok := t.layers[blockHash]
	disk := t.disk
	t.mu.Unlock()
	if !ok {
		return types.Hash{}, false, ErrUnknownLayer
	}
	if layer.Stale() {
		return types.Hash{}, false, ErrStale
	}
	if mayBeAbsentFromDiffChain(layer, disk, func(dl *DiffLayer) bool { return dl.mayContainStorage(addrHash, slotHash) }) {
		return disk.Storage(addrHash, slotHash)
	}
	return layer.Storage(addrHash, slotHash)
}

// mayBeAbsentFromDiffChain walks the diff layers between layer and disk,
// probing each one's filter. It returns true only if every diff layer on
// the path reports a guaranteed negative, in which case the caller may
// skip straight to the disk layer; a false positive on any single layer
// (or encountering anything other than a *DiffLayer before reaching disk)
// forces the normal parent-walking read.
func mayBeAbsentFromDiffChain(layer, disk Layer, probe func(*DiffLayer) bool) bool {
	cur := layer
	for cur.BlockHash() != disk.BlockHash() {
		dl, ok := cur.(*DiffLayer)
		if !ok {
			return false
		}
		if probe(dl) {
			return false
		}
		cur = dl.Parent()
	}
	return true
}
