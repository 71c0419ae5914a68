package statelayer

import (
	"sync"
	"sync/atomic"

	bloomfilter "github.com/holiman/bloomfilter/v2"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/types"
)

// accountOverride is a diff layer's local record for one account: either
// its replacement header fields, or a deletion marker.
type accountOverride struct {
	account *types.Account
	removed bool
}

// DiffLayer records, relative to its parent layer, the account and storage
// overrides introduced by applying one block. It never clones the parent:
// reads walk the parent chain for anything this layer doesn't override.
type DiffLayer struct {
	parent     Layer
	blockHash  types.Hash
	parentHash types.Hash
	number     uint64
	root       types.Hash

	accounts map[types.Hash]*accountOverride
	storage  map[types.Hash]map[types.Hash]types.Hash
	bloom    *bloomfilter.Filter

	lock  sync.RWMutex
	stale atomic.Bool
}

// newDiffLayer builds a diff layer on top of parent. accounts and storage
// are retained by the layer, not copied.
func newDiffLayer(parent Layer, blockHash, parentHash types.Hash, number uint64, root types.Hash, accounts map[types.Hash]*accountOverride, storage map[types.Hash]map[types.Hash]types.Hash) *DiffLayer {
	dl := &DiffLayer{
		parent:     parent,
		blockHash:  blockHash,
		parentHash: parentHash,
		number:     number,
		root:       root,
		accounts:   accounts,
		storage:    storage,
	}
	dl.bloom = buildOverrideFilter(accounts, storage)
	return dl
}

func buildOverrideFilter(accounts map[types.Hash]*accountOverride, storage map[types.Hash]map[types.Hash]types.Hash) *bloomfilter.Filter {
	n := uint64(len(accounts))
	for _, slots := range storage {
		n += uint64(len(slots))
	}
	if n == 0 {
		n = 1
	}
	f, err := bloomfilter.NewOptimal(n, 0.001)
	if err != nil {
		// NewOptimal only fails for a degenerate (zero) item count, which
		// n's floor above rules out; fall back to a small fixed filter so
		// a filter always exists to query.
		f, _ = bloomfilter.New(1024, 4)
	}
	for addrHash := range accounts {
		f.Add(bloomHasher(addrHash.Bytes()))
	}
	for addrHash, slots := range storage {
		for slotHash := range slots {
			f.Add(bloomHasher(storageBloomKey(addrHash, slotHash)))
		}
	}
	return f
}

func storageBloomKey(addrHash, slotHash types.Hash) []byte {
	return crypto.Keccak256(addrHash.Bytes(), slotHash.Bytes())
}

func (dl *DiffLayer) BlockHash() types.Hash  { return dl.blockHash }
func (dl *DiffLayer) ParentHash() types.Hash { return dl.parentHash }
func (dl *DiffLayer) Number() uint64         { return dl.number }
func (dl *DiffLayer) Root() types.Hash       { return dl.root }
func (dl *DiffLayer) Stale() bool            { return dl.stale.Load() }
func (dl *DiffLayer) markStale()             { dl.stale.Store(true) }

// Parent returns the layer this diff layer is currently stacked on,
// reflecting any reparenting done by a merge.
func (dl *DiffLayer) Parent() Layer {
	dl.lock.RLock()
	defer dl.lock.RUnlock()
	return dl.parent
}

// mayContainAccount reports whether this layer's own override set could
// possibly contain addrHash; false is a cryptographic guarantee of
// absence, true may be a false positive.
func (dl *DiffLayer) mayContainAccount(addrHash types.Hash) bool {
	return dl.bloom.Contains(bloomHasher(addrHash.Bytes()))
}

// mayContainStorage is mayContainAccount's analogue for a storage slot. It
// also reports true when the layer overrides the account itself, so a
// removed account still shadows every slot beneath it.
func (dl *DiffLayer) mayContainStorage(addrHash, slotHash types.Hash) bool {
	return dl.mayContainAccount(addrHash) ||
		dl.bloom.Contains(bloomHasher(storageBloomKey(addrHash, slotHash)))
}

// Account implements Layer: check this layer's override, otherwise defer
// to the parent chain.
func (dl *DiffLayer) Account(addrHash types.Hash) (*types.Account, bool, error) {
	if dl.Stale() {
		return nil, false, ErrStale
	}
	dl.lock.RLock()
	ov, ok := dl.accounts[addrHash]
	parent := dl.parent
	dl.lock.RUnlock()
	if ok {
		if ov.removed {
			return nil, false, nil
		}
		return ov.account, true, nil
	}
	return parent.Account(addrHash)
}

// Storage implements Layer. A removed account short-circuits its whole
// storage subtree without consulting the parent.
func (dl *DiffLayer) Storage(addrHash, slotHash types.Hash) (types.Hash, bool, error) {
	if dl.Stale() {
		return types.Hash{}, false, ErrStale
	}
	dl.lock.RLock()
	if ov, ok := dl.accounts[addrHash]; ok && ov.removed {
		dl.lock.RUnlock()
		return types.Hash{}, false, nil
	}
	if slots, ok := dl.storage[addrHash]; ok {
		if v, ok := slots[slotHash]; ok {
			dl.lock.RUnlock()
			if v.IsZero() {
				return types.Hash{}, false, nil
			}
			return v, true, nil
		}
	}
	parent := dl.parent
	dl.lock.RUnlock()
	return parent.Storage(addrHash, slotHash)
}
