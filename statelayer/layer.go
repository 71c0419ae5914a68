// Package statelayer implements the in-memory diff-layer forest stacked
// above a single on-disk layer: the structure that lets reads at any live
// block hash see that block's state without walking the full account and
// storage tries for every recent block.
package statelayer

import (
	"github.com/holiman/uint256"

	"github.com/ethrex/ethrex-state/types"
)

// AccountInfo carries the account-header fields changed by a block, as
// already finalized by the block-execution collaborator: StorageRoot is
// the root of the account's storage trie after this block's slot updates,
// computed by the caller (which must derive it anyway to build the state
// trie leaf), not re-derived here from the flat Storage overrides below.
type AccountInfo struct {
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot types.Hash
	CodeHash    types.Hash
}

// AccountUpdate is one account's worth of change produced by applying a
// block. Removed deletes the account and its entire storage subtree. A
// zero value in Storage deletes that slot.
type AccountUpdate struct {
	AddressHash types.Hash
	Removed     bool
	Info        *AccountInfo
	NewCode     []byte
	Storage     map[types.Hash]types.Hash
}

// Layer is one level of the state layer stack: either the disk layer or a
// diff layer stacked on top of it.
type Layer interface {
	BlockHash() types.Hash
	ParentHash() types.Hash
	Number() uint64
	Root() types.Hash
	Stale() bool
	Account(addrHash types.Hash) (*types.Account, bool, error)
	Storage(addrHash, slotHash types.Hash) (types.Hash, bool, error)
}

// stalable is implemented by both layer kinds so the tree can invalidate a
// layer once it has been merged into the disk layer or pruned.
type stalable interface {
	markStale()
}
