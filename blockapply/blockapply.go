// Package blockapply is the glue between an external EVM collaborator and
// the store: pin a read view at a block's parent, hand the EVM's produced
// account updates back to the store, and let ForkchoiceUpdate promote the
// result later.
package blockapply

import (
	"github.com/holiman/uint256"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/statelayer"
	"github.com/ethrex/ethrex-state/store"
	"github.com/ethrex/ethrex-state/types"
)

// ReadView pins the EVM's reads to a single block hash, so a caller
// executing a block's transactions never needs to pass that hash to every
// account/storage/code lookup itself.
type ReadView struct {
	st   *store.Store
	hash types.Hash
}

// Pin returns a ReadView fixed at parentHash, the state an EVM should
// execute a child block's transactions against.
func Pin(st *store.Store, parentHash types.Hash) *ReadView {
	return &ReadView{st: st, hash: parentHash}
}

// BlockHash reports the block hash this view is pinned at.
func (v *ReadView) BlockHash() types.Hash { return v.hash }

// Account returns the account at addr as of the pinned block.
func (v *ReadView) Account(addr types.Address) (*types.Account, bool, error) {
	return v.st.GetAccount(v.hash, addr)
}

// Storage returns the value of slot in addr's storage as of the pinned
// block.
func (v *ReadView) Storage(addr types.Address, slot types.Hash) (types.Hash, bool, error) {
	return v.st.GetStorage(v.hash, addr, slot)
}

// Code returns the bytecode stored under codeHash.
func (v *ReadView) Code(codeHash types.Hash) ([]byte, error) {
	return v.st.GetCode(codeHash)
}

// Update is one account's change as the EVM collaborator computes it, keyed
// by address (not address hash, matching every other public store entry
// point). StorageRoot is the account's storage trie root after Storage's
// overrides are applied: the EVM collaborator computes it, since blockapply
// never opens a storage trie itself. Apply translates these into the
// statelayer.AccountUpdate shape ApplyBlock needs.
type Update struct {
	Address     types.Address
	Removed     bool
	Nonce       uint64
	Balance     *uint256.Int
	CodeHash    types.Hash
	StorageRoot types.Hash
	Code        []byte
	Storage     map[types.Hash]types.Hash
}

// Apply stages block, then applies updates on top of its parent layer,
// recording stateRoot with the new layer, and persists block's
// header/body/receipts. Apply does not compute or compare the state root:
// the recorded root is checked against the recomputed trie root only when
// the layer is merged into the disk layer during a later ForkchoiceUpdate,
// which fails on a mismatch. It returns the new layer's id (the block
// hash). ForkchoiceUpdate is a separate, later call: applying a block never
// by itself makes it canonical.
func Apply(st *store.Store, block *types.Block, updates []Update, receipts types.ReceiptList, stateRoot types.Hash) (types.Hash, error) {
	if err := st.AddBlock(block); err != nil {
		return types.Hash{}, err
	}

	converted := make([]statelayer.AccountUpdate, 0, len(updates))
	for _, u := range updates {
		addrHash := crypto.Keccak256Hash(u.Address.Bytes())
		if u.Removed {
			converted = append(converted, statelayer.AccountUpdate{AddressHash: addrHash, Removed: true})
			continue
		}
		converted = append(converted, statelayer.AccountUpdate{
			AddressHash: addrHash,
			Info: &statelayer.AccountInfo{
				Nonce:       u.Nonce,
				Balance:     u.Balance,
				StorageRoot: u.StorageRoot,
				CodeHash:    u.CodeHash,
			},
			NewCode: u.Code,
			Storage: u.Storage,
		})
	}

	return st.ApplyBlock(block.Hash(), converted, receipts, stateRoot)
}
