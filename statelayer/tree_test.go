package statelayer

import (
	"testing"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

func TestNewTreeSeedsDiskLayer(t *testing.T) {
	tree, _ := newTestTree(t, 0)

	if tree.Head() != tree.DiskLayer().BlockHash() {
		t.Fatalf("head should start at the disk layer")
	}
	if tree.Safe() != tree.Head() || tree.Finalized() != tree.Head() {
		t.Fatalf("safe/finalized should start equal to head")
	}
	if tree.retention != DefaultRetention {
		t.Fatalf("zero retention should default to %d, got %d", DefaultRetention, tree.retention)
	}
	if tree.DiskLayer().Root() != trie.EmptyRoot {
		t.Fatalf("fresh disk layer should be rooted at the empty trie")
	}
}

func TestApplyBlockAccountLookup(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x01)
	model := newModelTrie(t)
	acc := simpleAccount(1, 100, trie.EmptyRoot, types.EmptyCodeHash)
	root := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc})

	block1 := makeHash(0x01, 0x01)
	updates := []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}
	if _, err := tree.ApplyBlock(genesis, block1, 1, root, updates); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}

	got, found, err := tree.Account(block1, addrHashA)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if !found {
		t.Fatalf("expected account to be found")
	}
	if got.Nonce != 1 || got.Balance.Uint64() != 100 {
		t.Fatalf("unexpected account: %+v", got)
	}

	if _, found, err := tree.Account(genesis, addrHashA); err != nil || found {
		t.Fatalf("account should not be visible at genesis: found=%v err=%v", found, err)
	}
}

func TestApplyBlockStorageLookup(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x02)
	slotHash := makeHash(0xbb, 0x01)
	slotValue := makeHash(0xcc, 0x01)

	storageModel := newModelStorageTrie(t)
	storageRoot := storageModel.apply(map[types.Hash]types.Hash{slotHash: slotValue})

	acc := simpleAccount(1, 0, storageRoot, types.EmptyCodeHash)
	accModel := newModelTrie(t)
	stateRoot := accModel.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc})

	block1 := makeHash(0x01, 0x02)
	updates := []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc.Balance, StorageRoot: storageRoot, CodeHash: types.EmptyCodeHash},
		Storage:     map[types.Hash]types.Hash{slotHash: slotValue},
	}}
	if _, err := tree.ApplyBlock(genesis, block1, 1, stateRoot, updates); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}

	got, found, err := tree.Storage(block1, addrHashA, slotHash)
	if err != nil {
		t.Fatalf("Storage: %v", err)
	}
	if !found || got != slotValue {
		t.Fatalf("unexpected storage value: found=%v got=%v", found, got)
	}
}

func TestParentFallthroughToDisk(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x03)
	addrHashB := makeHash(0xaa, 0x04)
	model := newModelTrie(t)

	accA := simpleAccount(1, 10, trie.EmptyRoot, types.EmptyCodeHash)
	root1 := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: accA})
	block1 := makeHash(0x01, 0x03)
	if _, err := tree.ApplyBlock(genesis, block1, 1, root1, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: accA.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}); err != nil {
		t.Fatalf("ApplyBlock block1: %v", err)
	}

	accB := simpleAccount(1, 20, trie.EmptyRoot, types.EmptyCodeHash)
	root2 := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashB: accB})
	block2 := makeHash(0x01, 0x04)
	if _, err := tree.ApplyBlock(block1, block2, 2, root2, []AccountUpdate{{
		AddressHash: addrHashB,
		Info:        &AccountInfo{Nonce: 1, Balance: accB.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}); err != nil {
		t.Fatalf("ApplyBlock block2: %v", err)
	}

	got, found, err := tree.Account(block2, addrHashA)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if !found || got.Nonce != 1 || got.Balance.Uint64() != 10 {
		t.Fatalf("expected block2 to see A through block1's diff layer, got found=%v acc=%+v", found, got)
	}
}

func TestStackedDiffLayersOverride(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x05)
	model := newModelTrie(t)

	acc1 := simpleAccount(1, 10, trie.EmptyRoot, types.EmptyCodeHash)
	root1 := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc1})
	block1 := makeHash(0x01, 0x05)
	if _, err := tree.ApplyBlock(genesis, block1, 1, root1, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc1.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}); err != nil {
		t.Fatalf("ApplyBlock block1: %v", err)
	}

	acc2 := simpleAccount(2, 30, trie.EmptyRoot, types.EmptyCodeHash)
	root2 := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc2})
	block2 := makeHash(0x01, 0x06)
	if _, err := tree.ApplyBlock(block1, block2, 2, root2, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 2, Balance: acc2.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}); err != nil {
		t.Fatalf("ApplyBlock block2: %v", err)
	}

	gotAt1, _, err := tree.Account(block1, addrHashA)
	if err != nil || gotAt1.Nonce != 1 {
		t.Fatalf("block1 should still see nonce 1: %+v err=%v", gotAt1, err)
	}
	gotAt2, _, err := tree.Account(block2, addrHashA)
	if err != nil || gotAt2.Nonce != 2 {
		t.Fatalf("block2 should see the overriding nonce 2: %+v err=%v", gotAt2, err)
	}
}

func TestApplyBlockDuplicateIsNoOp(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x06)
	model := newModelTrie(t)
	acc := simpleAccount(1, 1, trie.EmptyRoot, types.EmptyCodeHash)
	root := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc})
	block1 := makeHash(0x01, 0x07)
	updates := []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}

	if _, err := tree.ApplyBlock(genesis, block1, 1, root, updates); err != nil {
		t.Fatalf("first ApplyBlock: %v", err)
	}
	if _, err := tree.ApplyBlock(genesis, block1, 1, root, updates); err != nil {
		t.Fatalf("duplicate ApplyBlock should be a no-op, got error: %v", err)
	}
	if len(tree.children[genesis]) != 1 {
		t.Fatalf("duplicate apply should not register a second child, got %d", len(tree.children[genesis]))
	}
}

func TestApplyBlockUnknownParent(t *testing.T) {
	tree, _ := newTestTree(t, 0)

	orphanParent := makeHash(0xff, 0x01)
	block1 := makeHash(0x01, 0x08)
	_, err := tree.ApplyBlock(orphanParent, block1, 1, trie.EmptyRoot, nil)
	if err != ErrUnknownParent {
		t.Fatalf("expected ErrUnknownParent, got %v", err)
	}
}

func TestForkchoiceUpdateMergesOldestLayer(t *testing.T) {
	tree, db := newTestTree(t, 1)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x07)
	model := newModelTrie(t)

	acc1 := simpleAccount(1, 5, trie.EmptyRoot, types.EmptyCodeHash)
	root1 := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc1})
	block1 := makeHash(0x01, 0x09)
	if _, err := tree.ApplyBlock(genesis, block1, 1, root1, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc1.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}); err != nil {
		t.Fatalf("ApplyBlock block1: %v", err)
	}

	acc2 := simpleAccount(2, 6, trie.EmptyRoot, types.EmptyCodeHash)
	root2 := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc2})
	block2 := makeHash(0x01, 0x0a)
	if _, err := tree.ApplyBlock(block1, block2, 2, root2, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 2, Balance: acc2.Balance, StorageRoot: trie.EmptyRoot, CodeHash: types.EmptyCodeHash},
	}}); err != nil {
		t.Fatalf("ApplyBlock block2: %v", err)
	}

	if err := tree.ForkchoiceUpdate(block2, block2, genesis); err != nil {
		t.Fatalf("ForkchoiceUpdate: %v", err)
	}

	if tree.DiskLayer().BlockHash() != block1 {
		t.Fatalf("expected disk layer to have merged up to block1, got %x", tree.DiskLayer().BlockHash())
	}

	diskAcc, found, err := tree.DiskLayer().Account(addrHashA)
	if err != nil || !found || diskAcc.Nonce != 1 {
		t.Fatalf("expected merged disk layer to hold block1's account, got %+v found=%v err=%v", diskAcc, found, err)
	}

	hash, err := rawdb.ReadCanonicalHash(db, 1)
	if err != nil || hash != block1 {
		t.Fatalf("expected canonical hash index for block1, got %x err=%v", hash, err)
	}

	got, found, err := tree.Account(block2, addrHashA)
	if err != nil || !found || got.Nonce != 2 {
		t.Fatalf("block2 should still read its own override after reparenting: %+v found=%v err=%v", got, found, err)
	}
}

func TestForkchoiceUpdateMergesStorage(t *testing.T) {
	tree, _ := newTestTree(t, 1)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x08)
	slotHash := makeHash(0xbb, 0x02)
	slotValue := makeHash(0xcc, 0x02)

	storageModel := newModelStorageTrie(t)
	storageRoot := storageModel.apply(map[types.Hash]types.Hash{slotHash: slotValue})

	accModel := newModelTrie(t)
	acc := simpleAccount(1, 0, storageRoot, types.EmptyCodeHash)
	stateRoot := accModel.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc})

	block1 := makeHash(0x01, 0x0b)
	if _, err := tree.ApplyBlock(genesis, block1, 1, stateRoot, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc.Balance, StorageRoot: storageRoot, CodeHash: types.EmptyCodeHash},
		Storage:     map[types.Hash]types.Hash{slotHash: slotValue},
	}}); err != nil {
		t.Fatalf("ApplyBlock block1: %v", err)
	}

	// A second, uneventful block so block1 is no longer the head and is
	// eligible to merge under retention 1.
	block2 := makeHash(0x01, 0x0c)
	if _, err := tree.ApplyBlock(block1, block2, 2, stateRoot, nil); err != nil {
		t.Fatalf("ApplyBlock block2: %v", err)
	}

	if err := tree.ForkchoiceUpdate(block2, block2, genesis); err != nil {
		t.Fatalf("ForkchoiceUpdate: %v", err)
	}

	got, found, err := tree.DiskLayer().Storage(addrHashA, slotHash)
	if err != nil || !found || got != slotValue {
		t.Fatalf("expected merged disk layer to hold the storage slot, got %v found=%v err=%v", got, found, err)
	}
}

func TestReorgTooDeepAfterPruning(t *testing.T) {
	tree, _ := newTestTree(t, DefaultRetention)
	genesis := tree.Head()

	branchA := makeHash(0x0a, 0x01)
	branchB := makeHash(0x0b, 0x01)
	if _, err := tree.ApplyBlock(genesis, branchA, 1, trie.EmptyRoot, nil); err != nil {
		t.Fatalf("ApplyBlock branchA: %v", err)
	}
	if _, err := tree.ApplyBlock(genesis, branchB, 1, trie.EmptyRoot, nil); err != nil {
		t.Fatalf("ApplyBlock branchB: %v", err)
	}

	if err := tree.ForkchoiceUpdate(branchA, branchA, branchA); err != nil {
		t.Fatalf("ForkchoiceUpdate onto branchA: %v", err)
	}

	if !tree.layers[branchB].Stale() {
		t.Fatalf("expected branchB to be pruned stale once branchA finalized at the same height")
	}

	err := tree.ForkchoiceUpdate(branchB, branchB, branchB)
	if err != ErrReorgTooDeep {
		t.Fatalf("expected ErrReorgTooDeep for the pruned sibling, got %v", err)
	}
}

func TestRemovedAccountShortCircuitsStorage(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	addrHashA := makeHash(0xaa, 0x09)
	slotHash := makeHash(0xbb, 0x03)
	slotValue := makeHash(0xcc, 0x03)

	storageModel := newModelStorageTrie(t)
	storageRoot := storageModel.apply(map[types.Hash]types.Hash{slotHash: slotValue})
	accModel := newModelTrie(t)
	acc := simpleAccount(1, 0, storageRoot, types.EmptyCodeHash)
	root1 := accModel.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc})

	block1 := makeHash(0x01, 0x0d)
	if _, err := tree.ApplyBlock(genesis, block1, 1, root1, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 1, Balance: acc.Balance, StorageRoot: storageRoot, CodeHash: types.EmptyCodeHash},
		Storage:     map[types.Hash]types.Hash{slotHash: slotValue},
	}}); err != nil {
		t.Fatalf("ApplyBlock block1: %v", err)
	}

	root2 := accModel.applyAccounts(map[types.Hash]bool{addrHashA: true}, nil)
	block2 := makeHash(0x01, 0x0e)
	if _, err := tree.ApplyBlock(block1, block2, 2, root2, []AccountUpdate{{
		AddressHash: addrHashA,
		Removed:     true,
	}}); err != nil {
		t.Fatalf("ApplyBlock block2: %v", err)
	}

	_, found, err := tree.Account(block2, addrHashA)
	if err != nil || found {
		t.Fatalf("account should be gone after removal: found=%v err=%v", found, err)
	}

	val, found, err := tree.Storage(block2, addrHashA, slotHash)
	if err != nil || found || !val.IsZero() {
		t.Fatalf("storage should short-circuit to absent for a removed account: val=%v found=%v err=%v", val, found, err)
	}

	// The earlier block must be unaffected.
	val, found, err = tree.Storage(block1, addrHashA, slotHash)
	if err != nil || !found || val != slotValue {
		t.Fatalf("block1 should still see the slot: val=%v found=%v err=%v", val, found, err)
	}
}

func TestNewCodeWrittenThroughImmediately(t *testing.T) {
	tree, _ := newTestTree(t, 0)
	genesis := tree.Head()

	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}
	codeHash := makeHash(0xde, 0x01)
	addrHashA := makeHash(0xaa, 0x0a)

	acc := simpleAccount(0, 0, trie.EmptyRoot, codeHash)
	model := newModelTrie(t)
	root := model.applyAccounts(nil, map[types.Hash]*types.Account{addrHashA: acc})

	block1 := makeHash(0x01, 0x0f)
	if _, err := tree.ApplyBlock(genesis, block1, 1, root, []AccountUpdate{{
		AddressHash: addrHashA,
		Info:        &AccountInfo{Nonce: 0, Balance: acc.Balance, StorageRoot: trie.EmptyRoot, CodeHash: codeHash},
		NewCode:     code,
	}}); err != nil {
		t.Fatalf("ApplyBlock: %v", err)
	}

	if !tree.codeCache.Has(codeHash) {
		t.Fatalf("new code should be visible in the code cache before any merge")
	}
	got, err := tree.codeCache.Get(codeHash)
	if err != nil || string(got) != string(code) {
		t.Fatalf("unexpected cached code: %v err=%v", got, err)
	}
}

func TestDiffLayerBloomHasNoFalseNegative(t *testing.T) {
	addrHashA := makeHash(0xaa, 0x0b)
	slotHash := makeHash(0xbb, 0x04)

	accounts := map[types.Hash]*accountOverride{
		addrHashA: {account: simpleAccount(1, 1, trie.EmptyRoot, types.EmptyCodeHash)},
	}
	storage := map[types.Hash]map[types.Hash]types.Hash{
		addrHashA: {slotHash: makeHash(0xcc, 0x04)},
	}

	dl := newDiffLayer(nil, makeHash(0x01, 0x10), types.Hash{}, 1, types.Hash{}, accounts, storage)

	if !dl.mayContainAccount(addrHashA) {
		t.Fatalf("bloom filter must never false-negative a key it was built from")
	}
	if !dl.mayContainStorage(addrHashA, slotHash) {
		t.Fatalf("bloom filter must never false-negative a storage key it was built from")
	}
}
