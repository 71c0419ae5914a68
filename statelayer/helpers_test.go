package statelayer

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/ethrex/ethrex-state/codecache"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// makeHash builds a deterministic, distinguishable hash for test fixtures:
// every byte equals b except the last, which is bumped by salt so that
// otherwise-identical calls don't collide.
func makeHash(b, salt byte) types.Hash {
	var h types.Hash
	for i := range h {
		h[i] = b
	}
	h[len(h)-1] = salt
	return h
}

func newTestTree(t *testing.T, retention int) (*Tree, rawdb.Database) {
	t.Helper()
	db := rawdb.NewMemoryDB()
	cc := codecache.New(db, codecache.DefaultSizeBytes)
	genesis := makeHash(0x00, 0x00)
	return NewTree(db, cc, genesis, 0, trie.EmptyRoot, retention), db
}

// modelTrie is a purely in-memory trie (no database, never committed) that
// a test keeps alive across several simulated blocks so it can predict the
// cumulative state_root ApplyBlock expects, exactly as flatten() would
// compute it once merged. Reusing one *trie.Trie across calls (instead of
// rebuilding from a root hash each time) sidesteps New's requirement of a
// non-nil database for any non-empty root.
type modelTrie struct {
	t *testing.T
	tr *trie.Trie
}

func newModelTrie(t *testing.T) *modelTrie {
	t.Helper()
	tr, err := trie.New(trie.EmptyRoot, nil)
	if err != nil {
		t.Fatalf("trie.New: %v", err)
	}
	return &modelTrie{t: t, tr: tr}
}

// applyAccounts mutates the model trie with the given account upserts and
// removals and returns the resulting root.
func (m *modelTrie) applyAccounts(removed map[types.Hash]bool, accs map[types.Hash]*types.Account) types.Hash {
	m.t.Helper()
	for addrHash := range removed {
		if err := m.tr.Delete(addrHash.Bytes()); err != nil {
			m.t.Fatalf("delete: %v", err)
		}
	}
	for addrHash, acc := range accs {
		enc, err := acc.EncodeRLP()
		if err != nil {
			m.t.Fatalf("encode account: %v", err)
		}
		if err := m.tr.Put(addrHash.Bytes(), enc); err != nil {
			m.t.Fatalf("put account: %v", err)
		}
	}
	return m.tr.Hash()
}

// modelStorageTrie is applyAccounts's analogue for one account's storage.
type modelStorageTrie struct {
	t  *testing.T
	tr *trie.Trie
}

func newModelStorageTrie(t *testing.T) *modelStorageTrie {
	t.Helper()
	tr, err := trie.New(trie.EmptyRoot, nil)
	if err != nil {
		t.Fatalf("trie.New: %v", err)
	}
	return &modelStorageTrie{t: t, tr: tr}
}

func (m *modelStorageTrie) apply(slots map[types.Hash]types.Hash) types.Hash {
	m.t.Helper()
	for slotHash, value := range slots {
		if value.IsZero() {
			if err := m.tr.Delete(slotHash.Bytes()); err != nil {
				m.t.Fatalf("delete slot: %v", err)
			}
			continue
		}
		enc, err := EncodeStorageValue(value)
		if err != nil {
			m.t.Fatalf("encode slot: %v", err)
		}
		if err := m.tr.Put(slotHash.Bytes(), enc); err != nil {
			m.t.Fatalf("put slot: %v", err)
		}
	}
	return m.tr.Hash()
}

func simpleAccount(nonce uint64, balance uint64, storageRoot, codeHash types.Hash) *types.Account {
	return &types.Account{
		Nonce:       nonce,
		Balance:     uint256.NewInt(balance),
		StorageRoot: storageRoot,
		CodeHash:    codeHash,
	}
}
