package snapsync

import (
	"sort"
	"testing"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

func buildStorageTrie(t *testing.T, slots map[types.Hash][]byte) (*trie.Trie, types.Hash) {
	t.Helper()
	tr, err := trie.New(types.Hash{}, nil)
	if err != nil {
		t.Fatalf("trie.New: %v", err)
	}
	for key, val := range slots {
		if err := tr.Put(key.Bytes(), val); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	return tr, tr.Hash()
}

func sortedSlotKeys(slots map[types.Hash][]byte) []types.Hash {
	keys := make([]types.Hash, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i].Bytes()) < string(keys[j].Bytes()) })
	return keys
}

func TestStorageIngesterValidPage(t *testing.T) {
	slots := map[types.Hash][]byte{
		types.HexToHash("0x01"): []byte{0x0a},
		types.HexToHash("0x02"): []byte{0x0b},
	}
	src, root := buildStorageTrie(t, slots)
	keys := sortedSlotKeys(slots)
	values := make([][]byte, len(keys))
	rawKeys := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = slots[k]
		rawKeys[i] = k.Bytes()
	}
	firstProof, err := src.Prove(rawKeys[0])
	if err != nil {
		t.Fatalf("Prove first: %v", err)
	}
	lastProof, err := src.Prove(rawKeys[len(rawKeys)-1])
	if err != nil {
		t.Fatalf("Prove last: %v", err)
	}

	db := rawdb.NewMemoryDB()
	addrHash := types.HexToHash("0xcontract")
	ing, err := NewStorageIngester(db, addrHash, root)
	if err != nil {
		t.Fatalf("NewStorageIngester: %v", err)
	}

	hasMore, err := ing.ApplyPage(&StorageRangeResponse{Keys: keys, Values: values, FirstProof: firstProof, LastProof: lastProof})
	if err != nil {
		t.Fatalf("ApplyPage: %v", err)
	}
	if hasMore {
		t.Errorf("expected hasMore=false")
	}

	got, err := ing.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got != root {
		t.Errorf("Flush root: got %x want %x", got, root)
	}
}

func TestStorageIngesterRejectsBadProof(t *testing.T) {
	slots := map[types.Hash][]byte{
		types.HexToHash("0x01"): []byte{0x0a},
	}
	_, root := buildStorageTrie(t, slots)
	keys := sortedSlotKeys(slots)

	db := rawdb.NewMemoryDB()
	ing, err := NewStorageIngester(db, types.HexToHash("0xcontract"), root)
	if err != nil {
		t.Fatalf("NewStorageIngester: %v", err)
	}

	// A bogus proof that doesn't correspond to the real trie at all.
	resp := &StorageRangeResponse{
		Keys:       keys,
		Values:     [][]byte{{0x0a}},
		FirstProof: [][]byte{{0xde, 0xad, 0xbe, 0xef}},
		LastProof:  [][]byte{{0xde, 0xad, 0xbe, 0xef}},
	}
	if _, err := ing.ApplyPage(resp); err != ErrBadStorageProof {
		t.Fatalf("expected ErrBadStorageProof, got %v", err)
	}
}
