package snapsync

import (
	"sort"
	"testing"

	"github.com/ethrex/ethrex-state/codecache"
	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
	"github.com/holiman/uint256"
)

// fakePeer serves the full account set (and each account's full storage
// set) as a single page per request, backed by real in-memory tries so the
// range proofs it returns are genuine and VerifyRangeProof actually
// exercises Merkle verification end to end.
type fakePeer struct {
	accountTrie *trie.Trie
	accountKeys []types.Hash
	accounts    map[types.Hash]*types.Account

	storageTries map[types.Hash]*trie.Trie
	storageKeys  map[types.Hash][]types.Hash
	storageVals  map[types.Hash]map[types.Hash][]byte

	code map[types.Hash][]byte
}

func (p *fakePeer) ID() string { return "fake" }

func (p *fakePeer) RequestAccountRange(req AccountRangeRequest) (*AccountRangeResponse, error) {
	var keys []types.Hash
	var values [][]byte
	for _, k := range p.accountKeys {
		if string(k.Bytes()) < string(req.Origin.Bytes()) {
			continue
		}
		enc, err := p.accounts[k].EncodeRLP()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		values = append(values, enc)
	}
	if len(keys) == 0 {
		return &AccountRangeResponse{}, nil
	}
	rawKeys := make([][]byte, len(keys))
	for i, k := range keys {
		rawKeys[i] = k.Bytes()
	}
	firstProof, err := p.accountTrie.Prove(rawKeys[0])
	if err != nil {
		return nil, err
	}
	lastProof, err := p.accountTrie.Prove(rawKeys[len(rawKeys)-1])
	if err != nil {
		return nil, err
	}
	return &AccountRangeResponse{Keys: keys, Values: values, FirstProof: firstProof, LastProof: lastProof}, nil
}

func (p *fakePeer) RequestStorageRange(req StorageRangeRequest) (*StorageRangeResponse, error) {
	tr, ok := p.storageTries[req.Account]
	if !ok {
		return &StorageRangeResponse{}, nil
	}
	var keys []types.Hash
	var values [][]byte
	for _, k := range p.storageKeys[req.Account] {
		if string(k.Bytes()) < string(req.Origin.Bytes()) {
			continue
		}
		keys = append(keys, k)
		values = append(values, p.storageVals[req.Account][k])
	}
	if len(keys) == 0 {
		return &StorageRangeResponse{}, nil
	}
	rawKeys := make([][]byte, len(keys))
	for i, k := range keys {
		rawKeys[i] = k.Bytes()
	}
	firstProof, err := tr.Prove(rawKeys[0])
	if err != nil {
		return nil, err
	}
	lastProof, err := tr.Prove(rawKeys[len(rawKeys)-1])
	if err != nil {
		return nil, err
	}
	return &StorageRangeResponse{Keys: keys, Values: values, FirstProof: firstProof, LastProof: lastProof}, nil
}

func (p *fakePeer) RequestBytecodes(req BytecodeRequest) (*BytecodeResponse, error) {
	codes := make([][]byte, len(req.Hashes))
	for i, h := range req.Hashes {
		codes[i] = p.code[h]
	}
	return &BytecodeResponse{Codes: codes}, nil
}

func (p *fakePeer) RequestTrieNodes(req TrieNodeRequest) (*TrieNodeResponse, error) {
	return &TrieNodeResponse{Nodes: make([][]byte, len(req.Paths))}, nil
}

// newFakePeer builds a two-account world state: one plain EOA and one
// contract account with two storage slots and some bytecode.
func newFakePeer(t *testing.T) (*fakePeer, types.Hash) {
	t.Helper()

	code := []byte{0x60, 0x01, 0x60, 0x02}
	codeHash := crypto.Keccak256Hash(code)

	storageSlots := map[types.Hash][]byte{
		types.HexToHash("0x01"): {0x2a},
		types.HexToHash("0x02"): {0x2b},
	}
	storageTr, err := trie.New(types.Hash{}, nil)
	if err != nil {
		t.Fatalf("trie.New storage: %v", err)
	}
	for k, v := range storageSlots {
		if err := storageTr.Put(k.Bytes(), v); err != nil {
			t.Fatalf("Put storage: %v", err)
		}
	}
	storageRoot := storageTr.Hash()

	contractAddrHash := types.HexToHash("0xc0ffee")
	eoaAddrHash := types.HexToHash("0x01")

	accounts := map[types.Hash]*types.Account{
		eoaAddrHash: {
			Nonce: 3, Balance: uint256.NewInt(500),
			StorageRoot: types.EmptyRootHash, CodeHash: types.EmptyCodeHash,
		},
		contractAddrHash: {
			Nonce: 1, Balance: uint256.NewInt(0),
			StorageRoot: storageRoot, CodeHash: codeHash,
		},
	}

	accountTr, err := trie.New(types.Hash{}, nil)
	if err != nil {
		t.Fatalf("trie.New account: %v", err)
	}
	for k, acc := range accounts {
		enc, err := acc.EncodeRLP()
		if err != nil {
			t.Fatalf("EncodeRLP: %v", err)
		}
		if err := accountTr.Put(k.Bytes(), enc); err != nil {
			t.Fatalf("Put account: %v", err)
		}
	}
	accountRoot := accountTr.Hash()

	accountKeys := []types.Hash{eoaAddrHash, contractAddrHash}
	sort.Slice(accountKeys, func(i, j int) bool {
		return string(accountKeys[i].Bytes()) < string(accountKeys[j].Bytes())
	})

	peer := &fakePeer{
		accountTrie:  accountTr,
		accountKeys:  accountKeys,
		accounts:     accounts,
		storageTries: map[types.Hash]*trie.Trie{contractAddrHash: storageTr},
		storageKeys:  map[types.Hash][]types.Hash{contractAddrHash: {types.HexToHash("0x01"), types.HexToHash("0x02")}},
		storageVals:  map[types.Hash]map[types.Hash][]byte{contractAddrHash: storageSlots},
		code:         map[types.Hash][]byte{codeHash: code},
	}
	return peer, accountRoot
}

func TestSyncerRunFullPipeline(t *testing.T) {
	peer, pivotRoot := newFakePeer(t)

	db := rawdb.NewMemoryDB()
	codeCache := codecache.New(db, 0)
	syncer := NewSyncer(db, codeCache, 1000, pivotRoot)

	if err := syncer.Run(peer); err != nil {
		t.Fatalf("Run: %v", err)
	}

	progress := syncer.Progress()
	if progress.Phase != PhaseComplete {
		t.Fatalf("expected PhaseComplete, got %v", progress.Phase)
	}
	if progress.AccountsDone != 2 {
		t.Errorf("AccountsDone: got %d want 2", progress.AccountsDone)
	}
	if progress.StorageSlots != 2 {
		t.Errorf("StorageSlots: got %d want 2", progress.StorageSlots)
	}
	if progress.BytecodesDone != 1 {
		t.Errorf("BytecodesDone: got %d want 1", progress.BytecodesDone)
	}

	// The checkpoint should have been cleared on successful completion.
	if cp, err := LoadCheckpoint(db); err != nil || cp != nil {
		t.Fatalf("expected checkpoint cleared, got %+v err=%v", cp, err)
	}

	// The synced account trie should be independently readable from disk.
	dbnd := trie.NewDatabase(trie.NewAccountTrieReader(db))
	tr, err := trie.New(pivotRoot, dbnd)
	if err != nil {
		t.Fatalf("trie.New (post-sync read): %v", err)
	}
	data, err := tr.Get(types.HexToHash("0xc0ffee").Bytes())
	if err != nil {
		t.Fatalf("Get contract account: %v", err)
	}
	acc := &types.Account{}
	if err := acc.DecodeRLP(data); err != nil {
		t.Fatalf("DecodeRLP: %v", err)
	}
	if acc.CodeHash != crypto.Keccak256Hash([]byte{0x60, 0x01, 0x60, 0x02}) {
		t.Errorf("unexpected code hash for synced contract account")
	}

	if !codeCache.Has(acc.CodeHash) {
		t.Errorf("expected bytecode to be cached after sync")
	}
}

func TestSyncerRunRejectsConcurrentCall(t *testing.T) {
	peer, pivotRoot := newFakePeer(t)
	db := rawdb.NewMemoryDB()
	syncer := NewSyncer(db, codecache.New(db, 0), 1000, pivotRoot)

	syncer.running.Store(true)
	if err := syncer.Run(peer); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
