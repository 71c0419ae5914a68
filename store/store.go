// Package store is the public façade over the embedded state backend: the
// only entry point callers outside this module need (the EVM collaborator
// that executes blocks, the sync client, a JSON-RPC server). It wires
// rawdb's disk backend, the code cache, and the statelayer diff-layer
// forest into open/init_from_genesis/add_block/apply_block/
// forkchoice_update/get_* operations, translating every internal error
// into the closed Kind taxonomy in errors.go.
package store

import (
	"sync"

	"github.com/ethrex/ethrex-state/codecache"
	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/log"
	"github.com/ethrex/ethrex-state/metrics"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/statelayer"
	"github.com/ethrex/ethrex-state/types"
)

var logger = log.Default().Module("store")

var (
	blocksAppliedCounter    = metrics.DefaultRegistry.Counter("store_blocks_applied")
	forkchoiceUpdateCounter = metrics.DefaultRegistry.Counter("store_forkchoice_updates")
	headBlockGauge          = metrics.DefaultRegistry.Gauge("store_head_block_number")
)

// Store is the façade's concrete handle: one open database, one code
// cache, one layer tree. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	db        rawdb.Database
	codeCache *codecache.Cache
	tree      *statelayer.Tree
	chainID   uint64
}

// Open opens an already initialized Pebble-backed store at dir and fails
// when dir holds no metadata (New initializes a store from genesis). It
// enforces that its on-disk metadata.json matches this build's schema version and the given
// chain ID. retention is passed straight through to the layer tree; zero
// picks statelayer.DefaultRetention. The code cache is sized at
// codecache.DefaultSizeBytes; use OpenSized to override it (the node
// package's Config.CodeCacheBytes is the usual source for that value).
func Open(dir string, chainID uint64, retention int) (*Store, error) {
	return OpenSized(dir, chainID, retention, codecache.DefaultSizeBytes)
}

// OpenSized is Open with an explicit code cache byte budget.
func OpenSized(dir string, chainID uint64, retention, cacheSizeBytes int) (*Store, error) {
	db, err := rawdb.OpenPebble(dir)
	if err != nil {
		return nil, wrap(err)
	}
	s, err := attach(db, chainID, retention, cacheSizeBytes)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-memory store, for tests and tooling that never
// need to survive a process restart.
func OpenMemory(chainID uint64, retention int) (*Store, error) {
	return attach(rawdb.NewMemoryDB(), chainID, retention, codecache.DefaultSizeBytes)
}

// New opens (initializing from genesis if dir has no database yet) a
// Pebble-backed store at dir.
func New(dir string, genesis *Genesis, retention int) (*Store, error) {
	return NewSized(dir, genesis, retention, codecache.DefaultSizeBytes)
}

// NewSized is New with an explicit code cache byte budget.
func NewSized(dir string, genesis *Genesis, retention, cacheSizeBytes int) (*Store, error) {
	db, err := rawdb.OpenPebble(dir)
	if err != nil {
		return nil, wrap(err)
	}
	s, err := newOrInit(db, genesis, retention, cacheSizeBytes)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMemory is New's in-memory analogue, for tests.
func NewMemory(genesis *Genesis, retention int) (*Store, error) {
	return newOrInit(rawdb.NewMemoryDB(), genesis, retention, codecache.DefaultSizeBytes)
}

func newOrInit(db rawdb.Database, genesis *Genesis, retention, cacheSizeBytes int) (*Store, error) {
	if _, err := rawdb.ReadMetadata(db); err != nil {
		if _, err := InitFromGenesis(db, genesis); err != nil {
			return nil, err
		}
	}
	return attach(db, genesis.ChainID, retention, cacheSizeBytes)
}

// attach validates db's metadata and rebuilds the in-memory layer tree
// rooted at its current head block.
func attach(db rawdb.Database, chainID uint64, retention, cacheSizeBytes int) (*Store, error) {
	meta, err := rawdb.ReadMetadata(db)
	if err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.CheckMetadata(meta, chainID); err != nil {
		return nil, wrap(err)
	}

	headHash, err := rawdb.ReadHeadBlockHash(db)
	if err != nil {
		return nil, wrap(err)
	}
	number, err := rawdb.ReadBlockNumber(db, headHash)
	if err != nil {
		return nil, wrap(err)
	}
	headerEnc, err := rawdb.ReadHeader(db, number, headHash)
	if err != nil {
		return nil, wrap(err)
	}
	header := &types.Header{}
	if err := header.DecodeRLP(headerEnc); err != nil {
		return nil, wrap(err)
	}

	codeCache := codecache.New(db, cacheSizeBytes)
	tree := statelayer.NewTree(db, codeCache, headHash, number, header.StateRoot, retention)

	return &Store{db: db, codeCache: codeCache, tree: tree, chainID: chainID}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddBlock stages block's header and body under the pending table. It does
// not touch chain state: the block becomes visible to reads only once
// ApplyBlock has run against it.
func (s *Store) AddBlock(block *types.Block) error {
	enc, err := block.EncodeRLP()
	if err != nil {
		return wrap(err)
	}
	if err := rawdb.WritePendingBlock(s.db, block.Hash(), enc); err != nil {
		return wrap(err)
	}
	return nil
}

// ApplyBlock applies a previously staged block's account_updates on top of
// its parent layer, records the block's declared state_root with the new
// layer, and persists the block's header, body, and receipts permanently.
// It does not compute the new layer's root: the declared root is compared
// with the recomputed trie root only when ForkchoiceUpdate merges the
// layer into the disk layer, and a mismatch fails that call. It returns
// the block hash as the new layer's id.
func (s *Store) ApplyBlock(blockHash types.Hash, updates []statelayer.AccountUpdate, receipts types.ReceiptList, stateRoot types.Hash) (types.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pendingEnc, err := rawdb.ReadPendingBlock(s.db, blockHash)
	if err != nil {
		return types.Hash{}, wrap(err)
	}
	block := &types.Block{}
	if err := block.DecodeRLP(pendingEnc); err != nil {
		return types.Hash{}, wrap(err)
	}

	layerID, err := s.tree.ApplyBlock(block.Header.ParentHash, blockHash, block.Header.Number, stateRoot, updates)
	if err != nil {
		return types.Hash{}, wrap(err)
	}

	headerEnc, err := block.Header.EncodeRLP()
	if err != nil {
		return types.Hash{}, wrap(err)
	}
	if err := rawdb.WriteHeader(s.db, block.Header.Number, blockHash, headerEnc); err != nil {
		return types.Hash{}, wrap(err)
	}
	if err := rawdb.WriteBody(s.db, block.Header.Number, blockHash, block.BodyData); err != nil {
		return types.Hash{}, wrap(err)
	}
	receiptsEnc, err := receipts.EncodeRLP()
	if err != nil {
		return types.Hash{}, wrap(err)
	}
	if err := rawdb.WriteReceipts(s.db, block.Header.Number, blockHash, receiptsEnc); err != nil {
		return types.Hash{}, wrap(err)
	}
	if err := rawdb.WriteBlockNumber(s.db, blockHash, block.Header.Number); err != nil {
		return types.Hash{}, wrap(err)
	}
	if err := rawdb.DeletePendingBlock(s.db, blockHash); err != nil {
		return types.Hash{}, wrap(err)
	}

	blocksAppliedCounter.Inc()
	headBlockGauge.Set(int64(block.Header.Number))
	logger.Info("applied block", "number", block.Header.Number, "hash", blockHash.Hex(), "state_root", stateRoot.Hex())
	return layerID, nil
}

// ForkchoiceUpdate advances the canonical head/safe/finalized pointers,
// merging and pruning layers as statelayer.Tree.ForkchoiceUpdate requires,
// and persists the new pointers so a restart picks up where it left off.
func (s *Store) ForkchoiceUpdate(head, safe, finalized types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.ForkchoiceUpdate(head, safe, finalized); err != nil {
		return wrap(err)
	}
	if err := rawdb.WriteHeadHeaderHash(s.db, head); err != nil {
		return wrap(err)
	}
	if err := rawdb.WriteHeadBlockHash(s.db, head); err != nil {
		return wrap(err)
	}
	if err := rawdb.WriteSafeHash(s.db, safe); err != nil {
		return wrap(err)
	}
	if err := rawdb.WriteFinalizedHash(s.db, finalized); err != nil {
		return wrap(err)
	}
	forkchoiceUpdateCounter.Inc()
	logger.Info("forkchoice updated", "head", head.Hex(), "safe", safe.Hex(), "finalized", finalized.Hex())
	return nil
}

// GetAccount returns the account at addr as of blockHash.
func (s *Store) GetAccount(blockHash types.Hash, addr types.Address) (*types.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrHash := crypto.Keccak256Hash(addr.Bytes())
	acc, found, err := s.tree.Account(blockHash, addrHash)
	if err != nil {
		return nil, false, wrap(err)
	}
	return acc, found, nil
}

// GetStorage returns the value of slot in addr's storage as of blockHash.
func (s *Store) GetStorage(blockHash types.Hash, addr types.Address, slot types.Hash) (types.Hash, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrHash := crypto.Keccak256Hash(addr.Bytes())
	slotHash := crypto.Keccak256Hash(slot.Bytes())
	val, found, err := s.tree.Storage(blockHash, addrHash, slotHash)
	if err != nil {
		return types.Hash{}, false, wrap(err)
	}
	return val, found, nil
}

// GetCode returns the bytecode stored under codeHash.
func (s *Store) GetCode(codeHash types.Hash) ([]byte, error) {
	code, err := s.codeCache.Get(codeHash)
	if err != nil {
		return nil, wrap(err)
	}
	return code, nil
}

// GetBlock returns the full header and opaque body for blockHash, once it
// has been applied (pending blocks are not visible here).
func (s *Store) GetBlock(blockHash types.Hash) (*types.Block, error) {
	number, err := rawdb.ReadBlockNumber(s.db, blockHash)
	if err != nil {
		return nil, wrap(err)
	}
	headerEnc, err := rawdb.ReadHeader(s.db, number, blockHash)
	if err != nil {
		return nil, wrap(err)
	}
	header := &types.Header{}
	if err := header.DecodeRLP(headerEnc); err != nil {
		return nil, wrap(err)
	}
	body, err := rawdb.ReadBody(s.db, number, blockHash)
	if err != nil {
		return nil, wrap(err)
	}
	return &types.Block{Header: header, BodyData: body}, nil
}

// GetReceipts returns the receipt list recorded for blockHash.
func (s *Store) GetReceipts(blockHash types.Hash) (types.ReceiptList, error) {
	number, err := rawdb.ReadBlockNumber(s.db, blockHash)
	if err != nil {
		return nil, wrap(err)
	}
	enc, err := rawdb.ReadReceipts(s.db, number, blockHash)
	if err != nil {
		return nil, wrap(err)
	}
	var receipts types.ReceiptList
	if err := receipts.DecodeRLP(enc); err != nil {
		return nil, wrap(err)
	}
	return receipts, nil
}

// Head, Safe, and Finalized report the store's current forkchoice pointers.
func (s *Store) Head() types.Hash      { return s.tree.Head() }
func (s *Store) Safe() types.Hash      { return s.tree.Safe() }
func (s *Store) Finalized() types.Hash { return s.tree.Finalized() }

// ChainID reports the chain ID this store's metadata was stamped with.
func (s *Store) ChainID() uint64 { return s.chainID }
