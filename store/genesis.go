package store

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/statelayer"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// GenesisAccount is one entry of a genesis allocation: the starting
// balance, nonce, code, and storage an address is created with.
type GenesisAccount struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	Storage map[types.Hash]types.Hash
}

// GenesisAlloc maps addresses (not address hashes; InitFromGenesis hashes
// them itself, matching how every other account lookup in this module is
// keyed) to their starting state.
type GenesisAlloc map[types.Address]GenesisAccount

// Genesis describes the chain's block zero.
type Genesis struct {
	ChainID   uint64
	Timestamp uint64
	ExtraData []byte
	Alloc     GenesisAlloc
}

// InitFromGenesis applies alloc to a fresh account/storage trie pair,
// writes the resulting genesis header, an empty body, canonical[0], and
// the head/safe/finalized pointers, and stamps metadata.json with the
// schema version and chain ID this database was created for. It fails
// with ErrGenesisAlreadyWritten-equivalent behavior (wrapped as a
// *Error with KindBackendIO is wrong here; genesis presence is reported
// directly) if the database already has a head block hash.
func InitFromGenesis(db rawdb.Database, genesis *Genesis) (*types.Block, error) {
	if _, err := rawdb.ReadHeadBlockHash(db); err == nil {
		return nil, ErrGenesisAlreadyWritten
	}

	accountDB := trie.NewDatabase(trie.NewAccountTrieReader(db))
	acctTrie, err := trie.New(trie.EmptyRoot, accountDB)
	if err != nil {
		return nil, wrap(err)
	}

	addrs := make([]types.Address, 0, len(genesis.Alloc))
	for addr := range genesis.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Less(addrs[j])
	})

	for _, addr := range addrs {
		ga := genesis.Alloc[addr]
		addrHash := crypto.Keccak256Hash(addr.Bytes())

		storageRoot := types.EmptyRootHash
		if len(ga.Storage) > 0 {
			storageRoot, err = writeGenesisStorage(db, addrHash, ga.Storage)
			if err != nil {
				return nil, wrap(err)
			}
		}

		codeHash := types.EmptyCodeHash
		if len(ga.Code) > 0 {
			codeHash = crypto.Keccak256Hash(ga.Code)
			if err := rawdb.WriteCode(db, codeHash, ga.Code); err != nil {
				return nil, wrap(err)
			}
		}

		balance := ga.Balance
		if balance == nil {
			balance = uint256.NewInt(0)
		}
		acc := &types.Account{
			Nonce:       ga.Nonce,
			Balance:     balance,
			StorageRoot: storageRoot,
			CodeHash:    codeHash,
		}
		enc, err := acc.EncodeRLP()
		if err != nil {
			return nil, wrap(err)
		}
		if err := acctTrie.Put(addrHash.Bytes(), enc); err != nil {
			return nil, wrap(err)
		}
	}

	stateRoot, err := acctTrie.Commit()
	if err != nil {
		return nil, wrap(err)
	}
	if err := accountDB.Flush(trie.NewAccountTrieWriter(db)); err != nil {
		return nil, wrap(err)
	}

	header := &types.Header{
		ParentHash: types.Hash{},
		Number:     0,
		StateRoot:  stateRoot,
		Time:       genesis.Timestamp,
		Extra:      genesis.ExtraData,
	}
	block := &types.Block{Header: header}
	hash := block.Hash()

	headerEnc, err := header.EncodeRLP()
	if err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteHeader(db, 0, hash, headerEnc); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteBody(db, 0, hash, block.BodyData); err != nil {
		return nil, wrap(err)
	}
	emptyReceipts := types.ReceiptList{}
	receiptsEnc, err := emptyReceipts.EncodeRLP()
	if err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteReceipts(db, 0, hash, receiptsEnc); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteCanonicalHash(db, 0, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteBlockNumber(db, hash, 0); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteHeadHeaderHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteHeadBlockHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteSafeHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteFinalizedHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteMetadata(db, rawdb.Metadata{
		SchemaVersion: rawdb.SchemaVersion,
		EngineTag:     rawdb.EngineTag,
		ChainID:       genesis.ChainID,
	}); err != nil {
		return nil, wrap(err)
	}

	return block, nil
}

// writeGenesisStorage applies a genesis account's storage allocation (in
// sorted slot-key order, for a deterministic trie) and returns the
// resulting storage root.
func writeGenesisStorage(db rawdb.Database, addrHash types.Hash, storage map[types.Hash]types.Hash) (types.Hash, error) {
	keys := make([]types.Hash, 0, len(storage))
	for k := range storage {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	storageDB := trie.NewDatabase(trie.NewStorageTrieReader(db, addrHash))
	storageTrie, err := trie.New(trie.EmptyRoot, storageDB)
	if err != nil {
		return types.Hash{}, err
	}
	for _, k := range keys {
		v := storage[k]
		if v.IsZero() {
			continue
		}
		enc, err := statelayer.EncodeStorageValue(v)
		if err != nil {
			return types.Hash{}, err
		}
		if err := storageTrie.Put(k.Bytes(), enc); err != nil {
			return types.Hash{}, err
		}
	}
	root, err := storageTrie.Commit()
	if err != nil {
		return types.Hash{}, err
	}
	if err := storageDB.Flush(trie.NewStorageTrieWriter(db, addrHash)); err != nil {
		return types.Hash{}, err
	}
	return root, nil
}
