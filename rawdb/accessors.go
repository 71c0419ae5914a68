package rawdb

import "github.com/ethrex/ethrex-state/types"

// --- Headers ---

func WriteHeader(db KeyValueWriter, number uint64, hash types.Hash, data []byte) error {
	if err := db.Put(HeaderKey(number, hash), data); err != nil {
		return err
	}
	return db.Put(HeaderNumberKey(hash), encodeBlockNumber(number))
}

func ReadHeader(db KeyValueReader, number uint64, hash types.Hash) ([]byte, error) {
	return db.Get(HeaderKey(number, hash))
}

func ReadHeaderNumber(db KeyValueReader, hash types.Hash) (uint64, error) {
	data, err := db.Get(HeaderNumberKey(hash))
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, ErrNotFound
	}
	return decodeBlockNumber(data), nil
}

func HasHeader(db KeyValueReader, number uint64, hash types.Hash) bool {
	ok, _ := db.Has(HeaderKey(number, hash))
	return ok
}

func DeleteHeader(db KeyValueWriter, number uint64, hash types.Hash) error {
	if err := db.Delete(HeaderKey(number, hash)); err != nil {
		return err
	}
	return db.Delete(HeaderNumberKey(hash))
}

// --- Bodies ---

func WriteBody(db KeyValueWriter, number uint64, hash types.Hash, data []byte) error {
	return db.Put(BodyKey(number, hash), data)
}

func ReadBody(db KeyValueReader, number uint64, hash types.Hash) ([]byte, error) {
	return db.Get(BodyKey(number, hash))
}

func DeleteBody(db KeyValueWriter, number uint64, hash types.Hash) error {
	return db.Delete(BodyKey(number, hash))
}

// --- Receipts ---

func WriteReceipts(db KeyValueWriter, number uint64, hash types.Hash, data []byte) error {
	return db.Put(ReceiptsKey(number, hash), data)
}

func ReadReceipts(db KeyValueReader, number uint64, hash types.Hash) ([]byte, error) {
	return db.Get(ReceiptsKey(number, hash))
}

func DeleteReceipts(db KeyValueWriter, number uint64, hash types.Hash) error {
	return db.Delete(ReceiptsKey(number, hash))
}

// --- Transaction lookup ---

func WriteTxLookup(db KeyValueWriter, txHash types.Hash, blockNumber uint64) error {
	return db.Put(TxLookupKey(txHash), encodeBlockNumber(blockNumber))
}

func ReadTxLookup(db KeyValueReader, txHash types.Hash) (uint64, error) {
	data, err := db.Get(TxLookupKey(txHash))
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, ErrNotFound
	}
	return decodeBlockNumber(data), nil
}

func DeleteTxLookup(db KeyValueWriter, txHash types.Hash) error {
	return db.Delete(TxLookupKey(txHash))
}

// --- Canonical chain & block numbers ---

func WriteCanonicalHash(db KeyValueWriter, number uint64, hash types.Hash) error {
	return db.Put(CanonicalKey(number), hash.Bytes())
}

func ReadCanonicalHash(db KeyValueReader, number uint64) (types.Hash, error) {
	data, err := db.Get(CanonicalKey(number))
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

func DeleteCanonicalHash(db KeyValueWriter, number uint64) error {
	return db.Delete(CanonicalKey(number))
}

func WriteBlockNumber(db KeyValueWriter, hash types.Hash, number uint64) error {
	return db.Put(NumberKey(hash), encodeBlockNumber(number))
}

func ReadBlockNumber(db KeyValueReader, hash types.Hash) (uint64, error) {
	data, err := db.Get(NumberKey(hash))
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, ErrNotFound
	}
	return decodeBlockNumber(data), nil
}

// --- Head pointers (canonical/safe/finalized fork-choice state) ---

func WriteHeadHeaderHash(db KeyValueWriter, hash types.Hash) error {
	return db.Put(headHeaderKey, hash.Bytes())
}

func ReadHeadHeaderHash(db KeyValueReader) (types.Hash, error) {
	data, err := db.Get(headHeaderKey)
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

func WriteHeadBlockHash(db KeyValueWriter, hash types.Hash) error {
	return db.Put(headBlockKey, hash.Bytes())
}

func ReadHeadBlockHash(db KeyValueReader) (types.Hash, error) {
	data, err := db.Get(headBlockKey)
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

func WriteFinalizedHash(db KeyValueWriter, hash types.Hash) error {
	return db.Put(headFinalizedKey, hash.Bytes())
}

func ReadFinalizedHash(db KeyValueReader) (types.Hash, error) {
	data, err := db.Get(headFinalizedKey)
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

func WriteSafeHash(db KeyValueWriter, hash types.Hash) error {
	return db.Put(headSafeKey, hash.Bytes())
}

func ReadSafeHash(db KeyValueReader) (types.Hash, error) {
	data, err := db.Get(headSafeKey)
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

// --- Contract code (content-addressed, written once per distinct hash) ---

func WriteCode(db KeyValueWriter, codeHash types.Hash, code []byte) error {
	return db.Put(CodeKey(codeHash), code)
}

func ReadCode(db KeyValueReader, codeHash types.Hash) ([]byte, error) {
	return db.Get(CodeKey(codeHash))
}

func HasCode(db KeyValueReader, codeHash types.Hash) bool {
	ok, _ := db.Has(CodeKey(codeHash))
	return ok
}

// --- Trie nodes ---

func WriteAccountTrieNode(db KeyValueWriter, nodeHash types.Hash, data []byte) error {
	return db.Put(AccountTrieNodeKey(nodeHash), data)
}

func ReadAccountTrieNode(db KeyValueReader, nodeHash types.Hash) ([]byte, error) {
	return db.Get(AccountTrieNodeKey(nodeHash))
}

func WriteStorageTrieNode(db KeyValueWriter, addrHash, nodeHash types.Hash, data []byte) error {
	return db.Put(StorageTrieNodeKey(addrHash, nodeHash), data)
}

func ReadStorageTrieNode(db KeyValueReader, addrHash, nodeHash types.Hash) ([]byte, error) {
	return db.Get(StorageTrieNodeKey(addrHash, nodeHash))
}

// --- Chain metadata (snap-sync checkpoints, schema bookkeeping) ---

func WriteChainMeta(db KeyValueWriter, name string, value []byte) error {
	return db.Put(ChainMetaKey(name), value)
}

func ReadChainMeta(db KeyValueReader, name string) ([]byte, error) {
	return db.Get(ChainMetaKey(name))
}

func DeleteChainMeta(db KeyValueWriter, name string) error {
	return db.Delete(ChainMetaKey(name))
}

// --- Pending blocks (staged, not yet canonical) ---

func WritePendingBlock(db KeyValueWriter, hash types.Hash, data []byte) error {
	return db.Put(PendingBlockKey(hash), data)
}

func ReadPendingBlock(db KeyValueReader, hash types.Hash) ([]byte, error) {
	return db.Get(PendingBlockKey(hash))
}

func DeletePendingBlock(db KeyValueWriter, hash types.Hash) error {
	return db.Delete(PendingBlockKey(hash))
}

// --- Execution witnesses ---

func WriteWitness(db KeyValueWriter, hash types.Hash, data []byte) error {
	return db.Put(WitnessKey(hash), data)
}

func ReadWitness(db KeyValueReader, hash types.Hash) ([]byte, error) {
	return db.Get(WitnessKey(hash))
}
