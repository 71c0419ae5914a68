package rawdb

import (
	"encoding/binary"

	"github.com/ethrex/ethrex-state/types"
)

// Table prefixes. Each is a single byte so that range-scanning a table is
// a plain prefix iteration; storage trie nodes additionally scope by the
// owning account's address hash so two contracts' subtries never collide.
var (
	headerPrefix       = []byte("h") // h + num(8BE) + hash -> header RLP
	headerNumberPrefix = []byte("H") // H + hash -> num(8BE)
	bodyPrefix         = []byte("b") // b + num(8BE) + hash -> body RLP
	receiptPrefix      = []byte("r") // r + num(8BE) + hash -> receipts RLP
	txLookupPrefix     = []byte("l") // l + tx hash -> num(8BE) (tx_locations)
	canonicalPrefix    = []byte("c") // c + num(8BE) -> canonical hash
	numberPrefix       = []byte("n") // n + hash -> num(8BE) (numbers)
	codePrefix         = []byte("C") // C + code hash -> bytecode
	accountTriePrefix  = []byte("t") // t + node hash -> account trie node
	storageTriePrefix  = []byte("T") // T + addr hash + node hash -> storage trie node
	chainMetaPrefix    = []byte("m") // m + key -> chain_meta value
	pendingPrefix      = []byte("p") // p + block hash -> pending block data
	witnessPrefix      = []byte("w") // w + block hash -> execution witness blob

	headHeaderKey   = []byte("LASTHEADER")
	headBlockKey    = []byte("LASTBLOCK")
	headFinalizedKey = []byte("LASTFINALIZED")
	headSafeKey     = []byte("LASTSAFE")
)

func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func decodeBlockNumber(enc []byte) uint64 {
	return binary.BigEndian.Uint64(enc)
}

// HeaderKey returns the storage key for a block header.
func HeaderKey(number uint64, hash types.Hash) []byte {
	return append(append(append([]byte{}, headerPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

// HeaderNumberKey returns the storage key mapping a hash to its number.
func HeaderNumberKey(hash types.Hash) []byte {
	return append(append([]byte{}, headerNumberPrefix...), hash.Bytes()...)
}

// BodyKey returns the storage key for a block body.
func BodyKey(number uint64, hash types.Hash) []byte {
	return append(append(append([]byte{}, bodyPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

// ReceiptsKey returns the storage key for a block's receipts.
func ReceiptsKey(number uint64, hash types.Hash) []byte {
	return append(append(append([]byte{}, receiptPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

// TxLookupKey returns the storage key mapping a transaction hash to its
// containing block number.
func TxLookupKey(txHash types.Hash) []byte {
	return append(append([]byte{}, txLookupPrefix...), txHash.Bytes()...)
}

// CanonicalKey returns the storage key mapping a block number to the
// canonical hash at that height.
func CanonicalKey(number uint64) []byte {
	return append(append([]byte{}, canonicalPrefix...), encodeBlockNumber(number)...)
}

// NumberKey returns the storage key mapping a block hash to its number.
func NumberKey(hash types.Hash) []byte {
	return append(append([]byte{}, numberPrefix...), hash.Bytes()...)
}

// CodeKey returns the storage key for contract bytecode.
func CodeKey(codeHash types.Hash) []byte {
	return append(append([]byte{}, codePrefix...), codeHash.Bytes()...)
}

// AccountTrieNodeKey returns the storage key for a state-trie node.
func AccountTrieNodeKey(nodeHash types.Hash) []byte {
	return append(append([]byte{}, accountTriePrefix...), nodeHash.Bytes()...)
}

// StorageTrieNodeKey returns the storage key for a node in the storage
// trie owned by the account whose address hash is addrHash.
func StorageTrieNodeKey(addrHash types.Hash, nodeHash types.Hash) []byte {
	key := append([]byte{}, storageTriePrefix...)
	key = append(key, addrHash.Bytes()...)
	return append(key, nodeHash.Bytes()...)
}

// StorageTrieNodePrefix returns the iteration prefix covering every node
// belonging to the storage trie owned by addrHash.
func StorageTrieNodePrefix(addrHash types.Hash) []byte {
	return append(append([]byte{}, storageTriePrefix...), addrHash.Bytes()...)
}

// ChainMetaKey returns the storage key for a named chain-metadata entry
// (snap-sync checkpoints, fork-choice pointers besides the dedicated head
// keys, schema bookkeeping).
func ChainMetaKey(name string) []byte {
	return append(append([]byte{}, chainMetaPrefix...), []byte(name)...)
}

// PendingBlockKey returns the storage key for a block staged but not yet
// canonical (used while a diff layer for it is still live).
func PendingBlockKey(hash types.Hash) []byte {
	return append(append([]byte{}, pendingPrefix...), hash.Bytes()...)
}

// WitnessKey returns the storage key for a block's execution witness blob.
func WitnessKey(hash types.Hash) []byte {
	return append(append([]byte{}, witnessPrefix...), hash.Bytes()...)
}
