package statelayer

import (
	"github.com/ethrex/ethrex-state/rlp"
	"github.com/ethrex/ethrex-state/types"
)

// EncodeStorageValue trims v's leading zero bytes and RLP-encodes the
// remainder, the same minimal-string convention account balances use. It
// is exported so the store package's genesis writer can build the same
// storage-trie leaf encoding without duplicating the convention.
func EncodeStorageValue(v types.Hash) ([]byte, error) {
	b := v.Bytes()
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return rlp.EncodeToBytes(b[i:])
}

// DecodeStorageValue is the inverse of EncodeStorageValue. An empty
// decoded string means the slot is absent.
func DecodeStorageValue(enc []byte) (types.Hash, bool, error) {
	var b []byte
	if err := rlp.DecodeBytes(enc, &b); err != nil {
		return types.Hash{}, false, err
	}
	if len(b) == 0 {
		return types.Hash{}, false, nil
	}
	return types.BytesToHash(b), true, nil
}
