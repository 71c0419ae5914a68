// Package crypto provides the hash primitive used throughout the state
// store. Ethereum consensus uses the original Keccak-256 padding, not the
// later NIST SHA3-256 standard, so golang.org/x/crypto/sha3's "legacy"
// constructor is the correct one here.
package crypto

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/ethrex/ethrex-state/types"
)

var hasherPool = sync.Pool{
	New: func() interface{} { return sha3.NewLegacyKeccak256() },
}

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := hasherPool.Get().(hash.Hash)
	defer func() {
		d.Reset()
		hasherPool.Put(d)
	}()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash returns the Keccak-256 digest of data as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
