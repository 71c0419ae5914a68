package statelayer

import "encoding/binary"

// bloomHasher adapts a byte slice to the hash.Hash64 interface that
// holiman/bloomfilter/v2 expects, reading the leading 8 bytes as the
// digest. Every value passed through it is already Keccak-256 output (or
// derived from one), so it needs no further mixing.
type bloomHasher []byte

func (h bloomHasher) Write(p []byte) (int, error) { panic("bloomHasher: Write not supported") }
func (h bloomHasher) Sum(b []byte) []byte         { panic("bloomHasher: Sum not supported") }
func (h bloomHasher) Reset()                      {}
func (h bloomHasher) BlockSize() int              { return 1 }
func (h bloomHasher) Size() int                   { return 8 }
func (h bloomHasher) Sum64() uint64               { return binary.BigEndian.Uint64(h[:8]) }
