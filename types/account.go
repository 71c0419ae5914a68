package types

import "github.com/holiman/uint256"

// Account is the state-trie leaf value: (nonce, balance, storage_root,
// code_hash). Balance uses uint256 rather than math/big so that account
// arithmetic matches the EVM's native 256-bit word size without the
// allocation overhead of big.Int.
type Account struct {
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot Hash
	CodeHash    Hash
}

// EmptyRootHash is the root hash of an empty MPT: Keccak256(RLP("")).
var EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// EmptyCodeHash is Keccak256 of the empty byte string, the code_hash of an
// externally-owned account.
var EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// NewAccount returns a freshly created, empty account.
func NewAccount() *Account {
	return &Account{
		Balance:     uint256.NewInt(0),
		StorageRoot: EmptyRootHash,
		CodeHash:    EmptyCodeHash,
	}
}

// Empty reports whether the account satisfies EIP-161 emptiness: zero
// nonce, zero balance, and no associated code.
func (a *Account) Empty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && a.CodeHash == EmptyCodeHash
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cp := *a
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	}
	return &cp
}
