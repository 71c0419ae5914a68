package trie

import (
	"bytes"
	"errors"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/types"
)

// ErrProofVerifyFailed is returned when an account or storage proof fails
// to check out against its claimed state root.
var ErrProofVerifyFailed = errors.New("trie: account proof verification failed")

// AccountProof carries a Merkle proof for one account in the state trie,
// matching the shape of the eth_getProof JSON-RPC response (EIP-1186).
type AccountProof struct {
	Address     types.Address
	AccountRLP  []byte // nil if the account does not exist
	Proof       [][]byte
	Account     types.Account
	StorageKeys []StorageProof
}

// StorageProof carries a Merkle proof for a single storage slot.
type StorageProof struct {
	Key   types.Hash
	Value types.Hash
	Proof [][]byte
}

// ProveAccount generates a Merkle proof for address in the state trie,
// keyed by keccak256(address) per the secure-trie convention. A non-existent
// account yields an absence proof with an empty Account (types.NewAccount).
func ProveAccount(stateTrie *Trie, address types.Address) (*AccountProof, error) {
	addrHash := crypto.Keccak256(address.Bytes())
	result := &AccountProof{Address: address}

	proof, err := stateTrie.Prove(addrHash)
	if errors.Is(err, ErrNotFound) {
		proof, err = stateTrie.ProveAbsence(addrHash)
		if err != nil {
			return nil, err
		}
		result.Proof = proof
		result.Account = *types.NewAccount()
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Proof = proof
	accountRLP, err := stateTrie.Get(addrHash)
	if err != nil {
		return nil, err
	}
	result.AccountRLP = accountRLP

	var acc types.Account
	if err := acc.DecodeRLP(accountRLP); err != nil {
		return nil, err
	}
	result.Account = acc
	return result, nil
}

// VerifyAccountProof checks proof against root, returning true if it
// demonstrates the account exists with exactly the claimed fields, false
// (with no error) if it demonstrates provable absence, and an error if the
// proof is malformed or inconsistent.
func VerifyAccountProof(root types.Hash, proof *AccountProof) (bool, error) {
	addrHash := crypto.Keccak256(proof.Address.Bytes())
	val, err := VerifyProof(root, addrHash, proof.Proof)
	if err != nil {
		return false, ErrProofVerifyFailed
	}
	if val == nil {
		if proof.Account.Empty() {
			return false, nil
		}
		return false, ErrProofVerifyFailed
	}
	if proof.AccountRLP != nil && !bytes.Equal(val, proof.AccountRLP) {
		return false, ErrProofVerifyFailed
	}
	var acc types.Account
	if err := acc.DecodeRLP(val); err != nil {
		return false, ErrProofVerifyFailed
	}
	if acc.Nonce != proof.Account.Nonce ||
		acc.Balance.Cmp(proof.Account.Balance) != 0 ||
		acc.StorageRoot != proof.Account.StorageRoot ||
		acc.CodeHash != proof.Account.CodeHash {
		return false, ErrProofVerifyFailed
	}
	return true, nil
}

// ProveStorageSlot generates a Merkle proof for slot key in a contract's
// storage trie, keyed by keccak256(key).
func ProveStorageSlot(storageTrie *Trie, key types.Hash) (*StorageProof, error) {
	slotHash := crypto.Keccak256(key.Bytes())
	result := &StorageProof{Key: key}

	proof, err := storageTrie.Prove(slotHash)
	if errors.Is(err, ErrNotFound) {
		proof, err = storageTrie.ProveAbsence(slotHash)
		if err != nil {
			return nil, err
		}
		result.Proof = proof
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Proof = proof
	val, err := storageTrie.Get(slotHash)
	if err == nil && len(val) > 0 {
		result.Value = types.BytesToHash(val)
	}
	return result, nil
}
