package snapsync

import "github.com/ethrex/ethrex-state/types"

// AccountRangeRequest asks a peer for account trie leaves in
// [Origin, Limit] (both inclusive) against Root.
type AccountRangeRequest struct {
	ID       uint64
	Root     types.Hash
	Origin   types.Hash
	Limit    types.Hash
	MaxBytes uint64
}

// AccountRangeResponse is the response to an AccountRangeRequest. Keys are
// account address hashes in ascending order; Values are the matching
// RLP-encoded types.Account leaves. FirstProof/LastProof are Merkle proofs
// for Keys[0] and Keys[len(Keys)-1] against Root, letting the caller run
// trie.VerifyRangeProof without trusting the peer.
type AccountRangeResponse struct {
	ID         uint64
	Keys       []types.Hash
	Values     [][]byte
	FirstProof [][]byte
	LastProof  [][]byte
}

// StorageRangeRequest asks a peer for storage trie leaves of Account in
// [Origin, Limit] against the account's storage root under state Root.
type StorageRangeRequest struct {
	ID       uint64
	Root     types.Hash
	Account  types.Hash
	Origin   types.Hash
	Limit    types.Hash
	MaxBytes uint64
}

// StorageRangeResponse is the response to a StorageRangeRequest.
type StorageRangeResponse struct {
	ID         uint64
	Keys       []types.Hash
	Values     [][]byte
	FirstProof [][]byte
	LastProof  [][]byte
}

// BytecodeRequest asks a peer for contract bytecode by code hash.
type BytecodeRequest struct {
	ID     uint64
	Hashes []types.Hash
}

// BytecodeResponse is the response to a BytecodeRequest. Codes are
// returned in the same order as the request's Hashes; a missing entry is
// represented by a nil slice at that index.
type BytecodeResponse struct {
	ID    uint64
	Codes [][]byte
}

// TrieNodeRequest asks a peer for specific trie nodes by path, used during
// healing. Account, when non-zero, scopes the request to that account's
// storage trie instead of the account trie.
type TrieNodeRequest struct {
	ID      uint64
	Root    types.Hash
	Account types.Hash
	Paths   [][]byte
}

// TrieNodeResponse is the response to a TrieNodeRequest, in the same order
// as the request's Paths; a missing entry is nil.
type TrieNodeResponse struct {
	ID    uint64
	Nodes [][]byte
}

// Peer is a remote node capable of serving the snap sync protocol. A real
// implementation wraps a devp2p or libp2p connection; tests use a fake
// backed by an in-memory store.
type Peer interface {
	ID() string
	RequestAccountRange(req AccountRangeRequest) (*AccountRangeResponse, error)
	RequestStorageRange(req StorageRangeRequest) (*StorageRangeResponse, error)
	RequestBytecodes(req BytecodeRequest) (*BytecodeResponse, error)
	RequestTrieNodes(req TrieNodeRequest) (*TrieNodeResponse, error)
}
