package trie

import (
	"bytes"
	"errors"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/types"
)

// Range-proof errors, returned by VerifyRangeProof.
var (
	ErrRangeUnsorted   = errors.New("trie: range proof keys not sorted or duplicated")
	ErrRangeKeyValue   = errors.New("trie: range proof keys/values length mismatch")
	ErrRangeEmptyRange = errors.New("trie: range proof covers no keys but proofs were supplied")
)

// memNodeSet is an in-memory NodeReader over a fixed set of proof node
// blobs, keyed by their own hash. It backs the ephemeral trie reconstructed
// by VerifyRangeProof.
type memNodeSet map[types.Hash][]byte

func (m memNodeSet) Node(hash types.Hash) ([]byte, error) {
	if data, ok := m[hash]; ok {
		return data, nil
	}
	return nil, ErrNotFound
}

func newProofNodeSet(proofs ...[][]byte) memNodeSet {
	set := make(memNodeSet)
	for _, proof := range proofs {
		for _, enc := range proof {
			set[crypto.Keccak256Hash(enc)] = enc
		}
	}
	return set
}

// VerifyRangeProof checks that keys/values is the complete, contiguous set
// of trie entries between the first and last key (inclusive), given Merkle
// proofs for those two boundary keys against rootHash. It reconstructs the
// minimal trie implied by the two edge proofs, inserts every supplied
// key/value as a leaf, and accepts the range only if the recomputed root
// matches rootHash exactly — any omitted, reordered, or tampered entry
// changes the root and is rejected.
//
// It returns hasMore=true if the last key's boundary proof shows further
// entries exist beyond the supplied range (so the caller should continue
// paging from keys[len(keys)-1]).
func VerifyRangeProof(rootHash types.Hash, keys, values [][]byte, firstProof, lastProof [][]byte) (hasMore bool, err error) {
	if len(keys) != len(values) {
		return false, ErrRangeKeyValue
	}
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			return false, ErrRangeUnsorted
		}
	}

	// No boundary proofs: the caller is asserting these keys are the
	// *entire* trie. Build it from scratch and compare roots directly.
	if len(firstProof) == 0 && len(lastProof) == 0 {
		if len(keys) == 0 {
			if rootHash == EmptyRoot {
				return false, nil
			}
			return false, ErrInvalidProof
		}
		t, _ := New(types.Hash{}, nil)
		for i := range keys {
			if err := t.Put(keys[i], values[i]); err != nil {
				return false, err
			}
		}
		if t.Hash() != rootHash {
			return false, ErrInvalidProof
		}
		return false, nil
	}
	if len(keys) == 0 {
		return false, ErrRangeEmptyRange
	}

	if _, err := VerifyProof(rootHash, keys[0], firstProof); err != nil {
		return false, err
	}
	if _, err := VerifyProof(rootHash, keys[len(keys)-1], lastProof); err != nil {
		return false, err
	}

	nodes := newProofNodeSet(firstProof, lastProof)
	db := NewDatabase(nodes)
	t, err := New(rootHash, db)
	if err != nil {
		return false, err
	}

	// Inserting the two boundary keys first resolves, from the proof set,
	// every node on their paths, so the walk below meets real nodes rather
	// than bare hashNodes wherever the boundaries run.
	for _, i := range []int{0, len(keys) - 1} {
		if err := t.Put(keys[i], values[i]); err != nil {
			return false, err
		}
	}

	// The two boundary proofs only resolve the nodes on their own paths;
	// everything else under the root is still a bare hashNode. Any key
	// strictly between keys[0] and keys[len(keys)-1] is about to be
	// overwritten wholesale by the Put loop below, so unset every interior
	// reference first (geth's range-proof trick): that turns the
	// about-to-be-replaced subtrees into nil, letting insert build fresh
	// leaves from the supplied key/value stream instead of trying (and
	// failing) to resolve a hashNode the proofs never supplied.
	left, right := keybytesToHex(keys[0]), keybytesToHex(keys[len(keys)-1])
	wholeTrieInRange, err := unsetInternal(t.root, left, right)
	if err != nil {
		return false, err
	}
	if wholeTrieInRange {
		t.root = nil
	}

	for i := range keys {
		if err := t.Put(keys[i], values[i]); err != nil {
			return false, err
		}
	}
	if t.Hash() != rootHash {
		return false, ErrInvalidProof
	}

	hasMore, err = hasSuccessor(t.root, keybytesToHex(keys[len(keys)-1]), 0)
	if err != nil {
		// A hashNode beyond our reconstructed region that we can't resolve
		// is itself evidence of further entries.
		if IsMissingNodeError(err) {
			return true, nil
		}
		return false, err
	}
	return hasMore, nil
}

// hasSuccessor reports whether the trie rooted at n has any key strictly
// greater than key, by walking the path to key and checking whether any
// branch along the way has a child at a higher nibble.
func hasSuccessor(n node, key []byte, pos int) (bool, error) {
	switch n := n.(type) {
	case nil:
		return false, nil
	case valueNode:
		return false, nil
	case hashNode:
		return false, &MissingNodeError{NodeHash: types.BytesToHash(n), Path: key[:pos]}
	case *shortNode:
		matchLen := prefixLen(key[pos:], n.Key)
		if matchLen < len(n.Key) {
			if matchLen < len(key)-pos && pos+matchLen < len(key) {
				return key[pos+matchLen] < n.Key[matchLen], nil
			}
			return false, nil
		}
		return hasSuccessor(n.Val, key, pos+len(n.Key))
	case *fullNode:
		if pos >= len(key) {
			for i := 0; i < 16; i++ {
				if n.Children[i] != nil {
					return true, nil
				}
			}
			return false, nil
		}
		for i := int(key[pos]) + 1; i < 16; i++ {
			if n.Children[i] != nil {
				return true, nil
			}
		}
		return hasSuccessor(n.Children[key[pos]], key, pos+1)
	default:
		return false, nil
	}
}

// unsetInternal walks the proof-reconstructed trie rooted at n along the
// left and right boundary key paths simultaneously. Wherever the two paths
// still agree it descends further; at the fullNode or shortNode where they
// diverge, it clears every reference strictly between them (those keys lie
// entirely inside [left, right] and are about to be replaced) and continues
// one-sided along each boundary with unset. It reports whether the entire
// trie turned out to lie inside [left, right], in which case the caller
// should discard the root outright rather than leave it partially cleared.
func unsetInternal(root node, left, right []byte) (wholeTrieInRange bool, err error) {
	if bytes.Equal(left, right) {
		// A single-key range: the shared path runs all the way to the
		// leaf, so there is no interior gap to clear.
		return false, nil
	}

	var (
		n              = root
		parentChildren *[17]node
		parentIndex    byte
		pos            int
	)
	for {
		switch cur := n.(type) {
		case *shortNode:
			var forkLeft, forkRight int
			if len(left)-pos < len(cur.Key) {
				forkLeft = bytes.Compare(left[pos:], cur.Key)
			} else {
				forkLeft = bytes.Compare(left[pos:pos+len(cur.Key)], cur.Key)
			}
			if len(right)-pos < len(cur.Key) {
				forkRight = bytes.Compare(right[pos:], cur.Key)
			} else {
				forkRight = bytes.Compare(right[pos:pos+len(cur.Key)], cur.Key)
			}
			if forkLeft != 0 || forkRight != 0 {
				return unsetAtShortFork(cur, left, right, pos, parentChildren, parentIndex, forkLeft, forkRight)
			}
			cur.flags = nodeFlag{dirty: true}
			n, pos = cur.Val, pos+len(cur.Key)

		case *fullNode:
			if left[pos] != right[pos] {
				for i := left[pos] + 1; i < right[pos]; i++ {
					cur.Children[i] = nil
				}
				cur.flags = nodeFlag{dirty: true}
				if err := unset(cur.Children[left[pos]], left, pos+1, true, &cur.Children, left[pos]); err != nil {
					return false, err
				}
				if err := unset(cur.Children[right[pos]], right, pos+1, false, &cur.Children, right[pos]); err != nil {
					return false, err
				}
				return false, nil
			}
			parentChildren, parentIndex = &cur.Children, left[pos]
			cur.flags = nodeFlag{dirty: true}
			n, pos = cur.Children[left[pos]], pos+1

		default:
			// The shared path ran all the way to a leaf, a nil slot, or
			// an unresolved hashNode: nothing interior to unset.
			return false, nil
		}
	}
}

// unsetAtShortFork handles the case where the left and right boundary paths
// diverge inside a shortNode's own key rather than at a branch. forkLeft
// and forkRight are the three-way comparisons of the remaining left/right
// key suffix against cur.Key.
func unsetAtShortFork(cur *shortNode, left, right []byte, pos int, parentChildren *[17]node, parentIndex byte, forkLeft, forkRight int) (bool, error) {
	if (forkLeft < 0 && forkRight < 0) || (forkLeft > 0 && forkRight > 0) {
		// Both boundary keys fall on the same side of this node's key:
		// the proofs don't actually bracket a valid range here.
		return false, ErrInvalidProof
	}
	if forkLeft != 0 && forkRight != 0 {
		// This node's key falls strictly between left and right: its
		// whole subtree is about to be replaced.
		if parentChildren == nil {
			return true, nil
		}
		parentChildren[parentIndex] = nil
		return false, nil
	}

	// Exactly one of the two boundary keys continues through cur; clear
	// everything on the far side of it within cur's subtree.
	removeLeft := forkRight != 0
	if _, ok := cur.Val.(valueNode); ok {
		if parentChildren == nil {
			return true, nil
		}
		parentChildren[parentIndex] = nil
		return false, nil
	}
	cur.flags = nodeFlag{dirty: true}
	if removeLeft {
		return false, unset(cur.Val, left, pos+len(cur.Key), true, parentChildren, parentIndex)
	}
	return false, unset(cur.Val, right, pos+len(cur.Key), false, parentChildren, parentIndex)
}

// unset clears every subtree reference on the "inside" of a single boundary
// key as it walks from a one-sided fork down to that key's own leaf.
// removeLeft true follows the left boundary: children indexed below the
// current nibble are < left and stay outside the range, so they are kept;
// children indexed above it are > left and, since we're past the fork,
// necessarily < right too, so they are cleared. removeLeft false is the
// mirror image along the right boundary. parentChildren/parentIndex
// identify the slot in the nearest fullNode ancestor that points at n, used
// if n's entire remaining subtree turns out to lie inside the range.
func unset(n node, key []byte, pos int, removeLeft bool, parentChildren *[17]node, parentIndex byte) error {
	switch cur := n.(type) {
	case *fullNode:
		if removeLeft {
			for i := int(key[pos]) + 1; i < 16; i++ {
				cur.Children[i] = nil
			}
		} else {
			for i := 0; i < int(key[pos]); i++ {
				cur.Children[i] = nil
			}
		}
		cur.flags = nodeFlag{dirty: true}
		return unset(cur.Children[key[pos]], key, pos+1, removeLeft, &cur.Children, key[pos])

	case *shortNode:
		match := prefixLen(key[pos:], cur.Key)
		if match < len(cur.Key) {
			var inside bool
			if removeLeft {
				inside = bytes.Compare(cur.Key, key[pos:]) > 0
			} else {
				inside = bytes.Compare(cur.Key, key[pos:]) < 0
			}
			if inside && parentChildren != nil {
				parentChildren[parentIndex] = nil
			}
			return nil
		}
		if _, ok := cur.Val.(valueNode); ok {
			if parentChildren != nil {
				parentChildren[parentIndex] = nil
			}
			return nil
		}
		cur.flags = nodeFlag{dirty: true}
		return unset(cur.Val, key, pos+len(cur.Key), removeLeft, parentChildren, parentIndex)

	case nil, hashNode:
		return nil

	default:
		return nil
	}
}
