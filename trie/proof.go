package trie

import (
	"bytes"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/rlp"
	"github.com/ethrex/ethrex-state/types"
)

// Prove returns the RLP-encoded nodes along the path from the root to key,
// suitable for VerifyProof. The trie is hashed first so every node along
// the path carries a settled hash.
func (t *Trie) Prove(key []byte) ([][]byte, error) {
	if t.root == nil {
		return nil, ErrNotFound
	}
	t.Hash()

	hexKey := keybytesToHex(key)
	var proof [][]byte
	found, err := t.prove(t.root, hexKey, 0, &proof)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return proof, nil
}

func (t *Trie) prove(n node, key []byte, pos int, proof *[][]byte) (bool, error) {
	switch n := n.(type) {
	case nil:
		return false, nil

	case *shortNode:
		collapsed := n.copy()
		collapsed.Key = hexToCompact(n.Key)
		collapsed.Val = collapseForProof(n.Val)
		enc, err := encodeShortNode(collapsed)
		if err != nil {
			return false, err
		}
		*proof = append(*proof, enc)

		if len(key)-pos < len(n.Key) || !keysEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return false, nil
		}
		return t.prove(n.Val, key, pos+len(n.Key), proof)

	case *fullNode:
		collapsed := collapseFullNodeForProof(n)
		enc, err := encodeFullNode(collapsed)
		if err != nil {
			return false, err
		}
		*proof = append(*proof, enc)

		if pos >= len(key) {
			return n.Children[16] != nil, nil
		}
		return t.prove(n.Children[key[pos]], key, pos+1, proof)

	case valueNode:
		return true, nil

	case hashNode:
		resolved, err := t.resolveHash(n, nil)
		if err != nil {
			return false, err
		}
		return t.prove(resolved, key, pos, proof)

	default:
		return false, nil
	}
}

// ProveAbsence returns proof nodes along the path until the lookup
// diverges, demonstrating the key cannot be present. An empty trie yields
// a nil proof, valid by definition.
func (t *Trie) ProveAbsence(key []byte) ([][]byte, error) {
	if t.root == nil {
		return nil, nil
	}
	t.Hash()

	hexKey := keybytesToHex(key)
	var proof [][]byte
	err := t.proveAbsence(t.root, hexKey, 0, &proof)
	return proof, err
}

func (t *Trie) proveAbsence(n node, key []byte, pos int, proof *[][]byte) error {
	switch n := n.(type) {
	case nil:
		return nil

	case *shortNode:
		collapsed := n.copy()
		collapsed.Key = hexToCompact(n.Key)
		collapsed.Val = collapseForProof(n.Val)
		enc, err := encodeShortNode(collapsed)
		if err != nil {
			return err
		}
		*proof = append(*proof, enc)

		if len(key)-pos < len(n.Key) || !keysEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return nil
		}
		return t.proveAbsence(n.Val, key, pos+len(n.Key), proof)

	case *fullNode:
		collapsed := collapseFullNodeForProof(n)
		enc, err := encodeFullNode(collapsed)
		if err != nil {
			return err
		}
		*proof = append(*proof, enc)

		if pos >= len(key) {
			return nil
		}
		child := n.Children[key[pos]]
		if child == nil {
			return nil
		}
		return t.proveAbsence(child, key, pos+1, proof)

	case valueNode:
		return nil

	case hashNode:
		resolved, err := t.resolveHash(n, nil)
		if err != nil {
			return err
		}
		return t.proveAbsence(resolved, key, pos, proof)

	default:
		return nil
	}
}

func collapseForProof(n node) node {
	switch n := n.(type) {
	case *shortNode:
		collapsed := n.copy()
		collapsed.Key = hexToCompact(n.Key)
		collapsed.Val = collapseForProof(n.Val)
		enc, err := encodeShortNode(collapsed)
		if err != nil {
			return n
		}
		if len(enc) >= 32 {
			return hashNode(crypto.Keccak256(enc))
		}
		return collapsed
	case *fullNode:
		collapsed := collapseFullNodeForProof(n)
		enc, err := encodeFullNode(collapsed)
		if err != nil {
			return n
		}
		if len(enc) >= 32 {
			return hashNode(crypto.Keccak256(enc))
		}
		return collapsed
	default:
		return n
	}
}

func collapseFullNodeForProof(n *fullNode) *fullNode {
	collapsed := n.copy()
	for i := 0; i < 16; i++ {
		if n.Children[i] != nil {
			collapsed.Children[i] = collapseForProof(n.Children[i])
		}
	}
	return collapsed
}

// VerifyProof checks that proof (a list of RLP-encoded nodes from root to
// leaf) demonstrates key's membership or absence under rootHash. It
// returns (value, nil) for a membership proof, (nil, nil) for a valid
// absence proof, and ErrInvalidProof otherwise.
func VerifyProof(rootHash types.Hash, key []byte, proof [][]byte) ([]byte, error) {
	if len(proof) == 0 {
		if rootHash == EmptyRoot {
			return nil, nil
		}
		return nil, ErrInvalidProof
	}

	hexKey := keybytesToHex(key)
	wantHash := rootHash.Bytes()
	var wantInline []byte

	pos := 0
	for i, encoded := range proof {
		if wantInline != nil {
			if !bytes.Equal(encoded, wantInline) {
				return nil, ErrInvalidProof
			}
			wantInline = nil
		} else {
			if !bytes.Equal(crypto.Keccak256(encoded), wantHash) {
				return nil, ErrInvalidProof
			}
		}

		items, err := rlp.SplitList(encoded)
		if err != nil {
			return nil, ErrInvalidProof
		}

		switch len(items) {
		case 2:
			compactKey, err := rlp.DecodeString(items[0])
			if err != nil {
				return nil, ErrInvalidProof
			}
			hexNibbles := compactToHex(compactKey)

			matchLen := 0
			for matchLen < len(hexNibbles) && pos+matchLen < len(hexKey) {
				if hexNibbles[matchLen] != hexKey[pos+matchLen] {
					break
				}
				matchLen++
			}
			if matchLen < len(hexNibbles) {
				if i == len(proof)-1 {
					return nil, nil
				}
				return nil, ErrInvalidProof
			}
			pos += len(hexNibbles)

			if hasTerm(hexNibbles) {
				if i == len(proof)-1 {
					return rlp.DecodeString(items[1])
				}
				return nil, ErrInvalidProof
			}
			if i == len(proof)-1 {
				return nil, ErrInvalidProof
			}
			childRef := items[1]
			if rlp.IsList(childRef) {
				wantInline, wantHash = childRef, nil
			} else {
				b, err := rlp.DecodeString(childRef)
				if err != nil {
					return nil, ErrInvalidProof
				}
				if len(b) != 32 {
					return nil, ErrInvalidProof
				}
				wantHash, wantInline = b, nil
			}

		case 17:
			if pos >= len(hexKey) {
				return nil, ErrInvalidProof
			}
			nibble := hexKey[pos]
			pos++

			if nibble == terminatorByte {
				val, err := rlp.DecodeString(items[16])
				if err != nil {
					return nil, ErrInvalidProof
				}
				if len(val) == 0 {
					return nil, nil
				}
				return val, nil
			}

			childRef := items[nibble]
			if !rlp.IsList(childRef) {
				b, err := rlp.DecodeString(childRef)
				if err != nil {
					return nil, ErrInvalidProof
				}
				if len(b) == 0 {
					if i == len(proof)-1 {
						return nil, nil
					}
					return nil, ErrInvalidProof
				}
				if i == len(proof)-1 {
					return nil, ErrInvalidProof
				}
				if len(b) != 32 {
					return nil, ErrInvalidProof
				}
				wantHash, wantInline = b, nil
				continue
			}
			if i == len(proof)-1 {
				return nil, ErrInvalidProof
			}
			wantInline, wantHash = childRef, nil

		default:
			return nil, ErrInvalidProof
		}
	}

	return nil, ErrInvalidProof
}
