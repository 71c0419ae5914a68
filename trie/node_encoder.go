package trie

import (
	"github.com/ethrex/ethrex-state/rlp"
)

// encodeNode RLP-encodes a trie node for hashing or storage: a shortNode is
// a 2-element list [compactKey, val], a fullNode is a 17-element list
// [child0..child15, value].
func encodeNode(n node) ([]byte, error) {
	switch n := n.(type) {
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	case hashNode:
		return []byte(n), nil
	case valueNode:
		return rlp.EncodeToBytes([]byte(n))
	default:
		return []byte{0x80}, nil
	}
}

// encodeShortNode encodes a shortNode whose Key is already compact-encoded.
func encodeShortNode(n *shortNode) ([]byte, error) {
	keyEnc, err := rlp.EncodeToBytes(n.Key)
	if err != nil {
		return nil, err
	}
	valEnc, err := encodeNodeRef(n.Val)
	if err != nil {
		return nil, err
	}
	return rlp.WrapList(append(keyEnc, valEnc...)), nil
}

func encodeFullNode(n *fullNode) ([]byte, error) {
	var payload []byte
	for i := 0; i < 17; i++ {
		enc, err := encodeNodeRef(n.Children[i])
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return rlp.WrapList(payload), nil
}

// encodeNodeRef encodes a child reference for inclusion in a parent's RLP:
// nil -> empty string, valueNode/hashNode -> RLP string, shortNode/fullNode
// -> inline RLP (the embedded-child case, always <32 bytes by construction
// since hashChildren only leaves non-hash children inline under that bound).
func encodeNodeRef(n node) ([]byte, error) {
	if n == nil {
		return []byte{0x80}, nil
	}
	switch n := n.(type) {
	case valueNode:
		return rlp.EncodeToBytes([]byte(n))
	case hashNode:
		return rlp.EncodeToBytes([]byte(n))
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	default:
		return []byte{0x80}, nil
	}
}
