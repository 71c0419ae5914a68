package trie

import (
	"github.com/ethrex/ethrex-state/rlp"
)

// decodeNode parses the canonical RLP encoding of a trie node. hash, if
// non-nil, is cached on the resulting node (it is the node's own hash, as
// already known by the caller — it is never recomputed here). buf must be
// exactly the node's encoding, with no trailing bytes.
func decodeNode(hash, buf []byte) (node, error) {
	items, err := rlp.SplitList(buf)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 2:
		return decodeShort(hash, items[0], items[1])
	case 17:
		return decodeFull(hash, items)
	default:
		return nil, newDecodeRefError("invalid node list length")
	}
}

func decodeShort(hash, keyEnc, valEnc []byte) (node, error) {
	kbuf, err := rlp.DecodeString(keyEnc)
	if err != nil {
		return nil, err
	}
	key := compactToHex(kbuf)
	if hasTerm(key) {
		val, err := rlp.DecodeString(valEnc)
		if err != nil {
			return nil, err
		}
		return &shortNode{Key: key, Val: valueNode(val), flags: nodeFlag{hash: hash}}, nil
	}
	val, err := decodeRef(valEnc)
	if err != nil {
		return nil, err
	}
	return &shortNode{Key: key, Val: val, flags: nodeFlag{hash: hash}}, nil
}

func decodeFull(hash []byte, items [][]byte) (*fullNode, error) {
	n := &fullNode{flags: nodeFlag{hash: hash}}
	for i := 0; i < 16; i++ {
		child, err := decodeRef(items[i])
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	val, err := rlp.DecodeString(items[16])
	if err != nil {
		return nil, err
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	return n, nil
}

// decodeRef decodes a single child reference: an empty string is no child,
// a 32-byte string is a hashNode resolved lazily by the database layer, a
// list is an inline-embedded node decoded recursively (the canonical
// "short subtrees are embedded rather than hashed" rule), anything else is
// malformed.
func decodeRef(enc []byte) (node, error) {
	if rlp.IsList(enc) {
		if len(enc) > 32 {
			return nil, newDecodeRefError("embedded node too large")
		}
		return decodeNode(nil, enc)
	}
	b, err := rlp.DecodeString(enc)
	if err != nil {
		return nil, err
	}
	switch len(b) {
	case 0:
		return nil, nil
	case 32:
		return hashNode(b), nil
	default:
		return nil, newDecodeRefError("invalid reference length")
	}
}
