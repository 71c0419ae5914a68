package trie

import "github.com/ethrex/ethrex-state/crypto"

// hasher computes canonical node hashes. Per the Yellow Paper, a node whose
// RLP encoding is shorter than 32 bytes is embedded inline in its parent
// rather than referenced by hash, except at the trie root, which is always
// "forced" to a real hash even if short.
type hasher struct{}

func newHasher() *hasher { return &hasher{} }

// hash returns the collapsed (hash-substituted-for-children) form used for
// encoding, and the cached form retained in the live trie.
func (h *hasher) hash(n node, force bool) (node, node) {
	if hash, dirty := n.cache(); hash != nil && !dirty {
		return hash, n
	}
	collapsed, cached := h.hashChildren(n)
	hashed, err := h.store(collapsed, force)
	if err != nil {
		panic("trie: hasher: " + err.Error())
	}
	if cachedHash, ok := hashed.(hashNode); ok {
		switch cn := cached.(type) {
		case *shortNode:
			cn.flags.hash, cn.flags.dirty = cachedHash, false
		case *fullNode:
			cn.flags.hash, cn.flags.dirty = cachedHash, false
		}
	}
	return hashed, cached
}

func (h *hasher) hashChildren(original node) (node, node) {
	switch n := original.(type) {
	case *shortNode:
		collapsed, cached := n.copy(), n.copy()
		collapsed.Key = hexToCompact(n.Key)
		if _, ok := n.Val.(valueNode); !ok && n.Val != nil {
			childH, childC := h.hash(n.Val, false)
			collapsed.Val, cached.Val = childH, childC
		}
		return collapsed, cached
	case *fullNode:
		collapsed, cached := n.copy(), n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childH, childC := h.hash(n.Children[i], false)
				collapsed.Children[i], cached.Children[i] = childH, childC
			}
		}
		return collapsed, cached
	default:
		return n, n
	}
}

// store RLP-encodes n and, unless it is short enough to stay inline,
// replaces it with its Keccak-256 hash.
func (h *hasher) store(n node, force bool) (node, error) {
	switch n.(type) {
	case hashNode, valueNode:
		return n, nil
	}
	enc, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	if len(enc) < 32 && !force {
		return n, nil
	}
	return hashNode(crypto.Keccak256(enc)), nil
}
