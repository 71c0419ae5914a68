package trie

import "github.com/ethrex/ethrex-state/types"

// MissingNodeGap describes one node the trie references but the node
// database cannot resolve, found by WalkMissing.
type MissingNodeGap struct {
	NodeHash types.Hash
	Path     []byte
}

// WalkMissing walks the trie rooted at root breadth-first, resolving every
// hashNode reference it finds against db, and returns up to limit gaps in
// shallowest-first order. Breadth-first order is what makes this useful
// for healing: fetching a shallow gap's node may reveal its children are
// gaps too, but those children are always reported on a later call once
// the shallow node has been healed, never before.
//
// A limit of 0 means no limit.
func WalkMissing(root types.Hash, db *Database, limit int) ([]MissingNodeGap, error) {
	t, err := New(root, db)
	if err != nil {
		if mnErr, ok := err.(*MissingNodeError); ok {
			return []MissingNodeGap{{NodeHash: mnErr.NodeHash, Path: mnErr.Path}}, nil
		}
		return nil, err
	}

	type frontierNode struct {
		n    node
		path []byte
	}
	queue := []frontierNode{{n: t.root, path: nil}}
	var gaps []MissingNodeGap

	for len(queue) > 0 {
		if limit > 0 && len(gaps) >= limit {
			break
		}
		cur := queue[0]
		queue = queue[1:]

		switch n := cur.n.(type) {
		case nil, valueNode:
			// Nothing to resolve.
		case hashNode:
			hash := types.BytesToHash(n)
			data, err := db.Node(hash)
			if err != nil {
				gaps = append(gaps, MissingNodeGap{NodeHash: hash, Path: cur.path})
				continue
			}
			resolved, err := decodeNode(n, data)
			if err != nil {
				return nil, err
			}
			queue = append(queue, frontierNode{n: resolved, path: cur.path})
		case *shortNode:
			queue = append(queue, frontierNode{n: n.Val, path: concat(cur.path, n.Key)})
		case *fullNode:
			for i, child := range n.Children {
				if child == nil {
					continue
				}
				childPath := cur.path
				if i < 16 {
					childPath = concat(cur.path, []byte{byte(i)})
				}
				queue = append(queue, frontierNode{n: child, path: childPath})
			}
		}
	}

	return gaps, nil
}
