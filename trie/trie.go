package trie

import (
	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/types"
)

// EmptyRoot is the root hash of an empty trie: Keccak256(RLP("")).
var EmptyRoot = crypto.Keccak256Hash([]byte{0x80})

// Trie is a hexary Merkle-Patricia-Trie. A zero-value Trie is a valid,
// empty, purely in-memory trie; to resolve hashNode references against a
// backing store, build one with New and a non-nil Database.
type Trie struct {
	root node
	db   *Database
}

// New creates a trie rooted at root, resolving nodes against db as needed.
// db may be nil for a purely in-memory trie (root must then be EmptyRoot or
// the zero hash). Passing a non-empty root with a nil db always fails with
// a MissingNodeError, since there is nowhere to resolve it from.
func New(root types.Hash, db *Database) (*Trie, error) {
	t := &Trie{db: db}
	if root == EmptyRoot || root.IsZero() {
		return t, nil
	}
	n, err := t.resolveHash(hashNode(root.Bytes()), nil)
	if err != nil {
		return nil, err
	}
	t.root = n
	return t, nil
}

// Get retrieves the value associated with key, resolving hashNode
// references against the trie's database as needed. Returns ErrNotFound
// if the key is definitely absent, or a *MissingNodeError if resolving it
// would require a node the database doesn't have.
func (t *Trie) Get(key []byte) ([]byte, error) {
	value, err := t.get(t.root, keybytesToHex(key), 0, nil)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrNotFound
	}
	return value, nil
}

func (t *Trie) get(n node, key []byte, pos int, path []byte) ([]byte, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case valueNode:
		return []byte(n), nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !keysEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, nil
		}
		return t.get(n.Val, key, pos+len(n.Key), append(path, key[pos:pos+len(n.Key)]...))
	case *fullNode:
		if pos >= len(key) {
			return t.get(n.Children[16], key, pos, path)
		}
		return t.get(n.Children[key[pos]], key, pos+1, append(path, key[pos]))
	case hashNode:
		resolved, err := t.resolveHash(n, path)
		if err != nil {
			return nil, err
		}
		return t.get(resolved, key, pos, path)
	default:
		return nil, nil
	}
}

// resolveHash loads and decodes a node from the trie's database. It
// returns a *MissingNodeError (not a bare "not found") so callers like the
// snap-sync healer can distinguish "need to fetch this node" from any
// other failure.
func (t *Trie) resolveHash(n hashNode, path []byte) (node, error) {
	if t.db == nil {
		return nil, &MissingNodeError{NodeHash: types.BytesToHash(n), Path: path}
	}
	hash := types.BytesToHash(n)
	data, err := t.db.Node(hash)
	if err != nil {
		return nil, &MissingNodeError{NodeHash: hash, Path: path}
	}
	return decodeNode(n, data)
}

// Put inserts or updates key with value. An empty value deletes the key
// instead, matching Ethereum's convention that a zero-length account or
// storage entry does not exist.
func (t *Trie) Put(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	k := keybytesToHex(key)
	n, err := t.insert(t.root, nil, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) insert(n node, prefix, key []byte, value node) (node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			if keysEqual(v, value.(valueNode)) {
				return v, nil
			}
		}
		return value, nil
	}

	switch n := n.(type) {
	case nil:
		return &shortNode{Key: key, Val: value, flags: nodeFlag{dirty: true}}, nil

	case *shortNode:
		matchLen := prefixLen(key, n.Key)
		if matchLen == len(n.Key) {
			nn, err := t.insert(n.Val, concat(prefix, key[:matchLen]), key[matchLen:], value)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: n.Key, Val: nn, flags: nodeFlag{dirty: true}}, nil
		}
		branch := &fullNode{flags: nodeFlag{dirty: true}}
		existingChild, err := t.insert(nil, concat(prefix, n.Key[:matchLen+1]), n.Key[matchLen+1:], n.Val)
		if err != nil {
			return nil, err
		}
		branch.Children[n.Key[matchLen]] = existingChild
		newChild, err := t.insert(nil, concat(prefix, key[:matchLen+1]), key[matchLen+1:], value)
		if err != nil {
			return nil, err
		}
		branch.Children[key[matchLen]] = newChild
		if matchLen > 0 {
			return &shortNode{Key: key[:matchLen], Val: branch, flags: nodeFlag{dirty: true}}, nil
		}
		return branch, nil

	case *fullNode:
		nn := n.copy()
		nn.flags = nodeFlag{dirty: true}
		child, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if err != nil {
			return nil, err
		}
		nn.Children[key[0]] = child
		return nn, nil

	case hashNode:
		resolved, err := t.resolveHash(n, prefix)
		if err != nil {
			return nil, err
		}
		return t.insert(resolved, prefix, key, value)

	default:
		return nil, ErrInvalidProof
	}
}

// Delete removes key from the trie. Deleting an absent key is a no-op.
func (t *Trie) Delete(key []byte) error {
	k := keybytesToHex(key)
	n, err := t.delete(t.root, nil, k)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) delete(n node, prefix, key []byte) (node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil

	case *shortNode:
		matchLen := prefixLen(key, n.Key)
		if matchLen < len(n.Key) {
			return n, nil
		}
		if matchLen == len(key) {
			return nil, nil
		}
		child, err := t.delete(n.Val, concat(prefix, key[:len(n.Key)]), key[len(n.Key):])
		if err != nil {
			return nil, err
		}
		switch child := child.(type) {
		case nil:
			return nil, nil
		case *shortNode:
			return &shortNode{Key: concat(n.Key, child.Key), Val: child.Val, flags: nodeFlag{dirty: true}}, nil
		default:
			return &shortNode{Key: n.Key, Val: child, flags: nodeFlag{dirty: true}}, nil
		}

	case *fullNode:
		nn := n.copy()
		nn.flags = nodeFlag{dirty: true}
		child, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if err != nil {
			return nil, err
		}
		nn.Children[key[0]] = child

		remaining := -1
		for i := 0; i < 17; i++ {
			if nn.Children[i] != nil {
				if remaining >= 0 {
					return nn, nil
				}
				remaining = i
			}
		}
		if remaining < 0 {
			return nil, nil
		}
		if remaining == 16 {
			return &shortNode{Key: []byte{terminatorByte}, Val: nn.Children[16], flags: nodeFlag{dirty: true}}, nil
		}
		child = nn.Children[remaining]
		if hn, ok := child.(hashNode); ok {
			resolved, err := t.resolveHash(hn, append(prefix, byte(remaining)))
			if err != nil {
				return nil, err
			}
			child = resolved
		}
		if cnode, ok := child.(*shortNode); ok {
			return &shortNode{Key: concat([]byte{byte(remaining)}, cnode.Key), Val: cnode.Val, flags: nodeFlag{dirty: true}}, nil
		}
		return &shortNode{Key: []byte{byte(remaining)}, Val: child, flags: nodeFlag{dirty: true}}, nil

	case valueNode:
		if len(key) == 0 {
			return nil, nil
		}
		return n, nil

	case hashNode:
		resolved, err := t.resolveHash(n, prefix)
		if err != nil {
			return nil, err
		}
		return t.delete(resolved, prefix, key)

	default:
		return nil, ErrInvalidProof
	}
}

// Hash computes the trie's root hash, forcing the root to a real hash even
// if its RLP encoding is short enough to otherwise stay inline.
func (t *Trie) Hash() types.Hash {
	if t.root == nil {
		return EmptyRoot
	}
	h := newHasher()
	hashed, cached := h.hash(t.root, true)
	t.root = cached
	switch n := hashed.(type) {
	case hashNode:
		return types.BytesToHash(n)
	default:
		enc, _ := encodeNode(hashed)
		return crypto.Keccak256Hash(enc)
	}
}

// Commit writes every dirty node reachable from the root into the trie's
// database (which must be non-nil) and returns the new root hash.
func (t *Trie) Commit() (types.Hash, error) {
	if t.db == nil {
		return types.Hash{}, ErrInvalidProof
	}
	if t.root == nil {
		return EmptyRoot, nil
	}
	h := newHasher()
	root, cached := commitNode(h, t.root, t.db)
	t.root = cached
	switch n := root.(type) {
	case hashNode:
		return types.BytesToHash(n), nil
	default:
		enc, err := encodeNode(root)
		if err != nil {
			return types.Hash{}, err
		}
		hash := crypto.Keccak256Hash(enc)
		t.db.InsertNode(hash, enc)
		return hash, nil
	}
}

// Len returns the number of key-value pairs reachable without resolving
// any hashNode; it is intended for tests and small in-memory tries, not
// for a trie backed by an on-disk database.
func (t *Trie) Len() int { return countValues(t.root) }

// Empty reports whether the trie has no entries.
func (t *Trie) Empty() bool { return t.root == nil }

func countValues(n node) int {
	switch n := n.(type) {
	case nil:
		return 0
	case valueNode:
		return 1
	case *shortNode:
		return countValues(n.Val)
	case *fullNode:
		count := 0
		for i := 0; i < 17; i++ {
			count += countValues(n.Children[i])
		}
		return count
	default:
		return 0
	}
}

func keysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func concat(a, b []byte) []byte {
	r := make([]byte, len(a)+len(b))
	copy(r, a)
	copy(r[len(a):], b)
	return r
}
