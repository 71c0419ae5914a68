package snapsync

import (
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// AccountIngester verifies and persists downloaded account range pages
// into the real on-disk account trie, one page at a time. Ranges must be
// applied in ascending key order: each page's range proof is checked
// against the pivot root, then every leaf in the page is inserted into the
// running trie so that once the final page (covering up to 0xff..ff) has
// been applied, the trie's own root equals the pivot root.
type AccountIngester struct {
	db   rawdb.Database
	dbnd *trie.Database
	t    *trie.Trie
	root types.Hash
}

// NewAccountIngester creates an ingester that will build the account trie
// for the given pivot root, backed by db's account trie node table.
func NewAccountIngester(db rawdb.Database, root types.Hash) (*AccountIngester, error) {
	dbnd := trie.NewDatabase(trie.NewAccountTrieReader(db))
	t, err := trie.New(types.Hash{}, dbnd)
	if err != nil {
		return nil, err
	}
	return &AccountIngester{db: db, dbnd: dbnd, t: t, root: root}, nil
}

// ApplyPage verifies resp's range proof against the pivot root and, if
// valid, inserts every (key, value) leaf into the running account trie.
// It returns whether the peer reported more accounts beyond resp's last
// key, the hashes of the accounts with non-empty storage, and the code
// hashes of the accounts that carry code, so the caller can queue
// follow-up storage/bytecode fetches.
func (ing *AccountIngester) ApplyPage(resp *AccountRangeResponse) (hasMore bool, withStorage, withCode []types.Hash, err error) {
	keys := make([][]byte, len(resp.Keys))
	for i, k := range resp.Keys {
		keys[i] = k.Bytes()
	}

	hasMore, err = trie.VerifyRangeProof(ing.root, keys, resp.Values, resp.FirstProof, resp.LastProof)
	if err != nil {
		return false, nil, nil, ErrBadAccountProof
	}

	for i, key := range resp.Keys {
		if err := ing.t.Put(key.Bytes(), resp.Values[i]); err != nil {
			return false, nil, nil, err
		}
		acc := &types.Account{}
		if err := acc.DecodeRLP(resp.Values[i]); err != nil {
			return false, nil, nil, err
		}
		if acc.StorageRoot != types.EmptyRootHash {
			withStorage = append(withStorage, key)
		}
		if acc.CodeHash != types.EmptyCodeHash {
			withCode = append(withCode, acc.CodeHash)
		}
	}

	return hasMore, withStorage, withCode, nil
}

// Flush commits the running trie and writes every produced node to disk,
// returning the trie's current root. Once the full key space has been
// applied, the returned root must equal the pivot root the syncer expects.
func (ing *AccountIngester) Flush() (types.Hash, error) {
	root, err := ing.t.Commit()
	if err != nil {
		return types.Hash{}, err
	}
	if err := ing.dbnd.Flush(trie.NewAccountTrieWriter(ing.db)); err != nil {
		return types.Hash{}, err
	}
	return root, nil
}
