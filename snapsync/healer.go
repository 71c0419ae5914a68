package snapsync

import (
	"errors"

	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// Healer detects missing trie nodes left behind by the range-proof bulk
// download and fetches them individually, shallowest-first: a gap near
// the root is requested before any gap it might be hiding, so each round
// only ever surfaces newly-discovered children of nodes already healed.
type Healer struct {
	db        rawdb.Database
	root      types.Hash
	accountDB *trie.Database
	writer    trie.NodeWriter

	batchSize int
	retries   map[string]int
	failed    map[string]struct{}
}

// NewHealer creates a healer for the account trie rooted at root.
func NewHealer(db rawdb.Database, root types.Hash) *Healer {
	return &Healer{
		db:        db,
		root:      root,
		accountDB: trie.NewDatabase(trie.NewAccountTrieReader(db)),
		writer:    trie.NewAccountTrieWriter(db),
		batchSize: DefaultHealBatchSize,
		retries:   make(map[string]int),
		failed:    make(map[string]struct{}),
	}
}

// ErrHealBatchEmpty is returned by ApplyBatch when given no tasks.
var ErrHealBatchEmpty = errors.New("snapsync: empty heal batch")

// DetectGaps walks the account trie and returns up to the healer's batch
// size of missing node paths, shallowest first.
func (h *Healer) DetectGaps() ([]trie.MissingNodeGap, error) {
	gaps, err := trie.WalkMissing(h.root, h.accountDB, h.batchSize)
	if err != nil {
		return nil, err
	}
	out := gaps[:0]
	for _, g := range gaps {
		if _, failed := h.failed[string(g.Path)]; failed {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// ApplyBatch validates and persists the node data a peer returned for each
// gap's path, keyed by position. A nil entry means the peer didn't have
// the node; it is retried up to MaxHealRetries times before being given
// up on permanently.
func (h *Healer) ApplyBatch(gaps []trie.MissingNodeGap, nodes [][]byte) (healed, failedCount int, err error) {
	if len(gaps) == 0 {
		return 0, 0, ErrHealBatchEmpty
	}
	for i, gap := range gaps {
		var data []byte
		if i < len(nodes) {
			data = nodes[i]
		}
		pathKey := string(gap.Path)

		if len(data) == 0 || crypto.Keccak256Hash(data) != gap.NodeHash {
			h.retries[pathKey]++
			if h.retries[pathKey] >= MaxHealRetries {
				h.failed[pathKey] = struct{}{}
				failedCount++
			}
			continue
		}

		if err := h.writer.Put(gap.NodeHash, data); err != nil {
			return healed, failedCount, err
		}
		healed++
		delete(h.retries, pathKey)
	}
	return healed, failedCount, nil
}

// IsComplete reports whether a fresh walk of the account trie from the
// root finds no missing node. Gaps given up on after MaxHealRetries are
// still missing and so keep it false.
func (h *Healer) IsComplete() (bool, error) {
	gaps, err := trie.WalkMissing(h.root, h.accountDB, 1)
	if err != nil {
		return false, err
	}
	return len(gaps) == 0, nil
}

// FailedCount returns the number of gaps that exceeded MaxHealRetries.
func (h *Healer) FailedCount() int { return len(h.failed) }
