package snapsync

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethrex/ethrex-state/codecache"
	"github.com/ethrex/ethrex-state/crypto"
	"github.com/ethrex/ethrex-state/log"
	"github.com/ethrex/ethrex-state/metrics"
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

var logger = log.Default().Module("snapsync")

var (
	accountsSyncedCounter  = metrics.DefaultRegistry.Counter("snapsync_accounts_synced")
	storageSlotsCounter    = metrics.DefaultRegistry.Counter("snapsync_storage_slots_synced")
	bytecodesSyncedCounter = metrics.DefaultRegistry.Counter("snapsync_bytecodes_synced")
	healedNodesCounter     = metrics.DefaultRegistry.Counter("snapsync_nodes_healed")
)

// storageTask is one account still owed a full storage download.
type storageTask struct {
	addrHash    types.Hash
	storageRoot types.Hash
}

// Syncer drives the full account -> storage -> healing pipeline against a
// single peer, persisting progress into db as it goes so a crash can
// resume from the last completed account page instead of starting over.
type Syncer struct {
	db      rawdb.Database
	code    *codecache.Cache
	tracker *Tracker

	mu      sync.Mutex
	running atomic.Bool
	cancel  chan struct{}

	pivotNumber uint64
	pivotRoot   types.Hash

	pendingStorage []storageTask
	pendingCode    map[types.Hash]struct{}
}

// NewSyncer creates a syncer that will populate db (and code) with the
// state committed at pivotRoot/pivotNumber.
func NewSyncer(db rawdb.Database, code *codecache.Cache, pivotNumber uint64, pivotRoot types.Hash) *Syncer {
	return &Syncer{
		db:          db,
		code:        code,
		tracker:     NewTracker(),
		cancel:      make(chan struct{}),
		pivotNumber: pivotNumber,
		pivotRoot:   pivotRoot,
		pendingCode: make(map[types.Hash]struct{}),
	}
}

// Progress returns a snapshot of the syncer's tracked progress.
func (s *Syncer) Progress() Progress { return s.tracker.Snapshot() }

// Cancel stops the sync loop at the next checkpoint boundary.
func (s *Syncer) Cancel() {
	select {
	case <-s.cancel:
	default:
		close(s.cancel)
	}
}

// cancelled reports whether Cancel has been called.
func (s *Syncer) cancelled() bool {
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}

// Run executes the full pipeline against peer: accounts, then storage for
// every account with non-empty storage, then bytecode for every account
// with non-empty code, then healing until the account trie has no
// remaining gaps. It checkpoints after every account page so a restart
// can call Resume instead of Run.
func (s *Syncer) Run(peer Peer) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.tracker.Start()
	logger.Info("snap sync starting", "peer", peer.ID(), "pivot_number", s.pivotNumber, "pivot_root", s.pivotRoot.Hex())

	if err := s.downloadAccounts(peer, types.Hash{}); err != nil {
		logger.Error("account phase failed", "err", err)
		return err
	}
	s.tracker.SetPhase(PhaseStorage)
	if err := s.downloadStorage(peer); err != nil {
		logger.Error("storage phase failed", "err", err)
		return err
	}
	if err := s.downloadBytecodes(peer); err != nil {
		logger.Error("bytecode phase failed", "err", err)
		return err
	}
	s.tracker.SetPhase(PhaseHealing)
	if err := s.heal(peer); err != nil {
		logger.Error("healing phase failed", "err", err)
		return err
	}
	s.tracker.SetPhase(PhaseComplete)
	logger.Info("snap sync complete", "pivot_number", s.pivotNumber)

	return ClearCheckpoint(s.db)
}

// Resume restarts a previously checkpointed sync from where it left off.
func (s *Syncer) Resume(peer Peer, cp *Checkpoint) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.tracker.Start()
	for _, h := range cp.PendingStorage {
		s.pendingStorage = append(s.pendingStorage, storageTask{addrHash: h})
	}
	for _, h := range cp.PendingCode {
		s.pendingCode[h] = struct{}{}
	}

	if !cp.AccountsDone {
		if err := s.downloadAccounts(peer, cp.AccountOrigin); err != nil {
			return err
		}
	}
	s.tracker.SetPhase(PhaseStorage)
	if err := s.downloadStorage(peer); err != nil {
		return err
	}
	if err := s.downloadBytecodes(peer); err != nil {
		return err
	}
	s.tracker.SetPhase(PhaseHealing)
	if err := s.heal(peer); err != nil {
		return err
	}
	s.tracker.SetPhase(PhaseComplete)

	return ClearCheckpoint(s.db)
}

// downloadAccounts pages through the account range starting at origin
// until the peer reports no more accounts, checkpointing after each page.
func (s *Syncer) downloadAccounts(peer Peer, origin types.Hash) error {
	ing, err := NewAccountIngester(s.db, s.pivotRoot)
	if err != nil {
		return err
	}

	limit := maxHash()
	for {
		if s.cancelled() {
			return ErrCancelled
		}

		resp, err := peer.RequestAccountRange(AccountRangeRequest{
			Root:     s.pivotRoot,
			Origin:   origin,
			Limit:    limit,
			MaxBytes: MaxAccountRangeBytes,
		})
		if err != nil {
			return fmt.Errorf("snapsync: account range request: %w", err)
		}

		hasMore, withStorage, withCode, err := ing.ApplyPage(resp)
		if err != nil {
			return err
		}

		var pageBytes uint64
		for _, v := range resp.Values {
			pageBytes += uint64(len(v))
		}
		s.tracker.RecordAccounts(uint64(len(resp.Keys)), pageBytes)
		accountsSyncedCounter.Add(int64(len(resp.Keys)))

		s.mu.Lock()
		for _, addrHash := range withStorage {
			s.pendingStorage = append(s.pendingStorage, storageTask{addrHash: addrHash})
		}
		for _, codeHash := range withCode {
			s.pendingCode[codeHash] = struct{}{}
		}
		s.mu.Unlock()

		if !hasMore || len(resp.Keys) == 0 {
			break
		}
		origin = incrementHash(resp.Keys[len(resp.Keys)-1])

		s.checkpointAccounts(origin, false)
	}

	root, err := ing.Flush()
	if err != nil {
		return err
	}
	if root != s.pivotRoot {
		return fmt.Errorf("%w: got %x want %x", ErrRootMismatch, root, s.pivotRoot)
	}
	s.checkpointAccounts(origin, true)
	return nil
}

// downloadStorage fetches the full storage range for every account queued
// during the account phase. The storage root for each account is looked
// up from the just-completed account trie rather than carried in the
// queue, so a resumed sync doesn't need to have persisted it separately.
func (s *Syncer) downloadStorage(peer Peer) error {
	for {
		if s.cancelled() {
			return ErrCancelled
		}

		s.mu.Lock()
		if len(s.pendingStorage) == 0 {
			s.mu.Unlock()
			return nil
		}
		task := s.pendingStorage[0]
		s.pendingStorage = s.pendingStorage[1:]
		s.mu.Unlock()

		if task.storageRoot.IsZero() {
			acc, err := s.readAccount(task.addrHash)
			if err != nil {
				return err
			}
			task.storageRoot = acc.StorageRoot
		}

		if err := s.downloadOneAccountStorage(peer, task); err != nil {
			return err
		}
		s.checkpointStorageProgress()
	}
}

func (s *Syncer) downloadOneAccountStorage(peer Peer, task storageTask) error {
	sing, err := NewStorageIngester(s.db, task.addrHash, task.storageRoot)
	if err != nil {
		return err
	}

	origin := types.Hash{}
	limit := maxHash()
	for {
		if s.cancelled() {
			return ErrCancelled
		}

		resp, err := peer.RequestStorageRange(StorageRangeRequest{
			Root:     s.pivotRoot,
			Account:  task.addrHash,
			Origin:   origin,
			Limit:    limit,
			MaxBytes: MaxStorageRangeBytes,
		})
		if err != nil {
			return fmt.Errorf("snapsync: storage range request: %w", err)
		}

		hasMore, err := sing.ApplyPage(resp)
		if err != nil {
			return err
		}

		var pageBytes uint64
		for _, v := range resp.Values {
			pageBytes += uint64(len(v))
		}
		s.tracker.RecordStorage(uint64(len(resp.Keys)), pageBytes)
		storageSlotsCounter.Add(int64(len(resp.Keys)))

		if !hasMore || len(resp.Keys) == 0 {
			break
		}
		origin = incrementHash(resp.Keys[len(resp.Keys)-1])
	}

	root, err := sing.Flush()
	if err != nil {
		return err
	}
	if root != task.storageRoot {
		return fmt.Errorf("%w: account %x: got %x want %x", ErrRootMismatch, task.addrHash, root, task.storageRoot)
	}
	return nil
}

// readAccount looks up addrHash's current leaf in the already-flushed
// account trie rooted at the pivot.
func (s *Syncer) readAccount(addrHash types.Hash) (*types.Account, error) {
	dbnd := trie.NewDatabase(trie.NewAccountTrieReader(s.db))
	t, err := trie.New(s.pivotRoot, dbnd)
	if err != nil {
		return nil, err
	}
	data, err := t.Get(addrHash.Bytes())
	if err != nil {
		return nil, err
	}
	acc := &types.Account{}
	if err := acc.DecodeRLP(data); err != nil {
		return nil, err
	}
	return acc, nil
}

// downloadBytecodes fetches every queued code hash not already cached.
func (s *Syncer) downloadBytecodes(peer Peer) error {
	for {
		if s.cancelled() {
			return ErrCancelled
		}

		s.mu.Lock()
		batch := make([]types.Hash, 0, MaxBytecodeBatch)
		for hash := range s.pendingCode {
			if s.code.Has(hash) {
				delete(s.pendingCode, hash)
				continue
			}
			batch = append(batch, hash)
			if len(batch) >= MaxBytecodeBatch {
				break
			}
		}
		s.mu.Unlock()
		if len(batch) == 0 {
			return nil
		}

		resp, err := peer.RequestBytecodes(BytecodeRequest{Hashes: batch})
		if err != nil {
			return fmt.Errorf("snapsync: bytecode request: %w", err)
		}

		for i, code := range resp.Codes {
			if i >= len(batch) || len(code) == 0 {
				continue
			}
			if crypto.Keccak256Hash(code) != batch[i] {
				return fmt.Errorf("%w: %x", ErrBadBytecode, batch[i])
			}
			if err := s.code.Put(batch[i], code); err != nil {
				return err
			}
			s.tracker.RecordBytecode(uint64(len(code)))
			bytecodesSyncedCounter.Inc()

			s.mu.Lock()
			delete(s.pendingCode, batch[i])
			s.mu.Unlock()
		}
	}
}

// heal repeatedly detects and fetches missing account trie nodes until
// none remain.
func (s *Syncer) heal(peer Peer) error {
	healer := NewHealer(s.db, s.pivotRoot)
	for {
		if s.cancelled() {
			return ErrCancelled
		}

		gaps, err := healer.DetectGaps()
		if err != nil {
			return err
		}
		if len(gaps) == 0 {
			return nil
		}

		paths := make([][]byte, len(gaps))
		for i, g := range gaps {
			paths[i] = g.Path
		}
		resp, err := peer.RequestTrieNodes(TrieNodeRequest{Root: s.pivotRoot, Paths: paths})
		if err != nil {
			return fmt.Errorf("snapsync: trie node request: %w", err)
		}

		healed, failed, err := healer.ApplyBatch(gaps, resp.Nodes)
		if err != nil {
			return err
		}
		s.tracker.RecordHeal(uint64(healed), uint64(failed))
		healedNodesCounter.Add(int64(healed))
	}
}

func (s *Syncer) checkpointAccounts(origin types.Hash, done bool) {
	_ = SaveCheckpoint(s.db, s.snapshotCheckpoint(origin, done))
}

func (s *Syncer) checkpointStorageProgress() {
	_ = SaveCheckpoint(s.db, s.snapshotCheckpoint(types.Hash{}, true))
}

func (s *Syncer) snapshotCheckpoint(origin types.Hash, accountsDone bool) *Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := &Checkpoint{
		PivotNumber:   s.pivotNumber,
		PivotRoot:     s.pivotRoot,
		AccountOrigin: origin,
		AccountsDone:  accountsDone,
	}
	for _, t := range s.pendingStorage {
		cp.PendingStorage = append(cp.PendingStorage, t.addrHash)
	}
	for h := range s.pendingCode {
		cp.PendingCode = append(cp.PendingCode, h)
	}
	return cp
}

// maxHash returns the all-0xff hash, the inclusive upper bound of the
// 256-bit key space.
func maxHash() types.Hash {
	var h types.Hash
	for i := range h {
		h[i] = 0xff
	}
	return h
}

// incrementHash returns h+1, saturating at all-0xff.
func incrementHash(h types.Hash) types.Hash {
	out := h
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out
		}
		out[i] = 0xff
	}
	return out
}
