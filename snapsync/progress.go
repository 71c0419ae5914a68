package snapsync

import (
	"sync"
	"time"
)

// Progress is a point-in-time snapshot of sync progress, returned by
// Tracker.Snapshot.
type Progress struct {
	Phase Phase

	AccountsDone  uint64
	AccountBytes  uint64
	StorageSlots  uint64
	StorageBytes  uint64
	BytecodesDone uint64
	BytecodeBytes uint64

	HealNodesDone   uint64
	HealNodesFailed uint64

	StartTime time.Time
}

// Elapsed returns how long sync has been running.
func (p Progress) Elapsed() time.Duration {
	if p.StartTime.IsZero() {
		return 0
	}
	return time.Since(p.StartTime)
}

// BytesTotal returns the total bytes downloaded across all categories.
func (p Progress) BytesTotal() uint64 {
	return p.AccountBytes + p.StorageBytes + p.BytecodeBytes
}

// Tracker accumulates Progress counters as the syncer runs. Safe for
// concurrent use.
type Tracker struct {
	mu sync.Mutex
	p  Progress
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Start marks the tracker as running and records the start time.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.StartTime = time.Now()
	t.p.Phase = PhaseAccounts
}

// SetPhase updates the current phase.
func (t *Tracker) SetPhase(phase Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Phase = phase
}

// RecordAccounts adds n accounts and their byte size to the counters.
func (t *Tracker) RecordAccounts(n uint64, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.AccountsDone += n
	t.p.AccountBytes += bytes
}

// RecordStorage adds n storage slots and their byte size to the counters.
func (t *Tracker) RecordStorage(n uint64, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.StorageSlots += n
	t.p.StorageBytes += bytes
}

// RecordBytecode adds one fetched bytecode of the given size.
func (t *Tracker) RecordBytecode(bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.BytecodesDone++
	t.p.BytecodeBytes += bytes
}

// RecordHeal adds healed/failed node counts.
func (t *Tracker) RecordHeal(healed, failed uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.HealNodesDone += healed
	t.p.HealNodesFailed += failed
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}
