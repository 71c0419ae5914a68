// Package snapsync implements the fast-sync state download described in
// spec.md: rather than replaying every historical block, a syncing node
// downloads the world state at a recent "pivot" block directly, in three
// phases:
//
//  1. Account range download -- fetch account trie leaves in key-order
//     ranges, each backed by a Merkle range proof against the pivot's
//     state root.
//  2. Storage range download -- fetch storage trie leaves per contract,
//     each backed by a range proof against that account's storage root.
//  3. Healing -- once the bulk ranges are in, walk the resulting tries to
//     find any interior nodes a range boundary didn't cover, and fetch
//     those individually, shallowest first.
//
// Bytecode is fetched after the storage phase: the code hash of any
// account whose code hash is not EmptyCodeHash is collected during the
// account phase, and the collected hashes are fetched once the storage
// ranges are in, skipping those the code cache already has.
package snapsync

import (
	"errors"
	"fmt"
)

// Phase is a stage of the snap sync pipeline.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAccounts
	PhaseStorage
	PhaseHealing
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccounts:
		return "accounts"
	case PhaseStorage:
		return "storage"
	case PhaseHealing:
		return "healing"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// Tuning constants.
const (
	// MaxAccountRangeBytes is the soft byte limit requested per account
	// range page.
	MaxAccountRangeBytes = 512 * 1024

	// MaxStorageRangeBytes is the soft byte limit requested per storage
	// range page.
	MaxStorageRangeBytes = 512 * 1024

	// MaxBytecodeBatch is the maximum number of code hashes requested in a
	// single bytecode fetch.
	MaxBytecodeBatch = 64

	// DefaultHealBatchSize is the number of trie node paths requested per
	// healing round.
	DefaultHealBatchSize = 128

	// MaxHealRetries is how many times a single healing gap is retried
	// before being recorded as permanently failed.
	MaxHealRetries = 3

	// PivotOffset is how many blocks behind the chain head the pivot is
	// set, giving enough confirmation depth that a short reorg can't
	// invalidate the download mid-flight.
	PivotOffset = 64

	// MinPivotBlock is the minimum head block number required to attempt
	// snap sync at all; below this, a full sync from genesis is cheaper.
	MinPivotBlock = 128
)

// Sentinel errors.
var (
	ErrAlreadyRunning  = errors.New("snapsync: already running")
	ErrCancelled       = errors.New("snapsync: cancelled")
	ErrChainTooShort   = errors.New("snapsync: chain too short for a pivot")
	ErrNoPeer          = errors.New("snapsync: no snap-capable peer available")
	ErrBadAccountProof = errors.New("snapsync: invalid account range proof")
	ErrBadStorageProof = errors.New("snapsync: invalid storage range proof")
	ErrBadBytecode     = errors.New("snapsync: bytecode hash mismatch")
	ErrRootMismatch    = errors.New("snapsync: reconstructed root does not match pivot")
)

// SelectPivot picks a pivot block PivotOffset behind headNumber, refusing
// to run below MinPivotBlock (syncing genesis state this way is pointless).
func SelectPivot(headNumber uint64) (uint64, error) {
	if headNumber < MinPivotBlock {
		return 0, fmt.Errorf("%w: head=%d need>=%d", ErrChainTooShort, headNumber, MinPivotBlock)
	}
	pivot := headNumber - PivotOffset
	if pivot == 0 {
		pivot = 1
	}
	return pivot, nil
}
