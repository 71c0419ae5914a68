package store

import (
	"errors"
	"fmt"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/rlp"
	"github.com/ethrex/ethrex-state/statelayer"
	"github.com/ethrex/ethrex-state/trie"
	"github.com/ethrex/ethrex-state/types"
)

// Kind is the closed set of failure modes a caller of this package needs to
// distinguish: the storage-layer kinds proper (NotFound..SchemaMismatch)
// plus the snap-sync kinds (InvalidProof, StaleTarget, HealMismatch) that a
// syncing node surfaces through the same façade.
type Kind int

const (
	KindNotFound Kind = iota
	KindUnknownParent
	KindReorgTooDeep
	KindRootMismatch
	KindMissingNode
	KindDecodeError
	KindBackendIO
	KindSchemaMismatch
	KindInvalidProof
	KindStaleTarget
	KindHealMismatch
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnknownParent:
		return "unknown_parent"
	case KindReorgTooDeep:
		return "reorg_too_deep"
	case KindRootMismatch:
		return "root_mismatch"
	case KindMissingNode:
		return "missing_node"
	case KindDecodeError:
		return "decode_error"
	case KindBackendIO:
		return "backend_io"
	case KindSchemaMismatch:
		return "schema_mismatch"
	case KindInvalidProof:
		return "invalid_proof"
	case KindStaleTarget:
		return "stale_target"
	case KindHealMismatch:
		return "heal_mismatch"
	default:
		return "unknown"
	}
}

// Error is the one error type every store operation returns on failure,
// carrying enough structure for a caller to branch on Kind without string
// matching and, for MissingNode, the node hash the healer needs to fetch.
type Error struct {
	Kind     Kind
	NodeHash types.Hash
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("store: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) work against the sentinel values
// below without every caller needing to know about *Error.
func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	return ok && s.kind == e.Kind
}

type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return "store: " + s.kind.String() }

var (
	ErrNotFound       error = &sentinel{KindNotFound}
	ErrUnknownParent  error = &sentinel{KindUnknownParent}
	ErrReorgTooDeep   error = &sentinel{KindReorgTooDeep}
	ErrRootMismatch   error = &sentinel{KindRootMismatch}
	ErrDecodeError    error = &sentinel{KindDecodeError}
	ErrBackendIO      error = &sentinel{KindBackendIO}
	ErrSchemaMismatch error = &sentinel{KindSchemaMismatch}
	ErrInvalidProof   error = &sentinel{KindInvalidProof}
	ErrStaleTarget    error = &sentinel{KindStaleTarget}
	ErrHealMismatch   error = &sentinel{KindHealMismatch}

	// ErrGenesisAlreadyWritten is returned by InitFromGenesis when the
	// database already has a head block hash recorded.
	ErrGenesisAlreadyWritten = errors.New("store: genesis already written")
)

// wrap classifies err (from rawdb, trie, or statelayer) into the closed
// *Error taxonomy this package exposes, so no internal error type ever
// leaks past the façade.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var mnErr *trie.MissingNodeError
	var schemaErr *rawdb.SchemaMismatchError
	switch {
	case errors.Is(err, rawdb.ErrNotFound), errors.Is(err, trie.ErrNotFound):
		return &Error{Kind: KindNotFound, Err: err}
	case errors.As(err, &schemaErr):
		return &Error{Kind: KindSchemaMismatch, Err: err}
	case errors.As(err, &mnErr):
		return &Error{Kind: KindMissingNode, NodeHash: mnErr.NodeHash, Err: err}
	case errors.Is(err, statelayer.ErrUnknownParent):
		return &Error{Kind: KindUnknownParent, Err: err}
	case errors.Is(err, statelayer.ErrReorgTooDeep), errors.Is(err, statelayer.ErrUnknownLayer), errors.Is(err, statelayer.ErrStale):
		return &Error{Kind: KindReorgTooDeep, Err: err}
	case errors.Is(err, statelayer.ErrRootMismatch):
		return &Error{Kind: KindRootMismatch, Err: err}
	case errors.Is(err, trie.ErrInvalidProof), errors.Is(err, trie.ErrProofVerifyFailed):
		return &Error{Kind: KindInvalidProof, Err: err}
	default:
		var decErr *rlp.DecodeError
		if errors.As(err, &decErr) {
			return &Error{Kind: KindDecodeError, Err: err}
		}
		return &Error{Kind: KindBackendIO, Err: err}
	}
}
