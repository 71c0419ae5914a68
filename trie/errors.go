package trie

import (
	"errors"
	"fmt"

	"github.com/ethrex/ethrex-state/types"
)

var (
	// ErrNotFound is returned by Get when the key is definitely absent.
	ErrNotFound = errors.New("trie: key not found")

	// ErrInvalidProof is returned when a Merkle or range proof fails
	// verification.
	ErrInvalidProof = errors.New("trie: invalid proof")
)

// MissingNodeError is returned when a trie walk needs a node that is not
// present in the node database. This is the distinguishing failure the
// snap-sync healer watches for: it is not "the key is absent", it is "we
// don't have enough of the trie to know".
type MissingNodeError struct {
	NodeHash types.Hash
	Path     []byte
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("trie: missing node %s (path %x)", e.NodeHash, e.Path)
}

// IsMissingNodeError reports whether err is (or wraps) a MissingNodeError.
func IsMissingNodeError(err error) bool {
	var e *MissingNodeError
	return errors.As(err, &e)
}

func newDecodeRefError(msg string) error {
	return fmt.Errorf("trie: malformed node encoding: %s", msg)
}
