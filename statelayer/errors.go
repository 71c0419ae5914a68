package statelayer

import "errors"

var (
	// ErrUnknownParent is returned when applying a block whose parent_hash
	// names neither the disk layer nor a live diff layer.
	ErrUnknownParent = errors.New("statelayer: unknown parent block")

	// ErrReorgTooDeep is returned when a forkchoice update would require
	// rewinding the disk layer past its committed state.
	ErrReorgTooDeep = errors.New("statelayer: reorg exceeds retention depth")

	// ErrRootMismatch is returned when merging a diff layer into the disk
	// layer produces a state root different from the one recorded when the
	// layer was created.
	ErrRootMismatch = errors.New("statelayer: merged root does not match recorded state root")

	// ErrStale is returned by reads against a layer that has already been
	// merged into the disk layer or pruned as a non-canonical branch.
	ErrStale = errors.New("statelayer: layer has been merged or pruned")

	// ErrUnknownLayer is returned when a block hash names no live layer.
	ErrUnknownLayer = errors.New("statelayer: no layer for the given block hash")
)
