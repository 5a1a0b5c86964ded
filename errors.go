// Package loom provides a tree-shaped document model with operational
// transformation: versioned atomic operations, composite deltas with
// algorithmic reversal, and history-based rebasing of stale edits.
package loom

import (
	"errors"
	"fmt"
)

// Addressing errors
var (
	// ErrEmptyPath indicates that a position was built with no offsets.
	ErrEmptyPath = errors.New("position path must not be empty")

	// ErrDifferentRoots indicates that two positions under different roots
	// were combined where a single root is required.
	ErrDifferentRoots = errors.New("positions belong to different roots")

	// ErrNotFlat indicates that a range spanning several parents was given
	// to an operation builder that needs a single-parent range.
	ErrNotFlat = errors.New("range is not flat")
)

// Document errors
var (
	// ErrVersionMismatch indicates that an operation's base version does not
	// match the document version at application time. The caller must rebase
	// through History before retrying.
	ErrVersionMismatch = errors.New("operation base version does not match document version")

	// ErrInvalidTarget indicates that an operation addresses a position or
	// range that does not resolve in the live tree. The operation was not
	// applied and the tree is unchanged.
	ErrInvalidTarget = errors.New("target does not resolve in the live tree")

	// ErrRootExists indicates an attempt to create a root under a name that
	// is already registered.
	ErrRootExists = errors.New("root already exists")

	// ErrRootNotFound indicates that no root is registered under the name.
	ErrRootNotFound = errors.New("root not found")
)

// History errors
var (
	// ErrUnknownHistoryPoint indicates that a history lookup or rebase was
	// requested from a base version at which no delta was ever recorded.
	ErrUnknownHistoryPoint = errors.New("unknown history point")
)

// Structure errors
var (
	// ErrCannotSplitRoot indicates an attempt to split directly under a
	// root, which has no parent to receive the split-off sibling.
	ErrCannotSplitRoot = fmt.Errorf("%w: cannot split a root node", ErrInvalidTarget)

	// ErrCannotMergeHere indicates that a merge position is not between two
	// elements of the same parent.
	ErrCannotMergeHere = fmt.Errorf("%w: merge position is not between two elements", ErrInvalidTarget)

	// ErrMoveIntoMovedRange indicates that a move targets a position inside
	// the content being moved.
	ErrMoveIntoMovedRange = errors.New("move target is inside the moved range")
)
