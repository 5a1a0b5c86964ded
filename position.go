package loom

import (
	"fmt"
	"strings"
)

// Position is an immutable coordinate into a document tree: a root name
// plus an ordered path of non-negative offsets, one per nesting level,
// addressing a point between siblings. Element children occupy one offset
// unit each; text runs occupy one unit per character.
//
// Positions are snapshots, not live references. After any structural
// change they must be recomputed, either from scratch or through the
// TransformedBy* methods.
type Position struct {
	root string
	path []int
}

// NewPosition creates a position under the named root. The path is copied.
func NewPosition(root string, path ...int) Position {
	return Position{root: root, path: append([]int(nil), path...)}
}

// Root returns the name of the root the position belongs to.
func (p Position) Root() string {
	return p.root
}

// Path returns a copy of the offset path.
func (p Position) Path() []int {
	return append([]int(nil), p.path...)
}

// Depth returns the number of path entries.
func (p Position) Depth() int {
	return len(p.path)
}

// Offset returns the last path entry, the offset inside the position's
// immediate parent. Returns -1 for an empty path.
func (p Position) Offset() int {
	if len(p.path) == 0 {
		return -1
	}
	return p.path[len(p.path)-1]
}

// WithOffset returns a copy of the position with the last path entry
// replaced by offset.
func (p Position) WithOffset(offset int) Position {
	q := NewPosition(p.root, p.path...)
	if len(q.path) > 0 {
		q.path[len(q.path)-1] = offset
	}
	return q
}

// ParentPosition returns the position addressing the parent node itself,
// i.e. the path with its last entry dropped. Only meaningful when the
// path has at least two entries.
func (p Position) ParentPosition() Position {
	if len(p.path) < 2 {
		return p
	}
	return NewPosition(p.root, p.path[:len(p.path)-1]...)
}

// child returns the position extended by one more offset level.
func (p Position) child(offset int) Position {
	return NewPosition(p.root, append(p.Path(), offset)...)
}

// Relation describes how two positions relate in document order.
type Relation int

const (
	// RelationSame means the two positions address the same point.
	RelationSame Relation = iota

	// RelationBefore means the receiver comes earlier in document order.
	RelationBefore

	// RelationAfter means the receiver comes later in document order.
	RelationAfter

	// RelationDifferentRoots means the positions are not comparable.
	RelationDifferentRoots
)

// CompareWith compares two positions in document order. Paths compare
// lexicographically; a path that is a strict prefix of another comes
// first (the shorter position sits immediately before the content the
// longer one points into).
func (p Position) CompareWith(q Position) Relation {
	if p.root != q.root {
		return RelationDifferentRoots
	}
	for i := 0; i < len(p.path) && i < len(q.path); i++ {
		switch {
		case p.path[i] < q.path[i]:
			return RelationBefore
		case p.path[i] > q.path[i]:
			return RelationAfter
		}
	}
	switch {
	case len(p.path) < len(q.path):
		return RelationBefore
	case len(p.path) > len(q.path):
		return RelationAfter
	}
	return RelationSame
}

// IsEqual reports whether both positions address the same point.
func (p Position) IsEqual(q Position) bool {
	return p.CompareWith(q) == RelationSame
}

// IsBefore reports whether p comes before q in document order.
func (p Position) IsBefore(q Position) bool {
	return p.CompareWith(q) == RelationBefore
}

// IsAfter reports whether p comes after q in document order.
func (p Position) IsAfter(q Position) bool {
	return p.CompareWith(q) == RelationAfter
}

// TransformedByInsertion returns the position adjusted for an insertion
// of howMany offset units at position at. When p sits exactly at the
// insertion point, insertBefore decides whether the insertion is treated
// as landing before p (p shifts past it) or after p (p keeps its place).
func (p Position) TransformedByInsertion(at Position, howMany int, insertBefore bool) Position {
	if p.root != at.root || howMany == 0 {
		return p
	}
	i := len(at.path) - 1
	if len(p.path) <= i || !hasPathPrefix(p.path, at.path[:i]) {
		return p
	}
	off := at.path[i]
	switch {
	case p.path[i] > off:
	case p.path[i] == off && len(p.path) > i+1:
		// p points inside the node being displaced
	case p.path[i] == off && insertBefore:
	default:
		return p
	}
	q := NewPosition(p.root, p.path...)
	q.path[i] += howMany
	return q
}

// TransformedByDeletion returns the position adjusted for the removal of
// howMany offset units at position at. The second return value is false
// when p pointed inside the removed content and no adjusted position
// exists.
func (p Position) TransformedByDeletion(at Position, howMany int) (Position, bool) {
	if p.root != at.root || howMany == 0 {
		return p, true
	}
	i := len(at.path) - 1
	if len(p.path) <= i || !hasPathPrefix(p.path, at.path[:i]) {
		return p, true
	}
	off := at.path[i]
	pi := p.path[i]
	switch {
	case pi < off:
		return p, true
	case pi >= off+howMany:
		q := NewPosition(p.root, p.path...)
		q.path[i] -= howMany
		return q, true
	case pi == off && len(p.path) == i+1:
		// the point at the start of the removed span survives as the
		// new boundary
		return p, true
	}
	return Position{}, false
}

// TransformedByMove returns the position adjusted for a move of howMany
// offset units from source to target. A position inside the moved
// content follows it to the target location. target is interpreted in
// the pre-move tree, as a MoveOperation stores it.
func (p Position) TransformedByMove(source, target Position, howMany int, insertBefore bool) Position {
	adjTarget, ok := target.TransformedByDeletion(source, howMany)
	if !ok {
		adjTarget = target
	}
	q, ok := p.TransformedByDeletion(source, howMany)
	if !ok {
		return p.combined(source, adjTarget)
	}
	return q.TransformedByInsertion(adjTarget, howMany, insertBefore)
}

// combined maps a position inside the span starting at source into the
// equivalent position under target, preserving its offset within the
// span and any deeper path suffix.
func (p Position) combined(source, target Position) Position {
	i := len(source.path) - 1
	path := target.Path()
	path[len(path)-1] += p.path[i] - source.path[i]
	path = append(path, p.path[i+1:]...)
	return NewPosition(target.root, path...)
}

// String renders the position as "root [a, b, c]".
func (p Position) String() string {
	parts := make([]string, len(p.path))
	for i, o := range p.path {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return fmt.Sprintf("%s [%s]", p.root, strings.Join(parts, ", "))
}

// hasPathPrefix reports whether path starts with the given prefix.
func hasPathPrefix(path, prefix []int) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i, o := range prefix {
		if path[i] != o {
			return false
		}
	}
	return true
}
