package loom

import "fmt"

// Range delimits a span of tree content between two positions under the
// same root. Start is expected to come at or before End in document
// order; the expectation is documented, not enforced. Both flat ranges
// (start and end sharing a parent) and multi-level ranges are legal.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range between two positions.
func NewRange(start, end Position) Range {
	return Range{Start: start, End: end}
}

// NewCollapsedRange creates a zero-width range at the given position.
func NewCollapsedRange(p Position) Range {
	return Range{Start: p, End: p}
}

// NewFlatRange creates a range spanning howMany offset units after start,
// inside start's parent.
func NewFlatRange(start Position, howMany int) Range {
	return Range{Start: start, End: start.WithOffset(start.Offset() + howMany)}
}

// Root returns the name of the root the range belongs to.
func (r Range) Root() string {
	return r.Start.Root()
}

// IsCollapsed reports whether the range has zero width.
func (r Range) IsCollapsed() bool {
	return r.Start.IsEqual(r.End)
}

// IsFlat reports whether both ends share the same parent.
func (r Range) IsFlat() bool {
	if r.Start.Root() != r.End.Root() || r.Start.Depth() != r.End.Depth() {
		return false
	}
	return hasPathPrefix(r.End.path, r.Start.path[:len(r.Start.path)-1])
}

// Width returns the offset-unit width of a flat range.
func (r Range) Width() int {
	return r.End.Offset() - r.Start.Offset()
}

// ContainsPosition reports whether p lies strictly inside the range.
func (r Range) ContainsPosition(p Position) bool {
	return r.Start.IsBefore(p) && p.IsBefore(r.End)
}

// ContainsRange reports whether o lies within the range, boundaries
// included.
func (r Range) ContainsRange(o Range) bool {
	if r.Root() != o.Root() {
		return false
	}
	return !o.Start.IsBefore(r.Start) && !o.End.IsAfter(r.End)
}

// Intersection returns the common part of two ranges. The second return
// value is false when they share no content; merely touching ranges do
// not intersect.
func (r Range) Intersection(o Range) (Range, bool) {
	if r.Root() != o.Root() {
		return Range{}, false
	}
	start := r.Start
	if o.Start.IsAfter(start) {
		start = o.Start
	}
	end := r.End
	if o.End.IsBefore(end) {
		end = o.End
	}
	if !start.IsBefore(end) {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// IsIntersecting reports whether the two ranges share content.
func (r Range) IsIntersecting(o Range) bool {
	_, ok := r.Intersection(o)
	return ok
}

// Difference returns the parts of r not covered by o: zero, one, or two
// ranges in document order.
func (r Range) Difference(o Range) []Range {
	if !r.IsIntersecting(o) {
		return []Range{r}
	}
	var out []Range
	if r.Start.IsBefore(o.Start) {
		out = append(out, Range{Start: r.Start, End: o.Start})
	}
	if o.End.IsBefore(r.End) {
		out = append(out, Range{Start: o.End, End: r.End})
	}
	return out
}

// TransformedByInsertion returns the range adjusted for an insertion of
// howMany offset units at position at. When the insertion falls strictly
// inside the range, spread selects between splitting the range around
// the inserted content (true) and expanding the range over it (false).
func (r Range) TransformedByInsertion(at Position, howMany int, spread bool) []Range {
	if r.ContainsPosition(at) && len(at.path) == len(r.Start.path) && spread {
		return []Range{
			{Start: r.Start, End: at},
			{
				Start: at.TransformedByInsertion(at, howMany, true),
				End:   r.End.TransformedByInsertion(at, howMany, true),
			},
		}
	}
	return []Range{{
		Start: r.Start.TransformedByInsertion(at, howMany, true),
		End:   r.End.TransformedByInsertion(at, howMany, false),
	}}
}

// TransformedByDeletion returns the range clipped against the removal of
// howMany offset units at position at. The second return value is false
// when the whole range lay inside the removed content.
func (r Range) TransformedByDeletion(at Position, howMany int) (Range, bool) {
	start, okS := r.Start.TransformedByDeletion(at, howMany)
	end, okE := r.End.TransformedByDeletion(at, howMany)
	if !okS && !okE {
		return Range{}, false
	}
	if !okS {
		start = at
	}
	if !okE {
		end = at
	}
	return Range{Start: start, End: end}, true
}

// TransformedByMove returns the range adjusted for a move of howMany
// offset units from source to target: parts outside the moved span are
// shifted, a part inside it follows the content to the target. The
// result holds one range normally, more when the move cuts the range
// apart.
func (r Range) TransformedByMove(source Position, howMany int, target Position) []Range {
	moved := NewFlatRange(source, howMany)
	adjTarget, ok := target.TransformedByDeletion(source, howMany)
	if !ok {
		adjTarget = target
	}
	if moved.ContainsRange(r) {
		return []Range{{
			Start: r.Start.combined(source, adjTarget),
			End:   r.End.combined(source, adjTarget),
		}}
	}
	if r.Root() == source.Root() && r.IsIntersecting(moved) {
		var out []Range
		for _, piece := range r.Difference(moved) {
			s, _ := piece.Start.TransformedByDeletion(source, howMany)
			e, _ := piece.End.TransformedByDeletion(source, howMany)
			shifted := Range{Start: s, End: e}
			out = append(out, shifted.TransformedByInsertion(adjTarget, howMany, false)...)
		}
		if common, ok := r.Intersection(moved); ok {
			out = append(out, Range{
				Start: common.Start.combined(source, adjTarget),
				End:   common.End.combined(source, adjTarget),
			})
		}
		return out
	}
	s, _ := r.Start.TransformedByDeletion(source, howMany)
	e, _ := r.End.TransformedByDeletion(source, howMany)
	return Range{Start: s, End: e}.TransformedByInsertion(adjTarget, howMany, false)
}

// String renders the range as "[start .. end]".
func (r Range) String() string {
	return fmt.Sprintf("[%s .. %s]", r.Start, r.End)
}
