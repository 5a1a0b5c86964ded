package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeBasics(t *testing.T) {
	r := NewFlatRange(NewPosition("main", 0, 2), 3)

	assert.Equal(t, "main", r.Root())
	assert.True(t, r.IsFlat())
	assert.False(t, r.IsCollapsed())
	assert.Equal(t, 3, r.Width())
	assert.Equal(t, "[main [0, 2] .. main [0, 5]]", r.String())

	assert.True(t, NewCollapsedRange(NewPosition("main", 1)).IsCollapsed())

	deep := NewRange(NewPosition("main", 0, 2), NewPosition("main", 1, 0))
	assert.False(t, deep.IsFlat())
}

func TestRangeContainment(t *testing.T) {
	r := NewFlatRange(NewPosition("main", 0, 2), 4) // [2..6)

	assert.True(t, r.ContainsPosition(NewPosition("main", 0, 3)))
	assert.False(t, r.ContainsPosition(NewPosition("main", 0, 2)), "start boundary is not inside")
	assert.False(t, r.ContainsPosition(NewPosition("main", 0, 6)))
	assert.True(t, r.ContainsPosition(NewPosition("main", 0, 4, 1)), "deep positions under the span are inside")

	assert.True(t, r.ContainsRange(NewFlatRange(NewPosition("main", 0, 2), 4)))
	assert.True(t, r.ContainsRange(NewFlatRange(NewPosition("main", 0, 3), 2)))
	assert.False(t, r.ContainsRange(NewFlatRange(NewPosition("main", 0, 5), 3)))
}

func TestRangeIntersectionAndDifference(t *testing.T) {
	r := NewFlatRange(NewPosition("main", 0, 0), 4) // [0..4)
	o := NewFlatRange(NewPosition("main", 0, 2), 4) // [2..6)

	common, ok := r.Intersection(o)
	require.True(t, ok)
	assert.Equal(t, 2, common.Start.Offset())
	assert.Equal(t, 4, common.End.Offset())

	// touching ranges share nothing
	_, ok = r.Intersection(NewFlatRange(NewPosition("main", 0, 4), 2))
	assert.False(t, ok)

	diff := r.Difference(o)
	require.Len(t, diff, 1)
	assert.Equal(t, 0, diff[0].Start.Offset())
	assert.Equal(t, 2, diff[0].End.Offset())

	// removal strictly inside cuts two pieces
	diff = r.Difference(NewFlatRange(NewPosition("main", 0, 1), 2))
	require.Len(t, diff, 2)
	assert.Equal(t, 1, diff[0].End.Offset())
	assert.Equal(t, 3, diff[1].Start.Offset())

	assert.Equal(t, []Range{r}, r.Difference(NewFlatRange(NewPosition("other", 0, 0), 2)))
}

func TestRangeTransformedByInsertion(t *testing.T) {
	r := NewFlatRange(NewPosition("main", 0, 2), 4) // [2..6)

	// insertion inside, spread: the range splits around the new content
	got := r.TransformedByInsertion(NewPosition("main", 0, 4), 3, true)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Start.Offset())
	assert.Equal(t, 4, got[0].End.Offset())
	assert.Equal(t, 7, got[1].Start.Offset())
	assert.Equal(t, 9, got[1].End.Offset())

	// insertion inside, no spread: the range swallows the new content
	got = r.TransformedByInsertion(NewPosition("main", 0, 4), 3, false)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Start.Offset())
	assert.Equal(t, 9, got[0].End.Offset())

	// insertion at the start shifts the whole range
	got = r.TransformedByInsertion(NewPosition("main", 0, 2), 3, false)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Start.Offset())
	assert.Equal(t, 9, got[0].End.Offset())

	// insertion at the end stays outside
	got = r.TransformedByInsertion(NewPosition("main", 0, 6), 3, false)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Start.Offset())
	assert.Equal(t, 6, got[0].End.Offset())
}

func TestRangeTransformedByDeletion(t *testing.T) {
	r := NewFlatRange(NewPosition("main", 0, 2), 4) // [2..6)

	// removal before: shifted
	got, ok := r.TransformedByDeletion(NewPosition("main", 0, 0), 2)
	require.True(t, ok)
	assert.Equal(t, 0, got.Start.Offset())
	assert.Equal(t, 4, got.End.Offset())

	// removal overlapping the tail: clipped
	got, ok = r.TransformedByDeletion(NewPosition("main", 0, 4), 4)
	require.True(t, ok)
	assert.Equal(t, 2, got.Start.Offset())
	assert.Equal(t, 4, got.End.Offset())

	// removal covering the whole range: gone
	_, ok = NewFlatRange(NewPosition("main", 0, 3), 2).TransformedByDeletion(NewPosition("main", 0, 2), 4)
	assert.False(t, ok)
}

func TestRangeTransformedByMove(t *testing.T) {
	// the whole range sits inside the moved span and follows it
	r := NewFlatRange(NewPosition("main", 0, 2), 2) // [2..4)
	got := r.TransformedByMove(NewPosition("main", 0, 1), 4, NewPosition("main", 1, 0))
	require.Len(t, got, 1)
	assert.Equal(t, []int{1, 1}, got[0].Start.Path())
	assert.Equal(t, []int{1, 3}, got[0].End.Path())

	// a move out of the middle cuts the range apart
	r = NewFlatRange(NewPosition("main", 0, 0), 6) // [0..6)
	got = r.TransformedByMove(NewPosition("main", 0, 2), 2, NewPosition("main", 1, 0))
	require.GreaterOrEqual(t, len(got), 2)

	// a move elsewhere only shifts
	r = NewFlatRange(NewPosition("main", 0, 4), 2) // [4..6)
	got = r.TransformedByMove(NewPosition("main", 0, 0), 2, NewPosition("main", 1, 0))
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Start.Offset())
	assert.Equal(t, 4, got[0].End.Offset())
}
