package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionBasics(t *testing.T) {
	p := NewPosition("main", 1, 2, 3)

	assert.Equal(t, "main", p.Root())
	assert.Equal(t, []int{1, 2, 3}, p.Path())
	assert.Equal(t, 3, p.Depth())
	assert.Equal(t, 3, p.Offset())
	assert.Equal(t, "main [1, 2, 3]", p.String())

	q := p.WithOffset(7)
	assert.Equal(t, []int{1, 2, 7}, q.Path())
	assert.Equal(t, []int{1, 2, 3}, p.Path(), "WithOffset must not mutate the receiver")

	assert.Equal(t, []int{1, 2}, p.ParentPosition().Path())
}

func TestPositionPathIsCopied(t *testing.T) {
	path := []int{0, 1}
	p := NewPosition("main", path...)
	path[0] = 9
	assert.Equal(t, []int{0, 1}, p.Path())

	got := p.Path()
	got[0] = 9
	assert.Equal(t, []int{0, 1}, p.Path())
}

func TestPositionCompareWith(t *testing.T) {
	cases := []struct {
		name string
		p, q Position
		want Relation
	}{
		{"same", NewPosition("main", 1, 2), NewPosition("main", 1, 2), RelationSame},
		{"before by offset", NewPosition("main", 1), NewPosition("main", 2), RelationBefore},
		{"after by offset", NewPosition("main", 3), NewPosition("main", 2), RelationAfter},
		{"prefix comes first", NewPosition("main", 1), NewPosition("main", 1, 0), RelationBefore},
		{"deeper comes after", NewPosition("main", 1, 5), NewPosition("main", 1), RelationAfter},
		{"different roots", NewPosition("main", 0), NewPosition("other", 0), RelationDifferentRoots},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.CompareWith(tc.q))
		})
	}
}

func TestPositionTransformedByInsertion(t *testing.T) {
	at := NewPosition("main", 0, 2)

	// before the insertion point: untouched
	p := NewPosition("main", 0, 1).TransformedByInsertion(at, 3, false)
	assert.Equal(t, []int{0, 1}, p.Path())

	// after the insertion point: shifted
	p = NewPosition("main", 0, 4).TransformedByInsertion(at, 3, false)
	assert.Equal(t, []int{0, 7}, p.Path())

	// exactly at the point: insertBefore decides
	p = NewPosition("main", 0, 2).TransformedByInsertion(at, 3, false)
	assert.Equal(t, []int{0, 2}, p.Path())
	p = NewPosition("main", 0, 2).TransformedByInsertion(at, 3, true)
	assert.Equal(t, []int{0, 5}, p.Path())

	// inside the node being displaced: follows it
	p = NewPosition("main", 0, 2, 1).TransformedByInsertion(at, 3, false)
	assert.Equal(t, []int{0, 5, 1}, p.Path())

	// other root: untouched
	p = NewPosition("other", 0, 4).TransformedByInsertion(at, 3, false)
	assert.Equal(t, []int{0, 4}, p.Path())
}

func TestPositionTransformedByDeletion(t *testing.T) {
	at := NewPosition("main", 0, 2)

	p, ok := NewPosition("main", 0, 1).TransformedByDeletion(at, 3)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, p.Path())

	p, ok = NewPosition("main", 0, 6).TransformedByDeletion(at, 3)
	require.True(t, ok)
	assert.Equal(t, []int{0, 3}, p.Path())

	// the boundary point at the start of the removed span survives
	p, ok = NewPosition("main", 0, 2).TransformedByDeletion(at, 3)
	require.True(t, ok)
	assert.Equal(t, []int{0, 2}, p.Path())

	// strictly inside the removed span: gone
	_, ok = NewPosition("main", 0, 3).TransformedByDeletion(at, 3)
	assert.False(t, ok)

	// inside a removed node's subtree: gone
	_, ok = NewPosition("main", 0, 2, 5).TransformedByDeletion(at, 3)
	assert.False(t, ok)
}

func TestPositionTransformedByMove(t *testing.T) {
	src := NewPosition("main", 0, 1)
	tgt := NewPosition("main", 2, 0)

	// outside the moved span: only shifted by the deletion
	p := NewPosition("main", 0, 5).TransformedByMove(src, tgt, 2, false)
	assert.Equal(t, []int{0, 3}, p.Path())

	// inside the moved span: follows the content to the target
	p = NewPosition("main", 0, 2).TransformedByMove(src, tgt, 2, false)
	assert.Equal(t, []int{2, 1}, p.Path())

	// deeper position inside a moved node keeps its suffix
	p = NewPosition("main", 0, 1, 4).TransformedByMove(src, tgt, 2, false)
	assert.Equal(t, []int{2, 0, 4}, p.Path())
}
