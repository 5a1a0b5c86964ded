package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// applyAll renumbers the operations to the document's current version
// and applies them in order.
func applyAll(t *testing.T, doc *Document, ops []Operation) {
	t.Helper()
	for _, op := range ops {
		op.SetBaseVersion(doc.Version())
		require.NoError(t, doc.ApplyOperation(op))
	}
}

// assertConverged applies b then transform(a, b, true) to one copy of
// the document and a then transform(b, a, false) to the other, and
// expects both visible trees to match.
func assertConverged(t *testing.T, makeDoc func(t *testing.T) *Document, a, b Operation) {
	t.Helper()

	doc1 := makeDoc(t)
	b1 := b.Clone()
	b1.SetBaseVersion(doc1.Version())
	require.NoError(t, doc1.ApplyOperation(b1))
	applyAll(t, doc1, TransformOperation(a, b, true))

	doc2 := makeDoc(t)
	a2 := a.Clone()
	a2.SetBaseVersion(doc2.Version())
	require.NoError(t, doc2.ApplyOperation(a2))
	applyAll(t, doc2, TransformOperation(b, a, false))

	root1 := mainRoot(t, doc1)
	root2 := mainRoot(t, doc2)
	assert.Equal(t, DebugString(root1), DebugString(root2))
}

func TestTransformInsertInsertSamePosition(t *testing.T) {
	a := NewInsertOperation(NewPosition("main", 0, 0), []Node{NewText("A", nil)}, 1)
	b := NewInsertOperation(NewPosition("main", 0, 0), []Node{NewText("B", nil)}, 1)

	assertConverged(t, paragraphDoc, a, b)

	// the strong side keeps the spot
	doc := paragraphDoc(t)
	bb := b.Clone()
	bb.SetBaseVersion(doc.Version())
	require.NoError(t, doc.ApplyOperation(bb))
	applyAll(t, doc, TransformOperation(a, b, true))
	assert.Equal(t, "ABfoobar", mainRoot(t, doc).Child(0).(*Element).Text())
}

func TestTransformInsertVersusRemove(t *testing.T) {
	// the insert lands inside the removed span and follows it out
	a := NewInsertOperation(NewPosition("main", 0, 3), []Node{NewText("XY", nil)}, 1)
	b := NewRemoveOperation(NewPosition("main", 0, 1), 4, 1)

	assertConverged(t, paragraphDoc, a, b)

	doc := paragraphDoc(t)
	bb := b.Clone()
	bb.SetBaseVersion(doc.Version())
	require.NoError(t, doc.ApplyOperation(bb))
	ops := TransformOperation(a, b, true)
	require.Len(t, ops, 1)
	ins := ops[0].(*InsertOperation)
	assert.Equal(t, GraveyardRootName, ins.Position.Root(), "content inserted into removed text follows it to the graveyard")
}

func TestTransformRemoveVersusInsert(t *testing.T) {
	// the removal expands over content inserted into its span
	a := NewRemoveOperation(NewPosition("main", 0, 1), 4, 1)
	b := NewInsertOperation(NewPosition("main", 0, 3), []Node{NewText("XY", nil)}, 1)

	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 1)
	rm := ops[0].(*RemoveOperation)
	assert.Equal(t, 6, rm.HowMany)

	assertConverged(t, paragraphDoc, a, b)
}

func TestTransformRemoveRemoveSameSpan(t *testing.T) {
	a := NewRemoveOperation(NewPosition("main", 0, 1), 3, 1)
	b := NewRemoveOperation(NewPosition("main", 0, 1), 3, 1)

	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 1)
	assert.Equal(t, OpNoOp, ops[0].Kind(), "removing what is already removed does nothing")

	assertConverged(t, paragraphDoc, a, b)
}

func TestTransformRemoveRemoveOverlap(t *testing.T) {
	a := NewRemoveOperation(NewPosition("main", 0, 0), 4, 1)
	b := NewRemoveOperation(NewPosition("main", 0, 2), 4, 1)

	assertConverged(t, paragraphDoc, a, b)
}

func TestTransformInsertVersusMove(t *testing.T) {
	makeDoc := func(t *testing.T) *Document {
		doc := paragraphDoc(t)
		op := NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, doc.Version())
		require.NoError(t, doc.ApplyOperation(op))
		return doc
	}
	a := NewInsertOperation(NewPosition("main", 0, 2), []Node{NewText("XY", nil)}, 2)
	b := NewMoveOperation(NewPosition("main", 0, 1), 4, NewPosition("main", 1, 0), 2)

	assertConverged(t, makeDoc, a, b)
}

func TestTransformMoveVersusRemoveDisjoint(t *testing.T) {
	makeDoc := func(t *testing.T) *Document {
		doc := paragraphDoc(t)
		op := NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, doc.Version())
		require.NoError(t, doc.ApplyOperation(op))
		return doc
	}
	a := NewMoveOperation(NewPosition("main", 0, 0), 2, NewPosition("main", 1, 0), 2)
	b := NewRemoveOperation(NewPosition("main", 0, 3), 2, 2)

	assertConverged(t, makeDoc, a, b)
}

func TestTransformMoveVersusRemoveOverlap(t *testing.T) {
	makeDoc := func(t *testing.T) *Document {
		doc := paragraphDoc(t)
		op := NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, doc.Version())
		require.NoError(t, doc.ApplyOperation(op))
		return doc
	}
	// the move wants "oob", the removal takes "oba"; only "o" survives
	a := NewMoveOperation(NewPosition("main", 0, 1), 3, NewPosition("main", 1, 0), 2)
	b := NewRemoveOperation(NewPosition("main", 0, 2), 3, 2)

	ops := TransformOperation(a, b, true)
	require.Len(t, ops, 1)
	mv := ops[0].(*MoveOperation)
	assert.Equal(t, 1, mv.HowMany, "the move shrinks to the surviving portion")
	assert.Equal(t, "main", mv.SourcePosition.Root(), "nothing comes back out of the graveyard")

	assertConverged(t, makeDoc, a, b)

	doc := makeDoc(t)
	bb := b.Clone()
	bb.SetBaseVersion(doc.Version())
	require.NoError(t, doc.ApplyOperation(bb))
	applyAll(t, doc, ops)
	root := mainRoot(t, doc)
	assert.Equal(t, "fr", root.Child(0).(*Element).Text())
	assert.Equal(t, "o", root.Child(1).(*Element).Text())
}

func TestTransformMoveInsideRemove(t *testing.T) {
	makeDoc := func(t *testing.T) *Document {
		doc := paragraphDoc(t)
		op := NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, doc.Version())
		require.NoError(t, doc.ApplyOperation(op))
		return doc
	}
	a := NewMoveOperation(NewPosition("main", 0, 2), 2, NewPosition("main", 1, 0), 2)
	b := NewRemoveOperation(NewPosition("main", 0, 1), 4, 2)

	ops := TransformOperation(a, b, true)
	require.Len(t, ops, 1)
	assert.Equal(t, OpNoOp, ops[0].Kind(), "moving content someone removed serves no intention")

	assertConverged(t, makeDoc, a, b)
}

func TestTransformRenameRename(t *testing.T) {
	a := NewRenameOperation(NewPosition("main", 0), "paragraph", "heading", 1)
	b := NewRenameOperation(NewPosition("main", 0), "paragraph", "quote", 1)

	// the weak side backs off
	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 1)
	assert.Equal(t, OpNoOp, ops[0].Kind())

	// the strong side wins, with its expectation updated
	ops = TransformOperation(a, b, true)
	require.Len(t, ops, 1)
	rn := ops[0].(*RenameOperation)
	assert.Equal(t, "quote", rn.OldName)
	assert.Equal(t, "heading", rn.NewName)

	assertConverged(t, paragraphDoc, a, b)
}

func TestTransformRenameFollowsRemovedElement(t *testing.T) {
	a := NewRenameOperation(NewPosition("main", 0), "paragraph", "heading", 1)
	b := NewRemoveOperation(NewPosition("main", 0), 1, 1)

	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 1)
	rn := ops[0].(*RenameOperation)
	assert.Equal(t, GraveyardRootName, rn.Position.Root(), "the rename follows the element into the graveyard")
}

func TestTransformAttributeVersusInsertSplits(t *testing.T) {
	a := NewAttributeOperation(NewFlatRange(NewPosition("main", 0, 0), 6), "bold", nil, true, 1)
	b := NewInsertOperation(NewPosition("main", 0, 3), []Node{NewText("XY", nil)}, 1)

	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 2, "the attribute range splits around the inserted content")

	assertConverged(t, paragraphDoc, a, b)
}

func TestTransformAttributeAttributeOverlap(t *testing.T) {
	a := NewAttributeOperation(NewFlatRange(NewPosition("main", 0, 0), 4), "bold", nil, true, 1)
	b := NewAttributeOperation(NewFlatRange(NewPosition("main", 0, 2), 4), "bold", nil, false, 1)

	assertConverged(t, paragraphDoc, a, b)

	// different keys never interact
	c := NewAttributeOperation(NewFlatRange(NewPosition("main", 0, 2), 4), "italic", nil, true, 1)
	ops := TransformOperation(a, c, false)
	require.Len(t, ops, 1)
	assert.Equal(t, OpAttribute, ops[0].Kind())
}

func TestTransformMarkerMarker(t *testing.T) {
	r1 := NewFlatRange(NewPosition("main", 0, 0), 2)
	r2 := NewFlatRange(NewPosition("main", 0, 3), 2)
	a := NewMarkerOperation("sel", nil, &r1, 1)
	b := NewMarkerOperation("sel", nil, &r2, 1)

	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 1)
	assert.Equal(t, OpNoOp, ops[0].Kind(), "the weak side leaves the marker where the other put it")

	ops = TransformOperation(a, b, true)
	require.Len(t, ops, 1)
	mk := ops[0].(*MarkerOperation)
	require.NotNil(t, mk.OldRange)
	assert.True(t, mk.OldRange.Start.IsEqual(r2.Start), "the strong side records what it overwrites")
}

func TestTransformMarkerShiftsWithInsert(t *testing.T) {
	r := NewFlatRange(NewPosition("main", 0, 3), 2)
	a := NewMarkerOperation("sel", nil, &r, 1)
	b := NewInsertOperation(NewPosition("main", 0, 0), []Node{NewText("XY", nil)}, 1)

	ops := TransformOperation(a, b, false)
	require.Len(t, ops, 1)
	mk := ops[0].(*MarkerOperation)
	assert.Equal(t, 5, mk.NewRange.Start.Offset())
	assert.Equal(t, 7, mk.NewRange.End.Offset())
}

func TestTransformDeltaSplitVersusSplitSamePosition(t *testing.T) {
	split := func(bv int) *Delta {
		d := NewDelta(DeltaSplit)
		d.AddOperation(NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, bv))
		d.AddOperation(NewMoveOperation(NewPosition("main", 0, 3), 3, NewPosition("main", 1, 0), bv+1))
		return d
	}
	a := split(1)
	b := split(1)

	got := TransformDelta(a, b, false)
	assert.Equal(t, DeltaNoOp, got.Kind(), "the same split done twice collapses to nothing")
	assert.Equal(t, a.Len(), got.Len(), "operation counts survive for version accounting")
	assert.Equal(t, 3, got.BaseVersion())
}

func TestTransformDeltaSplitVersusRemoveOfSplitElement(t *testing.T) {
	a := NewDelta(DeltaSplit)
	a.AddOperation(NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, 1))
	a.AddOperation(NewMoveOperation(NewPosition("main", 0, 3), 3, NewPosition("main", 1, 0), 2))

	b := NewDelta(DeltaRemove)
	b.AddOperation(NewRemoveOperation(NewPosition("main", 0), 1, 1))

	got := TransformDelta(a, b, false)
	assert.Equal(t, DeltaNoOp, got.Kind(), "splitting an element someone removed is pointless")
}

func TestTransformDeltaMergeVersusMergeSamePosition(t *testing.T) {
	merge := func() *Delta {
		d := NewDelta(DeltaMerge)
		d.AddOperation(NewMoveOperation(NewPosition("main", 1, 0), 3, NewPosition("main", 0, 3), 1))
		d.AddOperation(NewRemoveOperation(NewPosition("main", 1), 1, 2))
		return d
	}
	got := TransformDelta(merge(), merge(), false)
	assert.Equal(t, DeltaNoOp, got.Kind())
}

func TestTransformDeltaDefaultRenumbers(t *testing.T) {
	a := NewDelta(DeltaWeakInsert)
	a.AddOperation(NewInsertOperation(NewPosition("main", 0, 0), []Node{NewText("A", nil)}, 4))

	b := NewDelta(DeltaInsert)
	b.AddOperation(NewInsertOperation(NewPosition("main", 0, 0), []Node{NewText("B", nil)}, 4))

	got := TransformDelta(a, b, true)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 5, got.BaseVersion())

	// a weak insert never keeps the spot against a real insert
	ins := got.Operation(0).(*InsertOperation)
	assert.Equal(t, 1, ins.Position.Offset())
}

func TestTransformDeltaConvergence(t *testing.T) {
	// one side splits the paragraph, the other bolds part of the text
	split := NewDelta(DeltaSplit)
	split.AddOperation(NewInsertOperation(NewPosition("main", 1), []Node{NewElement("paragraph", nil)}, 1))
	split.AddOperation(NewMoveOperation(NewPosition("main", 0, 3), 3, NewPosition("main", 1, 0), 2))

	attr := NewDelta(DeltaAttribute)
	attr.AddOperation(NewAttributeOperation(NewFlatRange(NewPosition("main", 0, 2), 2), "bold", nil, true, 1))

	doc1 := paragraphDoc(t)
	applyDelta(t, doc1, attr.Clone())
	applyDelta(t, doc1, TransformDelta(split, attr, true))

	doc2 := paragraphDoc(t)
	applyDelta(t, doc2, split.Clone())
	applyDelta(t, doc2, TransformDelta(attr, split, false))

	assert.Equal(t, DebugString(mainRoot(t, doc1)), DebugString(mainRoot(t, doc2)))
}

// applyDelta renumbers a delta to the document version and applies its
// operations.
func applyDelta(t *testing.T, doc *Document, d *Delta) {
	t.Helper()
	d.SetBaseVersion(doc.Version())
	for _, op := range d.Operations() {
		require.NoError(t, doc.ApplyOperation(op))
	}
}
