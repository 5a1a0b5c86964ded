package loom

// Operation and delta transformation. Given two operations A and B made
// against the same document state, transform(A, B, isStrong) rewrites A
// so it can be applied after B while keeping A's intention. Applying
// B then transform(A, B, true) yields the same tree as applying A then
// transform(B, A, false); isStrong breaks the ties where both sides
// compete for the same spot, and exactly one of the two calls may pass
// true.

// opPair keys the transformation table by the kinds of both operations.
type opPair struct {
	a, b OperationKind
}

type opTransform func(a, b Operation, isStrong bool) []Operation

var opTransformTable map[opPair]opTransform

func init() {
	opTransformTable = map[opPair]opTransform{
		{OpInsert, OpInsert}: transformInsertByInsert,
		{OpInsert, OpMove}:   transformInsertByMove,
		{OpInsert, OpRemove}: transformInsertByMove,

		{OpMove, OpInsert}:   transformMoveByInsert,
		{OpRemove, OpInsert}: transformMoveByInsert,
		{OpMove, OpMove}:     transformMoveByMove,
		{OpMove, OpRemove}:   transformMoveByMove,
		{OpRemove, OpMove}:   transformMoveByMove,
		{OpRemove, OpRemove}: transformMoveByMove,

		{OpRename, OpInsert}: transformRenameByInsert,
		{OpRename, OpMove}:   transformRenameByMove,
		{OpRename, OpRemove}: transformRenameByMove,
		{OpRename, OpRename}: transformRenameByRename,

		{OpAttribute, OpInsert}:    transformAttributeByInsert,
		{OpAttribute, OpMove}:      transformAttributeByMove,
		{OpAttribute, OpRemove}:    transformAttributeByMove,
		{OpAttribute, OpAttribute}: transformAttributeByAttribute,

		{OpMarker, OpInsert}: transformMarkerByInsert,
		{OpMarker, OpMove}:   transformMarkerByMove,
		{OpMarker, OpRemove}: transformMarkerByMove,
		{OpMarker, OpMarker}: transformMarkerByMarker,
	}
}

// TransformOperation rewrites operation a to apply after operation b.
// Both must share a base version; the results carry no meaningful base
// versions, callers renumber them. The result always holds at least one
// operation; an operation whose target is consumed by b degrades to a
// NoOperation so operation counts stay predictable.
func TransformOperation(a, b Operation, isStrong bool) []Operation {
	if a.Kind() == OpNoOp {
		return []Operation{a.Clone()}
	}
	if fn, ok := opTransformTable[opPair{a.Kind(), b.Kind()}]; ok {
		return fn(a, b, isStrong)
	}
	return []Operation{a.Clone()}
}

// moveParams views a move or remove operation through a common lens:
// remove is a move whose target is the front of the graveyard.
func moveParams(op Operation) (src Position, howMany int, tgt Position) {
	switch o := op.(type) {
	case *MoveOperation:
		return o.SourcePosition, o.HowMany, o.TargetPosition
	case *RemoveOperation:
		return o.SourcePosition, o.HowMany, o.GraveyardPosition()
	}
	panic("loom: not a move-like operation")
}

func transformInsertByInsert(a, b Operation, isStrong bool) []Operation {
	ia := a.(*InsertOperation)
	ib := b.(*InsertOperation)
	out := ia.Clone().(*InsertOperation)
	out.Position = ia.Position.TransformedByInsertion(ib.Position, ib.HowMany(), !isStrong)
	return []Operation{out}
}

func transformInsertByMove(a, b Operation, isStrong bool) []Operation {
	ia := a.(*InsertOperation)
	src, howMany, tgt := moveParams(b)
	out := ia.Clone().(*InsertOperation)
	out.Position = ia.Position.TransformedByMove(src, tgt, howMany, !isStrong)
	return []Operation{out}
}

func transformMoveByInsert(a, b Operation, _ bool) []Operation {
	src, howMany, tgt := moveParams(a)
	ib := b.(*InsertOperation)
	// The moved span expands over content inserted strictly inside it,
	// matching the insert side which follows such content into the span's
	// destination.
	ranges := NewFlatRange(src, howMany).TransformedByInsertion(ib.Position, ib.HowMany(), false)
	newTarget := tgt.TransformedByInsertion(ib.Position, ib.HowMany(), false)
	return makeMoveLikeOps(a, ranges, newTarget)
}

func transformMoveByMove(a, b Operation, isStrong bool) []Operation {
	aSrc, aHowMany, aTgt := moveParams(a)
	bSrc, bHowMany, bTgt := moveParams(b)

	rangeA := NewFlatRange(aSrc, aHowMany)
	rangeB := NewFlatRange(bSrc, bHowMany)

	newTarget := aTgt.TransformedByMove(bSrc, bTgt, bHowMany, !isStrong)

	if b.Kind() == OpRemove {
		// Removed content is out of reach: a gets clipped to the surviving
		// portion and degrades to a no-op when nothing survives. Following
		// content to its destination is reserved for genuine moves.
		clipped, ok := rangeA.TransformedByDeletion(bSrc, bHowMany)
		if !ok || clipped.Width() <= 0 {
			return []Operation{NewNoOperation(a.BaseVersion())}
		}
		return makeMoveLikeOps(a, []Range{clipped}, newTarget)
	}

	if rangeB.ContainsRange(rangeA) && rangeB.Root() == rangeA.Root() {
		// b already moved everything a wanted to move; a follows it.
		adjBTarget, ok := bTgt.TransformedByDeletion(bSrc, bHowMany)
		if !ok {
			adjBTarget = bTgt
		}
		followed := Range{
			Start: rangeA.Start.combined(bSrc, adjBTarget),
			End:   rangeA.End.combined(bSrc, adjBTarget),
		}
		return makeMoveLikeOps(a, []Range{followed}, newTarget)
	}

	ranges := rangeA.TransformedByMove(bSrc, bHowMany, bTgt)
	if len(ranges) == 0 {
		return []Operation{NewNoOperation(a.BaseVersion())}
	}
	return makeMoveLikeOps(a, ranges, newTarget)
}

// makeMoveLikeOps turns the transformed source ranges of a move-like
// operation into a sequence of concrete operations all delivering their
// content to target, in order. Pieces are sequentialized: each piece's
// source and the running target account for the pieces moved before it.
func makeMoveLikeOps(a Operation, ranges []Range, target Position) []Operation {
	pieces := make([]Range, len(ranges))
	copy(pieces, ranges)
	tgt := target
	out := make([]Operation, 0, len(pieces))
	graveyard := NewPosition(GraveyardRootName, 0)
	for i, r := range pieces {
		width := r.Width()
		if width <= 0 {
			out = append(out, NewNoOperation(a.BaseVersion()))
			continue
		}
		if a.Kind() == OpRemove && len(pieces) == 1 && tgt.IsEqual(graveyard) {
			out = append(out, NewRemoveOperation(r.Start, width, a.BaseVersion()))
			break
		}
		out = append(out, NewMoveOperation(r.Start, width, tgt, a.BaseVersion()))
		landing, ok := tgt.TransformedByDeletion(r.Start, width)
		if !ok {
			landing = tgt
		}
		for j := i + 1; j < len(pieces); j++ {
			// a later piece sitting exactly at the landing point gets
			// pushed back by the content just delivered there
			pieces[j].Start = pieces[j].Start.TransformedByMove(r.Start, tgt, width, true)
			pieces[j].End = pieces[j].End.TransformedByMove(r.Start, tgt, width, true)
		}
		// subsequent pieces land after the one just moved
		tgt = landing.TransformedByInsertion(landing, width, true)
	}
	if len(out) == 0 {
		out = append(out, NewNoOperation(a.BaseVersion()))
	}
	return out
}

func transformRenameByInsert(a, b Operation, _ bool) []Operation {
	ra := a.(*RenameOperation)
	ib := b.(*InsertOperation)
	out := ra.Clone().(*RenameOperation)
	out.Position = ra.Position.TransformedByInsertion(ib.Position, ib.HowMany(), true)
	return []Operation{out}
}

func transformRenameByMove(a, b Operation, _ bool) []Operation {
	ra := a.(*RenameOperation)
	src, howMany, tgt := moveParams(b)
	out := ra.Clone().(*RenameOperation)
	// A renamed element that was removed still gets renamed, in the
	// graveyard; reversing the removal then restores the new name.
	out.Position = ra.Position.TransformedByMove(src, tgt, howMany, true)
	return []Operation{out}
}

func transformRenameByRename(a, b Operation, isStrong bool) []Operation {
	ra := a.(*RenameOperation)
	rb := b.(*RenameOperation)
	if !ra.Position.IsEqual(rb.Position) {
		return []Operation{ra.Clone()}
	}
	if !isStrong {
		return []Operation{NewNoOperation(ra.BaseVersion())}
	}
	out := ra.Clone().(*RenameOperation)
	out.OldName = rb.NewName
	return []Operation{out}
}

func transformAttributeByInsert(a, b Operation, _ bool) []Operation {
	aa := a.(*AttributeOperation)
	ib := b.(*InsertOperation)
	// Inserted content keeps its own attributes, so the range splits
	// around it instead of expanding over it.
	ranges := aa.Range.TransformedByInsertion(ib.Position, ib.HowMany(), true)
	return attributeOpsForRanges(aa, ranges, aa.OldValue)
}

func transformAttributeByMove(a, b Operation, _ bool) []Operation {
	aa := a.(*AttributeOperation)
	src, howMany, tgt := moveParams(b)
	ranges := aa.Range.TransformedByMove(src, howMany, tgt)
	return attributeOpsForRanges(aa, ranges, aa.OldValue)
}

func transformAttributeByAttribute(a, b Operation, isStrong bool) []Operation {
	aa := a.(*AttributeOperation)
	ab := b.(*AttributeOperation)
	if aa.Key != ab.Key || !aa.Range.IsIntersecting(ab.Range) {
		return []Operation{aa.Clone()}
	}
	var out []Operation
	for _, r := range aa.Range.Difference(ab.Range) {
		out = append(out, NewAttributeOperation(r, aa.Key, aa.OldValue, aa.NewValue, aa.BaseVersion()))
	}
	if isStrong {
		// a applies on top of b inside the overlap, so the prior value
		// there is what b just set.
		if common, ok := aa.Range.Intersection(ab.Range); ok {
			out = append(out, NewAttributeOperation(common, aa.Key, ab.NewValue, aa.NewValue, aa.BaseVersion()))
		}
	}
	if len(out) == 0 {
		out = append(out, NewNoOperation(aa.BaseVersion()))
	}
	return out
}

// attributeOpsForRanges rebuilds an attribute operation over each of the
// transformed ranges.
func attributeOpsForRanges(a *AttributeOperation, ranges []Range, oldValue any) []Operation {
	var out []Operation
	for _, r := range ranges {
		if r.IsCollapsed() {
			continue
		}
		out = append(out, NewAttributeOperation(r, a.Key, oldValue, a.NewValue, a.BaseVersion()))
	}
	if len(out) == 0 {
		out = append(out, NewNoOperation(a.BaseVersion()))
	}
	return out
}

func transformMarkerByInsert(a, b Operation, _ bool) []Operation {
	ma := a.(*MarkerOperation)
	ib := b.(*InsertOperation)
	out := ma.Clone().(*MarkerOperation)
	out.OldRange = markerRangeByInsertion(ma.OldRange, ib.Position, ib.HowMany())
	out.NewRange = markerRangeByInsertion(ma.NewRange, ib.Position, ib.HowMany())
	return []Operation{out}
}

func transformMarkerByMove(a, b Operation, _ bool) []Operation {
	ma := a.(*MarkerOperation)
	src, howMany, tgt := moveParams(b)
	out := ma.Clone().(*MarkerOperation)
	out.OldRange = markerRangeByMove(ma.OldRange, src, howMany, tgt)
	out.NewRange = markerRangeByMove(ma.NewRange, src, howMany, tgt)
	return []Operation{out}
}

func transformMarkerByMarker(a, b Operation, isStrong bool) []Operation {
	ma := a.(*MarkerOperation)
	mb := b.(*MarkerOperation)
	if ma.Name != mb.Name {
		return []Operation{ma.Clone()}
	}
	if !isStrong {
		return []Operation{NewNoOperation(ma.BaseVersion())}
	}
	out := ma.Clone().(*MarkerOperation)
	out.OldRange = cloneRangePtr(mb.NewRange)
	return []Operation{out}
}

// markerRangeByInsertion adjusts an optional marker range for an
// insertion. Content inserted exactly at a marker edge stays outside
// the marker.
func markerRangeByInsertion(r *Range, at Position, howMany int) *Range {
	if r == nil {
		return nil
	}
	return &Range{
		Start: r.Start.TransformedByInsertion(at, howMany, false),
		End:   r.End.TransformedByInsertion(at, howMany, false),
	}
}

// markerRangeByMove adjusts an optional marker range for a move; a
// marker wholly inside moved content follows it.
func markerRangeByMove(r *Range, src Position, howMany int, tgt Position) *Range {
	if r == nil {
		return nil
	}
	return &Range{
		Start: r.Start.TransformedByMove(src, tgt, howMany, false),
		End:   r.End.TransformedByMove(src, tgt, howMany, false),
	}
}

// transformOpsByOp rewrites the operation sequence A to apply after b.
// While walking A, b itself is re-expressed after each original a with
// the complementary strength, so later operations of A meet the b they
// would actually observe.
func transformOpsByOp(opsA []Operation, b Operation, isStrong bool) []Operation {
	bSet := []Operation{b}
	var out []Operation
	for _, a := range opsA {
		aSet := []Operation{a}
		for _, bo := range bSet {
			var next []Operation
			for _, ao := range aSet {
				next = append(next, TransformOperation(ao, bo, isStrong)...)
			}
			aSet = next
		}
		var nextB []Operation
		for _, bo := range bSet {
			nextB = append(nextB, TransformOperation(bo, a, !isStrong)...)
		}
		bSet = nextB
		out = append(out, aSet...)
	}
	return out
}

// transformOpsByOps rewrites the operation sequence A to apply after the
// whole sequence B.
func transformOpsByOps(opsA, opsB []Operation, isStrong bool) []Operation {
	out := opsA
	for _, b := range opsB {
		out = transformOpsByOp(out, b, isStrong)
	}
	return out
}

// TransformDelta rewrites delta a so it applies after delta b. Both
// deltas must share a base version. The result is renumbered to follow
// b. A handful of intention-level special cases take precedence over the
// operation-by-operation default: competing structure changes at the
// same spot collapse to no-ops instead of producing double splits or
// merges.
func TransformDelta(a, b *Delta, isStrong bool) *Delta {
	switch {
	case a.kind == DeltaInsert && b.kind == DeltaWeakInsert:
		isStrong = true
	case a.kind == DeltaWeakInsert && b.kind == DeltaInsert:
		isStrong = false
	}

	if special := transformDeltaSpecial(a, b); special != nil {
		special.SetBaseVersion(b.BaseVersion() + b.Len())
		return special
	}

	out := NewDelta(a.kind)
	src := a.Clone()
	for _, op := range transformOpsByOps(src.ops, b.ops, isStrong) {
		out.AddOperation(op)
	}
	out.SetBaseVersion(b.BaseVersion() + b.Len())
	return out
}

// transformDeltaSpecial handles the intention-level cases; it returns
// nil when the default operation transformation should run.
func transformDeltaSpecial(a, b *Delta) *Delta {
	switch {
	case a.kind == DeltaSplit && b.kind == DeltaRemove:
		// Splitting an element someone else removed serves no intention.
		if p := a.Position(); p != nil && p.Depth() >= 2 {
			elementPos := p.ParentPosition()
			if removedRangeCovers(b, elementPos) {
				return noOpDeltaLike(a)
			}
		}
	case a.kind == DeltaSplit && b.kind == DeltaSplit:
		if samePosition(a, b) {
			return noOpDeltaLike(a)
		}
	case a.kind == DeltaMerge && b.kind == DeltaMerge:
		if samePosition(a, b) {
			return noOpDeltaLike(a)
		}
	case a.kind == DeltaMerge && (b.kind == DeltaInsert || b.kind == DeltaWeakInsert):
		// Content inserted into the element being merged away must ride
		// along into the surviving element, so the merge's move widens
		// over it.
		if mv, ok := a.ops[0].(*MoveOperation); ok && len(b.ops) == 1 {
			if ib, ok := b.ops[0].(*InsertOperation); ok && insertsDirectlyInto(ib.Position, mv.SourcePosition) {
				out := a.Clone()
				out.ops[0].(*MoveOperation).HowMany += ib.HowMany()
				return out
			}
		}
	case (a.kind == DeltaInsert || a.kind == DeltaWeakInsert) && b.kind == DeltaMerge:
		// The mirror image: an insert aimed into a merged-away element
		// lands at the matching offset inside the surviving element.
		if ia, ok := a.ops[0].(*InsertOperation); ok && len(a.ops) == 1 {
			if mv, ok := b.ops[0].(*MoveOperation); ok && insertsDirectlyInto(ia.Position, mv.SourcePosition) {
				out := a.Clone()
				iop := out.ops[0].(*InsertOperation)
				iop.Position = mv.TargetPosition.WithOffset(mv.TargetPosition.Offset() + ia.Position.Offset())
				return out
			}
		}
	}
	return nil
}

// insertsDirectlyInto reports whether p addresses a direct child slot of
// the element containing moveSource.
func insertsDirectlyInto(p, moveSource Position) bool {
	if moveSource.Depth() < 2 {
		return false
	}
	elPos := moveSource.ParentPosition()
	return p.Root() == elPos.Root() &&
		p.Depth() == elPos.Depth()+1 &&
		hasPathPrefix(p.path, elPos.path)
}

// removedRangeCovers reports whether any remove operation of the delta
// detaches the node starting at p.
func removedRangeCovers(b *Delta, p Position) bool {
	for _, op := range b.ops {
		rm, ok := op.(*RemoveOperation)
		if !ok {
			continue
		}
		r := NewFlatRange(rm.SourcePosition, rm.HowMany)
		if p.Root() == r.Root() && !p.IsBefore(r.Start) && p.IsBefore(r.End) {
			return true
		}
	}
	return false
}

// samePosition reports whether both deltas anchor at the same position.
func samePosition(a, b *Delta) bool {
	pa, pb := a.Position(), b.Position()
	return pa != nil && pb != nil && pa.IsEqual(*pb)
}

// noOpDeltaLike returns a no-op delta carrying as many operations as the
// original, so version accounting stays aligned.
func noOpDeltaLike(a *Delta) *Delta {
	d := NewDelta(DeltaNoOp)
	for range a.ops {
		d.AddOperation(NewNoOperation(0))
	}
	return d
}
