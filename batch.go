package loom

import "fmt"

// Batch groups the deltas of one editing gesture, so a multi-delta
// change (a paste, a text replacement) can later be undone as a unit.
// Batch methods build deltas out of primitive operations and apply them
// to the document immediately.
type Batch struct {
	doc    *Document
	deltas []*Delta
}

// Batch starts a new batch on the document.
func (d *Document) Batch() *Batch {
	return &Batch{doc: d}
}

// Deltas returns the deltas applied through the batch so far.
func (b *Batch) Deltas() []*Delta {
	return append([]*Delta(nil), b.deltas...)
}

// apply wires the operations into a delta of the given kind, registers
// it with the batch, and applies the operations in order.
func (b *Batch) apply(kind DeltaKind, ops ...Operation) (*Delta, error) {
	d := NewDelta(kind)
	d.batch = b
	for _, op := range ops {
		d.AddOperation(op)
	}
	b.deltas = append(b.deltas, d)
	for _, op := range ops {
		if err := b.doc.ApplyOperation(op); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Insert places detached nodes at a position.
func (b *Batch) Insert(p Position, nodes ...Node) (*Delta, error) {
	return b.apply(DeltaInsert, NewInsertOperation(p, nodes, b.doc.Version()))
}

// InsertText places a text run at a position. Text insertions are weak:
// when rebased against a concurrent insert at the same spot, the other
// content wins the spot.
func (b *Batch) InsertText(p Position, text string, attrs Attributes) (*Delta, error) {
	return b.apply(DeltaWeakInsert, NewInsertOperation(p, []Node{NewText(text, attrs)}, b.doc.Version()))
}

// Remove detaches a flat range into the graveyard.
func (b *Batch) Remove(r Range) (*Delta, error) {
	if !r.IsFlat() {
		return nil, fmt.Errorf("%w: %s", ErrNotFlat, r)
	}
	return b.apply(DeltaRemove, NewRemoveOperation(r.Start, r.Width(), b.doc.Version()))
}

// Move relocates a flat range to a target position.
func (b *Batch) Move(r Range, target Position) (*Delta, error) {
	if !r.IsFlat() {
		return nil, fmt.Errorf("%w: %s", ErrNotFlat, r)
	}
	return b.apply(DeltaMove, NewMoveOperation(r.Start, r.Width(), target, b.doc.Version()))
}

// Rename changes the name of the element starting at p.
func (b *Batch) Rename(p Position, newName string) (*Delta, error) {
	el, err := b.doc.elementAt(p)
	if err != nil {
		return nil, err
	}
	return b.apply(DeltaRename, NewRenameOperation(p, el.Name(), newName, b.doc.Version()))
}

// SetAttribute sets one attribute over a range. The range is cut into
// runs of equal prior value, one operation per run, so the whole change
// reverses exactly. Runs already carrying the value are skipped.
func (b *Batch) SetAttribute(r Range, key string, value any) (*Delta, error) {
	items, err := itemsInRange(b.doc, r)
	if err != nil {
		return nil, err
	}
	type run struct {
		r   Range
		old any
	}
	var runs []run
	for _, n := range items {
		old, _ := n.Attr(key)
		if old == value {
			continue
		}
		start, err := PositionBefore(n)
		if err != nil {
			return nil, err
		}
		end := start.WithOffset(start.Offset() + n.OffsetSize())
		if len(runs) > 0 && runs[len(runs)-1].old == old && runs[len(runs)-1].r.End.IsEqual(start) {
			runs[len(runs)-1].r.End = end
			continue
		}
		runs = append(runs, run{r: NewRange(start, end), old: old})
	}
	v := b.doc.Version()
	ops := make([]Operation, len(runs))
	for i, ru := range runs {
		ops[i] = NewAttributeOperation(ru.r, key, ru.old, value, v+i)
	}
	return b.apply(DeltaAttribute, ops...)
}

// RemoveAttribute unsets one attribute over a range.
func (b *Batch) RemoveAttribute(r Range, key string) (*Delta, error) {
	return b.SetAttribute(r, key, nil)
}

// SetMarker attaches or moves a named marker.
func (b *Batch) SetMarker(name string, r Range) (*Delta, error) {
	var oldRange *Range
	if old, ok := b.doc.Marker(name); ok {
		oldRange = &old
	}
	return b.apply(DeltaMarker, NewMarkerOperation(name, oldRange, &r, b.doc.Version()))
}

// RemoveMarker detaches a named marker. Detaching a marker that does not
// exist is a no-op.
func (b *Batch) RemoveMarker(name string) (*Delta, error) {
	old, ok := b.doc.Marker(name)
	if !ok {
		return b.apply(DeltaNoOp, NewNoOperation(b.doc.Version()))
	}
	return b.apply(DeltaMarker, NewMarkerOperation(name, &old, nil, b.doc.Version()))
}

// Split cuts the element containing p in two at p. A fresh element with
// the same name and attributes is inserted right after the old one and
// the content after p moves into it. Content before p, the element name,
// and the attributes stay; splitting at the end leaves the new element
// empty. A root cannot be split.
func (b *Batch) Split(p Position) (*Delta, error) {
	if p.Depth() < 2 {
		return nil, ErrCannotSplitRoot
	}
	el, err := b.doc.parentAt(p)
	if err != nil {
		return nil, err
	}
	if el.IsRoot() {
		return nil, ErrCannotSplitRoot
	}
	elPos := p.ParentPosition()
	insertPos := elPos.WithOffset(elPos.Offset() + 1)
	clone := NewElement(el.Name(), el.AttrCopy())
	v := b.doc.Version()
	return b.apply(DeltaSplit,
		NewInsertOperation(insertPos, []Node{clone}, v),
		NewMoveOperation(p, el.MaxOffset()-p.Offset(), insertPos.child(0), v+1),
	)
}

// Merge joins the two elements around p into one: the content of the
// element after p moves to the end of the element before p, then the
// emptied element is removed. The position must sit exactly between two
// sibling elements.
func (b *Batch) Merge(p Position) (*Delta, error) {
	parent, err := b.doc.parentAt(p)
	if err != nil {
		return nil, err
	}
	off := p.Offset()
	if off == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCannotMergeHere, p)
	}
	beforeNode, beforeStart := parent.childAtOffset(off - 1)
	before, okB := beforeNode.(*Element)
	afterNode, afterStart := parent.childAtOffset(off)
	after, okA := afterNode.(*Element)
	if !okB || !okA || beforeStart != off-1 || afterStart != off {
		return nil, fmt.Errorf("%w: %s", ErrCannotMergeHere, p)
	}
	v := b.doc.Version()
	return b.apply(DeltaMerge,
		NewMoveOperation(p.child(0), after.MaxOffset(), p.WithOffset(off-1).child(before.MaxOffset()), v),
		NewRemoveOperation(p, 1, v+1),
	)
}
