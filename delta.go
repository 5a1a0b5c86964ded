package loom

// DeltaKind classifies a delta by user intention. The kind drives two
// things: the kind of the reversed delta, and the special cases applied
// during delta transformation.
type DeltaKind int

const (
	DeltaInsert DeltaKind = iota
	DeltaWeakInsert
	DeltaRemove
	DeltaMove
	DeltaSplit
	DeltaMerge
	DeltaRename
	DeltaAttribute
	DeltaMarker
	DeltaMulti
	DeltaNoOp
)

// String returns the kind's name.
func (k DeltaKind) String() string {
	switch k {
	case DeltaInsert:
		return "insert"
	case DeltaWeakInsert:
		return "weakInsert"
	case DeltaRemove:
		return "remove"
	case DeltaMove:
		return "move"
	case DeltaSplit:
		return "split"
	case DeltaMerge:
		return "merge"
	case DeltaRename:
		return "rename"
	case DeltaAttribute:
		return "attribute"
	case DeltaMarker:
		return "marker"
	case DeltaMulti:
		return "multi"
	case DeltaNoOp:
		return "noop"
	}
	return "unknown"
}

// reversedDeltaKind maps each kind to the kind of its reversal. A split
// undone is a merge and the other way round; an insert undone is a
// remove; most kinds reverse into themselves.
var reversedDeltaKind = map[DeltaKind]DeltaKind{
	DeltaInsert:     DeltaRemove,
	DeltaWeakInsert: DeltaRemove,
	DeltaRemove:     DeltaInsert,
	DeltaMove:       DeltaMove,
	DeltaSplit:      DeltaMerge,
	DeltaMerge:      DeltaSplit,
	DeltaRename:     DeltaRename,
	DeltaAttribute:  DeltaAttribute,
	DeltaMarker:     DeltaMarker,
	DeltaMulti:      DeltaMulti,
	DeltaNoOp:       DeltaNoOp,
}

// Delta is an ordered group of operations forming one user intention: a
// split, a text replacement, an attribute change over a range. Its
// operations carry consecutive base versions; the delta is the unit that
// history records, transforms, and reverses.
type Delta struct {
	kind  DeltaKind
	ops   []Operation
	batch *Batch
}

// NewDelta creates an empty delta of the given kind.
func NewDelta(kind DeltaKind) *Delta {
	return &Delta{kind: kind}
}

// Kind returns the delta's intention tag.
func (d *Delta) Kind() DeltaKind {
	return d.kind
}

// Batch returns the batch the delta was created in, if any.
func (d *Delta) Batch() *Batch {
	return d.batch
}

// Len returns the number of operations.
func (d *Delta) Len() int {
	return len(d.ops)
}

// Operations returns a copy of the operation list.
func (d *Delta) Operations() []Operation {
	return append([]Operation(nil), d.ops...)
}

// Operation returns the i-th operation.
func (d *Delta) Operation(i int) Operation {
	return d.ops[i]
}

// CloneOperation returns an independent copy of the i-th operation,
// detached from the delta. Undo and redo use it to re-create inserted
// content deterministically without touching the recorded original.
func (d *Delta) CloneOperation(i int) Operation {
	return d.ops[i].Clone()
}

// AddOperation appends an operation and claims ownership of it.
func (d *Delta) AddOperation(op Operation) {
	op.setDelta(d)
	d.ops = append(d.ops, op)
}

// BaseVersion returns the base version of the first operation, or -1
// for an empty delta.
func (d *Delta) BaseVersion() int {
	if len(d.ops) == 0 {
		return -1
	}
	return d.ops[0].BaseVersion()
}

// SetBaseVersion renumbers the operations consecutively from v.
func (d *Delta) SetBaseVersion(v int) {
	for i, op := range d.ops {
		op.SetBaseVersion(v + i)
	}
}

// Position returns the characteristic position of the delta: the split
// point for a split, the merge point for a merge, otherwise the position
// of the first operation. Nil when no operation carries one.
func (d *Delta) Position() *Position {
	if len(d.ops) == 0 {
		return nil
	}
	if d.kind == DeltaSplit && len(d.ops) >= 2 {
		if mv, ok := d.ops[1].(*MoveOperation); ok {
			p := mv.SourcePosition
			return &p
		}
	}
	if d.kind == DeltaMerge {
		if mv, ok := d.ops[0].(*MoveOperation); ok {
			p := mv.SourcePosition.ParentPosition()
			return &p
		}
	}
	switch op := d.ops[0].(type) {
	case *InsertOperation:
		p := op.Position
		return &p
	case *MoveOperation:
		p := op.SourcePosition
		return &p
	case *RemoveOperation:
		p := op.SourcePosition
		return &p
	case *RenameOperation:
		p := op.Position
		return &p
	case *AttributeOperation:
		p := op.Range.Start
		return &p
	}
	return nil
}

// Clone returns an independent copy of the delta and its operations.
// The clone is not attached to any batch.
func (d *Delta) Clone() *Delta {
	c := NewDelta(d.kind)
	for _, op := range d.ops {
		c.AddOperation(op.Clone())
	}
	return c
}

// Reversed returns a delta undoing this one when applied right after
// it: the operations reversed individually, in reverse order, with base
// versions renumbered to follow this delta.
func (d *Delta) Reversed() *Delta {
	r := NewDelta(reversedDeltaKind[d.kind])
	for i := len(d.ops) - 1; i >= 0; i-- {
		r.AddOperation(d.ops[i].Reversed())
	}
	if len(d.ops) > 0 {
		r.SetBaseVersion(d.ops[len(d.ops)-1].BaseVersion() + 1)
	}
	return r
}
