package loom

import "fmt"

// OperationKind tags the closed set of operation variants.
type OperationKind int

const (
	OpInsert OperationKind = iota
	OpRemove
	OpMove
	OpRename
	OpAttribute
	OpMarker
	OpNoOp
)

// String returns the kind's name.
func (k OperationKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	case OpRename:
		return "rename"
	case OpAttribute:
		return "attribute"
	case OpMarker:
		return "marker"
	case OpNoOp:
		return "noop"
	}
	return "unknown"
}

// Operation is the smallest atomic, versioned tree mutation. Operations
// are applied only through Document.ApplyOperation, which enforces that
// BaseVersion matches the document version. An operation whose target no
// longer resolves fails the call; callers holding a stale operation must
// transform it first.
type Operation interface {
	// Kind returns the variant tag.
	Kind() OperationKind

	// BaseVersion returns the document version the operation is valid
	// against.
	BaseVersion() int

	// SetBaseVersion rebases the operation's version expectation.
	SetBaseVersion(v int)

	// Clone returns an independent copy with the same base version,
	// detached from any delta.
	Clone() Operation

	// Reversed returns an operation that undoes this one's effect when
	// applied immediately after it. Its base version is this one's plus
	// one.
	Reversed() Operation

	// OwningDelta returns the delta the operation belongs to, if any.
	OwningDelta() *Delta

	setDelta(d *Delta)
	apply(doc *Document) error
}

// operationBase carries the fields shared by every variant.
type operationBase struct {
	baseVersion int
	delta       *Delta
}

func (b *operationBase) BaseVersion() int      { return b.baseVersion }
func (b *operationBase) SetBaseVersion(v int)  { b.baseVersion = v }
func (b *operationBase) OwningDelta() *Delta   { return b.delta }
func (b *operationBase) setDelta(d *Delta)     { b.delta = d }

// InsertOperation inserts a node sequence at a position. The operation
// keeps ownership of its node list; the tree receives deep copies, so
// the operation stays reusable for cloning and reversal.
type InsertOperation struct {
	operationBase
	Position Position
	Nodes    []Node
}

// NewInsertOperation creates an insertion of the given detached nodes.
func NewInsertOperation(p Position, nodes []Node, baseVersion int) *InsertOperation {
	return &InsertOperation{
		operationBase: operationBase{baseVersion: baseVersion},
		Position:      p,
		Nodes:         nodes,
	}
}

// Kind returns OpInsert.
func (o *InsertOperation) Kind() OperationKind { return OpInsert }

// HowMany returns the total offset-unit size of the inserted content.
func (o *InsertOperation) HowMany() int {
	total := 0
	for _, n := range o.Nodes {
		total += n.OffsetSize()
	}
	return total
}

// Clone returns an independent copy, nodes included.
func (o *InsertOperation) Clone() Operation {
	return NewInsertOperation(o.Position, cloneNodes(o.Nodes), o.baseVersion)
}

// Reversed returns a removal of the inserted span.
func (o *InsertOperation) Reversed() Operation {
	return NewRemoveOperation(o.Position, o.HowMany(), o.baseVersion+1)
}

func (o *InsertOperation) apply(doc *Document) error {
	parent, err := doc.parentAt(o.Position)
	if err != nil {
		return err
	}
	if err := parent.insertAt(o.Position.Offset(), cloneNodes(o.Nodes)); err != nil {
		return err
	}
	parent.normalize()
	return nil
}

// MoveOperation relocates a contiguous sequence of howMany offset units
// from a source position to a target position. The target is expressed
// in the pre-move tree.
type MoveOperation struct {
	operationBase
	SourcePosition Position
	HowMany        int
	TargetPosition Position
}

// NewMoveOperation creates a move.
func NewMoveOperation(source Position, howMany int, target Position, baseVersion int) *MoveOperation {
	return &MoveOperation{
		operationBase:  operationBase{baseVersion: baseVersion},
		SourcePosition: source,
		HowMany:        howMany,
		TargetPosition: target,
	}
}

// Kind returns OpMove.
func (o *MoveOperation) Kind() OperationKind { return OpMove }

// MovedRangeStart returns where the moved content starts after the move.
func (o *MoveOperation) MovedRangeStart() Position {
	p, ok := o.TargetPosition.TransformedByDeletion(o.SourcePosition, o.HowMany)
	if !ok {
		return o.TargetPosition
	}
	return p
}

// Clone returns an independent copy.
func (o *MoveOperation) Clone() Operation {
	return NewMoveOperation(o.SourcePosition, o.HowMany, o.TargetPosition, o.baseVersion)
}

// Reversed returns the move back, adjusted for the shift the forward
// move caused.
func (o *MoveOperation) Reversed() Operation {
	back := o.SourcePosition.TransformedByInsertion(o.MovedRangeStart(), o.HowMany, true)
	return NewMoveOperation(o.MovedRangeStart(), o.HowMany, back, o.baseVersion+1)
}

func (o *MoveOperation) apply(doc *Document) error {
	return doc.moveRange(o.SourcePosition, o.HowMany, o.TargetPosition)
}

// RemoveOperation detaches a contiguous sequence of howMany offset units
// into the graveyard root. Removed content always lands at the front of
// the graveyard, which keeps the landing position independent of
// graveyard size.
type RemoveOperation struct {
	operationBase
	SourcePosition Position
	HowMany        int
}

// NewRemoveOperation creates a removal.
func NewRemoveOperation(source Position, howMany int, baseVersion int) *RemoveOperation {
	return &RemoveOperation{
		operationBase:  operationBase{baseVersion: baseVersion},
		SourcePosition: source,
		HowMany:        howMany,
	}
}

// Kind returns OpRemove.
func (o *RemoveOperation) Kind() OperationKind { return OpRemove }

// GraveyardPosition returns where the detached content lands.
func (o *RemoveOperation) GraveyardPosition() Position {
	return NewPosition(GraveyardRootName, 0)
}

// Clone returns an independent copy.
func (o *RemoveOperation) Clone() Operation {
	return NewRemoveOperation(o.SourcePosition, o.HowMany, o.baseVersion)
}

// Reversed returns a move reinserting the detached sequence from the
// graveyard back to the original position.
func (o *RemoveOperation) Reversed() Operation {
	return NewMoveOperation(o.GraveyardPosition(), o.HowMany, o.SourcePosition, o.baseVersion+1)
}

func (o *RemoveOperation) apply(doc *Document) error {
	return doc.moveRange(o.SourcePosition, o.HowMany, o.GraveyardPosition())
}

// RenameOperation changes the name of the element starting at Position.
type RenameOperation struct {
	operationBase
	Position Position
	OldName  string
	NewName  string
}

// NewRenameOperation creates a rename.
func NewRenameOperation(p Position, oldName, newName string, baseVersion int) *RenameOperation {
	return &RenameOperation{
		operationBase: operationBase{baseVersion: baseVersion},
		Position:      p,
		OldName:       oldName,
		NewName:       newName,
	}
}

// Kind returns OpRename.
func (o *RenameOperation) Kind() OperationKind { return OpRename }

// Clone returns an independent copy.
func (o *RenameOperation) Clone() Operation {
	return NewRenameOperation(o.Position, o.OldName, o.NewName, o.baseVersion)
}

// Reversed returns the rename back to the original name.
func (o *RenameOperation) Reversed() Operation {
	return NewRenameOperation(o.Position, o.NewName, o.OldName, o.baseVersion+1)
}

func (o *RenameOperation) apply(doc *Document) error {
	el, err := doc.elementAt(o.Position)
	if err != nil {
		return err
	}
	if el.Name() != o.OldName {
		return fmt.Errorf("%w: element at %s is %q, not %q", ErrInvalidTarget, o.Position, el.Name(), o.OldName)
	}
	el.name = o.NewName
	return nil
}

// AttributeOperation sets or unsets one attribute key over a range. A
// nil NewValue unsets the key; OldValue records the prior value for
// reversal and is not re-verified at application time.
type AttributeOperation struct {
	operationBase
	Range    Range
	Key      string
	OldValue any
	NewValue any
}

// NewAttributeOperation creates an attribute change over a range.
func NewAttributeOperation(r Range, key string, oldValue, newValue any, baseVersion int) *AttributeOperation {
	return &AttributeOperation{
		operationBase: operationBase{baseVersion: baseVersion},
		Range:         r,
		Key:           key,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
}

// Kind returns OpAttribute.
func (o *AttributeOperation) Kind() OperationKind { return OpAttribute }

// Clone returns an independent copy.
func (o *AttributeOperation) Clone() Operation {
	return NewAttributeOperation(o.Range, o.Key, o.OldValue, o.NewValue, o.baseVersion)
}

// Reversed returns the attribute change restoring the prior value.
func (o *AttributeOperation) Reversed() Operation {
	return NewAttributeOperation(o.Range, o.Key, o.NewValue, o.OldValue, o.baseVersion+1)
}

func (o *AttributeOperation) apply(doc *Document) error {
	items, err := itemsInRange(doc, o.Range)
	if err != nil {
		return err
	}
	for _, n := range items {
		setAttribute(n, o.Key, o.NewValue)
	}
	if parent, err := doc.parentAt(o.Range.Start); err == nil {
		parent.normalize()
	}
	if parent, err := doc.parentAt(o.Range.End); err == nil {
		parent.normalize()
	}
	return nil
}

// itemsInRange collects the nodes covered by a range, splitting text
// runs at the range boundaries so every returned node lies wholly
// inside it.
func itemsInRange(doc *Document, r Range) ([]Node, error) {
	if err := splitTextBoundary(doc, r.Start); err != nil {
		return nil, err
	}
	if err := splitTextBoundary(doc, r.End); err != nil {
		return nil, err
	}
	w, err := NewTreeWalker(doc, TreeWalkerOptions{Boundaries: &r, IgnoreElementEnd: true})
	if err != nil {
		return nil, err
	}
	var items []Node
	for {
		step, ok := w.Next()
		if !ok {
			break
		}
		items = append(items, step.Item)
	}
	return items, nil
}

// splitTextBoundary splits the text run the position falls inside, if
// any, so the position lands on a node boundary.
func splitTextBoundary(doc *Document, p Position) error {
	parent, err := doc.parentAt(p)
	if err != nil {
		return err
	}
	idx, inner := parent.indexAtOffset(p.Offset())
	if inner > 0 {
		parent.splitTextChild(idx, inner)
	}
	return nil
}

// setAttribute sets or unsets one attribute on a node.
func setAttribute(n Node, key string, value any) {
	attrs := n.attributes()
	if value == nil {
		delete(attrs, key)
		return
	}
	if attrs == nil {
		attrs = make(Attributes)
		n.setAttributes(attrs)
	}
	attrs[key] = value
}

// MarkerOperation attaches, moves, or detaches a named non-content
// annotation spanning a range. A nil NewRange detaches the marker; a nil
// OldRange records that it did not exist before.
type MarkerOperation struct {
	operationBase
	Name     string
	OldRange *Range
	NewRange *Range
}

// NewMarkerOperation creates a marker change.
func NewMarkerOperation(name string, oldRange, newRange *Range, baseVersion int) *MarkerOperation {
	return &MarkerOperation{
		operationBase: operationBase{baseVersion: baseVersion},
		Name:          name,
		OldRange:      cloneRangePtr(oldRange),
		NewRange:      cloneRangePtr(newRange),
	}
}

// Kind returns OpMarker.
func (o *MarkerOperation) Kind() OperationKind { return OpMarker }

// Clone returns an independent copy.
func (o *MarkerOperation) Clone() Operation {
	return NewMarkerOperation(o.Name, o.OldRange, o.NewRange, o.baseVersion)
}

// Reversed returns the marker change restoring the prior span, or the
// prior absence.
func (o *MarkerOperation) Reversed() Operation {
	return NewMarkerOperation(o.Name, o.NewRange, o.OldRange, o.baseVersion+1)
}

func (o *MarkerOperation) apply(doc *Document) error {
	if o.NewRange == nil {
		delete(doc.markers, o.Name)
		return nil
	}
	if _, err := doc.GetRoot(o.NewRange.Root()); err != nil {
		return err
	}
	doc.markers[o.Name] = *o.NewRange
	return nil
}

// NoOperation applies no tree change. It exists so transformation can
// degrade an operation whose target is gone while preserving operation
// counts and version bookkeeping.
type NoOperation struct {
	operationBase
}

// NewNoOperation creates a no-op.
func NewNoOperation(baseVersion int) *NoOperation {
	return &NoOperation{operationBase{baseVersion: baseVersion}}
}

// Kind returns OpNoOp.
func (o *NoOperation) Kind() OperationKind { return OpNoOp }

// Clone returns an independent copy.
func (o *NoOperation) Clone() Operation {
	return NewNoOperation(o.baseVersion)
}

// Reversed returns another no-op.
func (o *NoOperation) Reversed() Operation {
	return NewNoOperation(o.baseVersion + 1)
}

func (o *NoOperation) apply(*Document) error { return nil }

// cloneNodes deep-copies a node slice.
func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// cloneRangePtr copies an optional range.
func cloneRangePtr(r *Range) *Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
