package loom

import (
	"fmt"
	"sort"
)

// Root element name used for every root created through CreateRoot.
const rootElementName = "$root"

// GraveyardRootName is the distinguished root holding removed content.
// Remove operations detach node sequences into it, which is what lets a
// removal reverse into a move back out.
const GraveyardRootName = "$graveyard"

// Document owns a set of named root trees, the version counter, and the
// history of applied deltas. It is the sole mutator of the tree: every
// change goes through ApplyOperation. The model is single-threaded;
// callers are responsible for not interleaving calls.
type Document struct {
	version   int
	roots     map[string]*Element
	history   *History
	markers   map[string]Range
	changeFns []func(Operation)
}

// NewDocument creates an empty document holding only the graveyard root,
// at version 0.
func NewDocument() *Document {
	d := &Document{
		roots:   make(map[string]*Element),
		markers: make(map[string]Range),
	}
	d.history = newHistory()
	d.roots[GraveyardRootName] = &Element{name: rootElementName, rootName: GraveyardRootName}
	return d
}

// Version returns the current document version. It starts at 0 and grows
// by exactly one per successfully applied operation.
func (d *Document) Version() int {
	return d.version
}

// History returns the document's delta log.
func (d *Document) History() *History {
	return d.history
}

// CreateRoot registers a new empty root under the given name.
func (d *Document) CreateRoot(name string) (*Element, error) {
	if _, ok := d.roots[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrRootExists, name)
	}
	root := &Element{name: rootElementName, rootName: name}
	d.roots[name] = root
	return root, nil
}

// GetRoot returns the root registered under the given name.
func (d *Document) GetRoot(name string) (*Element, error) {
	root, ok := d.roots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRootNotFound, name)
	}
	return root, nil
}

// Graveyard returns the holding root for removed content.
func (d *Document) Graveyard() *Element {
	return d.roots[GraveyardRootName]
}

// RootNames returns the names of all user-created roots, sorted.
func (d *Document) RootNames() []string {
	names := make([]string, 0, len(d.roots)-1)
	for name := range d.roots {
		if name != GraveyardRootName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Marker returns the range a named marker currently spans.
func (d *Document) Marker(name string) (Range, bool) {
	r, ok := d.markers[name]
	return r, ok
}

// MarkerNames returns the names of all live markers, sorted.
func (d *Document) MarkerNames() []string {
	names := make([]string, 0, len(d.markers))
	for name := range d.markers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnChange registers a callback invoked synchronously after every
// successfully applied operation.
func (d *Document) OnChange(fn func(Operation)) {
	d.changeFns = append(d.changeFns, fn)
}

// ApplyOperation validates and applies one operation: the operation's
// base version must equal the current document version, and its target
// must resolve in the live tree. On success the version is incremented
// by one, the operation is reported to History, and change callbacks
// fire. On failure the tree is left unchanged.
func (d *Document) ApplyOperation(op Operation) error {
	if op.BaseVersion() != d.version {
		return fmt.Errorf("%w: operation %d, document %d", ErrVersionMismatch, op.BaseVersion(), d.version)
	}
	if err := op.apply(d); err != nil {
		return err
	}
	d.version++
	d.history.AddOperation(op)
	for _, fn := range d.changeFns {
		fn(op)
	}
	return nil
}

// parentAt resolves the element that directly contains the position.
// Every path entry but the last must land exactly on an element start.
func (d *Document) parentAt(p Position) (*Element, error) {
	if p.Depth() == 0 {
		return nil, ErrEmptyPath
	}
	cur, err := d.GetRoot(p.Root())
	if err != nil {
		return nil, err
	}
	path := p.path
	for _, off := range path[:len(path)-1] {
		child, start := cur.childAtOffset(off)
		el, ok := child.(*Element)
		if !ok || start != off {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, p)
		}
		cur = el
	}
	if off := p.Offset(); off < 0 || off > cur.MaxOffset() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, p)
	}
	return cur, nil
}

// elementAt resolves the element starting exactly at the position.
func (d *Document) elementAt(p Position) (*Element, error) {
	parent, err := d.parentAt(p)
	if err != nil {
		return nil, err
	}
	child, start := parent.childAtOffset(p.Offset())
	el, ok := child.(*Element)
	if !ok || start != p.Offset() {
		return nil, fmt.Errorf("%w: no element at %s", ErrInvalidTarget, p)
	}
	return el, nil
}

// moveRange relocates howMany offset units from src to target. target is
// interpreted in the pre-move tree. Validation happens before any
// mutation, so a failed move leaves the tree unchanged.
func (d *Document) moveRange(src Position, howMany int, target Position) error {
	srcParent, err := d.parentAt(src)
	if err != nil {
		return err
	}
	if src.Offset()+howMany > srcParent.MaxOffset() {
		return fmt.Errorf("%w: %s +%d", ErrInvalidTarget, src, howMany)
	}
	if _, err := d.parentAt(target); err != nil {
		return err
	}
	adjTarget, ok := target.TransformedByDeletion(src, howMany)
	if !ok || (howMany > 0 && NewFlatRange(src, howMany).ContainsPosition(target)) {
		return fmt.Errorf("%w: %s into %s", ErrMoveIntoMovedRange, src, target)
	}
	if howMany == 0 {
		return nil
	}
	nodes, err := srcParent.extractRange(src.Offset(), howMany)
	if err != nil {
		return err
	}
	tgtParent, err := d.parentAt(adjTarget)
	if err != nil {
		// put the content back; the tree must not end up half-mutated
		srcParent.insertAt(src.Offset(), nodes)
		return err
	}
	if err := tgtParent.insertAt(adjTarget.Offset(), nodes); err != nil {
		srcParent.insertAt(src.Offset(), nodes)
		return err
	}
	srcParent.normalize()
	tgtParent.normalize()
	return nil
}
