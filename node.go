package loom

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Attributes is the attribute set carried by a node. Values must be
// comparable; they are compared with == during normalization.
type Attributes map[string]any

// clone returns an independent copy. A nil map clones to nil.
func (a Attributes) clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// equal reports whether two attribute sets hold the same entries.
// Empty and nil compare equal.
func (a Attributes) equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || w != v {
			return false
		}
	}
	return true
}

// Node is a piece of document content: either an *Element or a *Text.
// Children are owned exclusively by their parent; the parent pointer is
// a non-owning back-reference. Outside of operations applied through a
// Document, nodes must be treated as read-only.
type Node interface {
	// Parent returns the owning element, nil for roots and detached nodes.
	Parent() *Element

	// OffsetSize returns how many offset units the node occupies in its
	// parent: 1 for an element, one per character for a text run.
	OffsetSize() int

	// Attr returns the value of one attribute.
	Attr(key string) (any, bool)

	// AttrCopy returns a copy of the node's attribute set.
	AttrCopy() Attributes

	// Clone returns a detached deep copy of the node.
	Clone() Node

	attributes() Attributes
	setAttributes(a Attributes)
	setParent(p *Element)
}

// Text is a run of characters sharing a single attribute set. Adjacent
// runs with identical attributes may be merged by normalization; callers
// must not assume run boundaries persist across mutations.
type Text struct {
	parent *Element
	data   string
	attrs  Attributes
}

// NewText creates a detached text run.
func NewText(data string, attrs Attributes) *Text {
	return &Text{data: data, attrs: attrs.clone()}
}

// Data returns the run's character payload.
func (t *Text) Data() string {
	return t.data
}

// Parent returns the owning element.
func (t *Text) Parent() *Element {
	return t.parent
}

// OffsetSize returns the number of characters in the run.
func (t *Text) OffsetSize() int {
	return utf8.RuneCountInString(t.data)
}

// Attr returns the value of one attribute.
func (t *Text) Attr(key string) (any, bool) {
	v, ok := t.attrs[key]
	return v, ok
}

// AttrCopy returns a copy of the run's attribute set.
func (t *Text) AttrCopy() Attributes {
	return t.attrs.clone()
}

// Clone returns a detached copy of the run.
func (t *Text) Clone() Node {
	return NewText(t.data, t.attrs)
}

func (t *Text) attributes() Attributes     { return t.attrs }
func (t *Text) setAttributes(a Attributes) { t.attrs = a }
func (t *Text) setParent(p *Element)       { t.parent = p }

// Element is a named node with an attribute map and an ordered child
// sequence. A root is a distinguished element with no parent, created
// through Document.CreateRoot.
type Element struct {
	parent   *Element
	name     string
	attrs    Attributes
	children []Node
	rootName string // set only on roots
}

// NewElement creates a detached element owning the given children.
func NewElement(name string, attrs Attributes, children ...Node) *Element {
	e := &Element{name: name, attrs: attrs.clone()}
	for _, c := range children {
		c.setParent(e)
		e.children = append(e.children, c)
	}
	return e
}

// Name returns the element name.
func (e *Element) Name() string {
	return e.name
}

// Parent returns the owning element, nil for roots.
func (e *Element) Parent() *Element {
	return e.parent
}

// IsRoot reports whether the element is a document root.
func (e *Element) IsRoot() bool {
	return e.rootName != ""
}

// RootName returns the name the element is registered under as a root,
// or "" when it is not one.
func (e *Element) RootName() string {
	return e.rootName
}

// OffsetSize returns 1: an element occupies one offset unit in its parent.
func (e *Element) OffsetSize() int {
	return 1
}

// ChildCount returns the number of child nodes.
func (e *Element) ChildCount() int {
	return len(e.children)
}

// Child returns the i-th child node.
func (e *Element) Child(i int) Node {
	return e.children[i]
}

// Children returns a copy of the child slice.
func (e *Element) Children() []Node {
	return append([]Node(nil), e.children...)
}

// MaxOffset returns the total offset-unit size of the element's content.
func (e *Element) MaxOffset() int {
	total := 0
	for _, c := range e.children {
		total += c.OffsetSize()
	}
	return total
}

// Text returns the concatenated data of the element's direct text
// children.
func (e *Element) Text() string {
	var sb strings.Builder
	for _, c := range e.children {
		if t, ok := c.(*Text); ok {
			sb.WriteString(t.data)
		}
	}
	return sb.String()
}

// Attr returns the value of one attribute.
func (e *Element) Attr(key string) (any, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

// AttrCopy returns a copy of the element's attribute set.
func (e *Element) AttrCopy() Attributes {
	return e.attrs.clone()
}

// Clone returns a detached deep copy of the element and its subtree.
func (e *Element) Clone() Node {
	children := make([]Node, len(e.children))
	for i, c := range e.children {
		children[i] = c.Clone()
	}
	return NewElement(e.name, e.attrs, children...)
}

func (e *Element) attributes() Attributes     { return e.attrs }
func (e *Element) setAttributes(a Attributes) { e.attrs = a }
func (e *Element) setParent(p *Element)       { e.parent = p }

// childAtOffset returns the child containing the given offset together
// with the child's starting offset. Returns nil when offset equals
// MaxOffset.
func (e *Element) childAtOffset(offset int) (Node, int) {
	start := 0
	for _, c := range e.children {
		size := c.OffsetSize()
		if offset < start+size {
			return c, start
		}
		start += size
	}
	return nil, start
}

// indexAtOffset locates the child boundary for an offset: the index of
// the child starting at or containing the offset, and the inner
// character offset when the position falls inside a text run.
func (e *Element) indexAtOffset(offset int) (index, inner int) {
	start := 0
	for i, c := range e.children {
		size := c.OffsetSize()
		if offset < start+size {
			return i, offset - start
		}
		start += size
	}
	return len(e.children), 0
}

// startOffsetOf returns the offset at which the given child starts, or
// -1 when the node is not a child of e.
func (e *Element) startOffsetOf(n Node) int {
	start := 0
	for _, c := range e.children {
		if c == n {
			return start
		}
		start += c.OffsetSize()
	}
	return -1
}

// insertAt splices detached nodes in at the given offset, splitting a
// text run when the offset falls inside one.
func (e *Element) insertAt(offset int, nodes []Node) error {
	if offset < 0 || offset > e.MaxOffset() {
		return fmt.Errorf("%w: insert offset %d in %q of size %d", ErrInvalidTarget, offset, e.name, e.MaxOffset())
	}
	idx, inner := e.indexAtOffset(offset)
	if inner > 0 {
		e.splitTextChild(idx, inner)
		idx++
	}
	for _, n := range nodes {
		n.setParent(e)
	}
	e.children = append(e.children[:idx], append(append([]Node(nil), nodes...), e.children[idx:]...)...)
	return nil
}

// extractRange detaches howMany offset units starting at offset,
// splitting text runs at both edges, and returns the detached nodes.
func (e *Element) extractRange(offset, howMany int) ([]Node, error) {
	if offset < 0 || howMany < 0 || offset+howMany > e.MaxOffset() {
		return nil, fmt.Errorf("%w: range %d+%d in %q of size %d", ErrInvalidTarget, offset, howMany, e.name, e.MaxOffset())
	}
	if howMany == 0 {
		return nil, nil
	}
	first, inner := e.indexAtOffset(offset)
	if inner > 0 {
		e.splitTextChild(first, inner)
		first++
	}
	last, inner := e.indexAtOffset(offset + howMany)
	if inner > 0 {
		e.splitTextChild(last, inner)
		last++
	}
	detached := append([]Node(nil), e.children[first:last]...)
	for _, n := range detached {
		n.setParent(nil)
	}
	e.children = append(e.children[:first], e.children[last:]...)
	return detached, nil
}

// splitTextChild replaces the text child at index i with two runs split
// at the inner character offset.
func (e *Element) splitTextChild(i, inner int) {
	t := e.children[i].(*Text)
	runes := []rune(t.data)
	left := NewText(string(runes[:inner]), t.attrs)
	right := NewText(string(runes[inner:]), t.attrs)
	left.setParent(e)
	right.setParent(e)
	t.setParent(nil)
	e.children = append(e.children[:i], append([]Node{left, right}, e.children[i+1:]...)...)
}

// normalize merges adjacent text runs carrying identical attribute sets.
// Merging never changes offsets, so positions stay valid across it.
func (e *Element) normalize() {
	for i := 0; i+1 < len(e.children); {
		a, okA := e.children[i].(*Text)
		b, okB := e.children[i+1].(*Text)
		if okA && okB && a.attrs.equal(b.attrs) {
			a.data += b.data
			b.setParent(nil)
			e.children = append(e.children[:i+1], e.children[i+2:]...)
			continue
		}
		i++
	}
}

// PositionBefore returns the position immediately before the node.
// Fails for detached nodes and for roots, which have no position.
func PositionBefore(n Node) (Position, error) {
	var path []int
	cur := n
	for {
		p := cur.Parent()
		if p == nil {
			el, ok := cur.(*Element)
			if !ok || el.rootName == "" || cur == n {
				return Position{}, fmt.Errorf("%w: node is detached or a root", ErrInvalidTarget)
			}
			for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
				path[l], path[r] = path[r], path[l]
			}
			return NewPosition(el.rootName, path...), nil
		}
		off := p.startOffsetOf(cur)
		if off < 0 {
			return Position{}, fmt.Errorf("%w: broken parent link", ErrInvalidTarget)
		}
		path = append(path, off)
		cur = p
	}
}

// PositionAfter returns the position immediately after the node.
func PositionAfter(n Node) (Position, error) {
	p, err := PositionBefore(n)
	if err != nil {
		return Position{}, err
	}
	return p.WithOffset(p.Offset() + n.OffsetSize()), nil
}

// DebugString renders a subtree in a compact single-line form, used by
// tests and the repl: elements as <name k=v>…</name>, text runs as
// 'data'{k=v}.
func DebugString(n Node) string {
	var sb strings.Builder
	debugNode(&sb, n)
	return sb.String()
}

func debugNode(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Text:
		fmt.Fprintf(sb, "'%s'", v.data)
		debugAttrs(sb, v.attrs)
	case *Element:
		fmt.Fprintf(sb, "<%s", v.name)
		if len(v.attrs) > 0 {
			sb.WriteString(" ")
			debugAttrs(sb, v.attrs)
		}
		sb.WriteString(">")
		for _, c := range v.children {
			debugNode(sb, c)
		}
		fmt.Fprintf(sb, "</%s>", v.name)
	}
}

func debugAttrs(sb *strings.Builder, a Attributes) {
	if len(a) == 0 {
		return
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, a[k])
	}
	fmt.Fprintf(sb, "{%s}", strings.Join(parts, " "))
}
