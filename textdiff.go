package loom

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ReplaceText rewrites the direct text content of the element at p to
// newText with a minimal edit script instead of a wholesale swap:
// untouched characters keep their nodes and attributes, and concurrent
// edits rebase against small inserts and removes rather than against a
// full replacement. Inserted runs take the attributes of the character
// to their left. The whole script forms one delta.
//
// The element must hold text children only. A non-text child occupies an
// offset unit the diff cannot see, so mixed content is rejected rather
// than edited in the wrong place.
func (b *Batch) ReplaceText(p Position, newText string) (*Delta, error) {
	el, err := b.doc.elementAt(p)
	if err != nil {
		return nil, err
	}
	for i := 0; i < el.ChildCount(); i++ {
		if _, ok := el.Child(i).(*Text); !ok {
			return nil, fmt.Errorf("%w: cannot replace text of %q holding non-text children", ErrInvalidTarget, el.Name())
		}
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(el.Text(), newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	d := NewDelta(DeltaMulti)
	d.batch = b
	b.deltas = append(b.deltas, d)

	offset := 0
	for _, diff := range diffs {
		n := len([]rune(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			offset += n
		case diffmatchpatch.DiffDelete:
			op := NewRemoveOperation(p.child(offset), n, b.doc.Version())
			d.AddOperation(op)
			if err := b.doc.ApplyOperation(op); err != nil {
				return nil, err
			}
		case diffmatchpatch.DiffInsert:
			text := NewText(diff.Text, attrsLeftOf(el, offset))
			op := NewInsertOperation(p.child(offset), []Node{text}, b.doc.Version())
			d.AddOperation(op)
			if err := b.doc.ApplyOperation(op); err != nil {
				return nil, err
			}
			offset += n
		}
	}
	return d, nil
}

// attrsLeftOf returns the attributes of the text run covering the
// character just before offset, nil when there is none.
func attrsLeftOf(el *Element, offset int) Attributes {
	if offset == 0 {
		return nil
	}
	child, _ := el.childAtOffset(offset - 1)
	if t, ok := child.(*Text); ok {
		return t.AttrCopy()
	}
	return nil
}
