package loom

import "fmt"

// WalkDirection selects which way a TreeWalker moves.
type WalkDirection int

const (
	// WalkForward iterates in document order.
	WalkForward WalkDirection = iota

	// WalkBackward iterates in reverse document order.
	WalkBackward
)

// WalkerStepType tags what a single walker step encountered.
type WalkerStepType int

const (
	// ElementStartStep reports crossing into an element's opening boundary.
	ElementStartStep WalkerStepType = iota

	// ElementEndStep reports crossing an element's closing boundary.
	ElementEndStep

	// TextStep reports a maximal run of text consumed in one step.
	TextStep

	// CharacterStep reports a single character, produced when the walker
	// runs with SingleCharacters.
	CharacterStep
)

// String returns the step type's name.
func (t WalkerStepType) String() string {
	switch t {
	case ElementStartStep:
		return "elementStart"
	case ElementEndStep:
		return "elementEnd"
	case TextStep:
		return "text"
	case CharacterStep:
		return "character"
	}
	return "unknown"
}

// WalkerStep is one unit of tree traversal. PreviousPosition and
// NextPosition are the step's document-order boundaries regardless of
// walking direction: Previous always comes earlier in the document.
type WalkerStep struct {
	Type WalkerStepType

	// Item is the node the step concerns: the element for boundary steps,
	// the text node for text steps.
	Item Node

	// Text holds the characters consumed by a text or character step.
	Text string

	// Length is the step's width in offset units: 1 for element starts
	// and characters, 0 for element ends, the run width for text steps.
	Length int

	PreviousPosition Position
	NextPosition     Position
}

// TreeWalkerOptions configures a traversal. Exactly one of StartPosition
// and Boundaries must be set; when both are given, StartPosition must
// lie inside Boundaries.
type TreeWalkerOptions struct {
	Direction     WalkDirection
	StartPosition *Position
	Boundaries    *Range

	// SingleCharacters makes the walker yield text one character at a
	// time instead of in maximal runs.
	SingleCharacters bool

	// Shallow keeps the walker from descending into elements; each
	// element is reported once and jumped over.
	Shallow bool

	// IgnoreElementEnd suppresses ElementEndStep results. The walker
	// still descends into elements.
	IgnoreElementEnd bool
}

// TreeWalker iterates over tree content position by position. It reads
// the live tree, so the document must not change between Next calls.
type TreeWalker struct {
	opts   TreeWalkerOptions
	pos    Position
	parent *Element
	done   bool
}

// NewTreeWalker creates a walker over the document starting at the
// configured position.
func NewTreeWalker(doc *Document, opts TreeWalkerOptions) (*TreeWalker, error) {
	var start Position
	switch {
	case opts.StartPosition != nil:
		start = *opts.StartPosition
	case opts.Boundaries != nil:
		if opts.Direction == WalkForward {
			start = opts.Boundaries.Start
		} else {
			start = opts.Boundaries.End
		}
	default:
		return nil, fmt.Errorf("%w: walker needs a start position or boundaries", ErrInvalidTarget)
	}
	parent, err := doc.parentAt(start)
	if err != nil {
		return nil, err
	}
	return &TreeWalker{opts: opts, pos: start, parent: parent}, nil
}

// Position returns the walker's current position.
func (w *TreeWalker) Position() Position {
	return w.pos
}

// Next advances the walker one step. The second return value is false
// once the traversal is exhausted.
func (w *TreeWalker) Next() (WalkerStep, bool) {
	for !w.done {
		var step WalkerStep
		var emit bool
		if w.opts.Direction == WalkForward {
			step, emit = w.stepForward()
		} else {
			step, emit = w.stepBackward()
		}
		if emit {
			return step, true
		}
	}
	return WalkerStep{}, false
}

func (w *TreeWalker) stepForward() (WalkerStep, bool) {
	if w.opts.Boundaries != nil && !w.pos.IsBefore(w.opts.Boundaries.End) {
		w.done = true
		return WalkerStep{}, false
	}
	off := w.pos.Offset()
	if off == w.parent.MaxOffset() {
		if w.parent.IsRoot() {
			w.done = true
			return WalkerStep{}, false
		}
		after, err := PositionAfter(w.parent)
		if err != nil {
			w.done = true
			return WalkerStep{}, false
		}
		step := WalkerStep{
			Type:             ElementEndStep,
			Item:             w.parent,
			PreviousPosition: w.pos,
			NextPosition:     after,
		}
		w.parent = w.parent.Parent()
		w.pos = after
		return step, !w.opts.IgnoreElementEnd
	}
	child, start := w.parent.childAtOffset(off)
	if el, ok := child.(*Element); ok {
		prev := w.pos
		if w.opts.Shallow {
			w.pos = w.pos.WithOffset(off + 1)
		} else {
			w.parent = el
			w.pos = w.pos.WithOffset(off).child(0)
		}
		return WalkerStep{
			Type:             ElementStartStep,
			Item:             el,
			Length:           1,
			PreviousPosition: prev,
			NextPosition:     w.pos,
		}, true
	}
	t := child.(*Text)
	end := start + t.OffsetSize()
	if bound := w.boundEndOffset(); bound >= 0 && bound < end {
		end = bound
	}
	length := end - off
	if w.opts.SingleCharacters {
		length = 1
	}
	runes := []rune(t.data)
	prev := w.pos
	w.pos = w.pos.WithOffset(off + length)
	stepType := TextStep
	if w.opts.SingleCharacters {
		stepType = CharacterStep
	}
	return WalkerStep{
		Type:             stepType,
		Item:             t,
		Text:             string(runes[off-start : off-start+length]),
		Length:           length,
		PreviousPosition: prev,
		NextPosition:     w.pos,
	}, true
}

func (w *TreeWalker) stepBackward() (WalkerStep, bool) {
	if w.opts.Boundaries != nil && !w.pos.IsAfter(w.opts.Boundaries.Start) {
		w.done = true
		return WalkerStep{}, false
	}
	off := w.pos.Offset()
	if off == 0 {
		if w.parent.IsRoot() {
			w.done = true
			return WalkerStep{}, false
		}
		before, err := PositionBefore(w.parent)
		if err != nil {
			w.done = true
			return WalkerStep{}, false
		}
		step := WalkerStep{
			Type:             ElementStartStep,
			Item:             w.parent,
			Length:           1,
			PreviousPosition: before,
			NextPosition:     w.pos,
		}
		w.parent = w.parent.Parent()
		w.pos = before
		return step, true
	}
	child, start := w.parent.childAtOffset(off - 1)
	if el, ok := child.(*Element); ok {
		next := w.pos
		if w.opts.Shallow {
			w.pos = w.pos.WithOffset(off - 1)
			return WalkerStep{
				Type:             ElementStartStep,
				Item:             el,
				Length:           1,
				PreviousPosition: w.pos,
				NextPosition:     next,
			}, true
		}
		w.parent = el
		w.pos = w.pos.WithOffset(off - 1).child(el.MaxOffset())
		return WalkerStep{
			Type:             ElementEndStep,
			Item:             el,
			PreviousPosition: w.pos,
			NextPosition:     next,
		}, !w.opts.IgnoreElementEnd
	}
	t := child.(*Text)
	low := start
	if bound := w.boundStartOffset(); bound >= 0 && bound > low {
		low = bound
	}
	length := off - low
	if w.opts.SingleCharacters {
		length = 1
	}
	runes := []rune(t.data)
	next := w.pos
	w.pos = w.pos.WithOffset(off - length)
	stepType := TextStep
	if w.opts.SingleCharacters {
		stepType = CharacterStep
	}
	return WalkerStep{
		Type:             stepType,
		Item:             t,
		Text:             string(runes[off-length-start : off-start]),
		Length:           length,
		PreviousPosition: w.pos,
		NextPosition:     next,
	}, true
}

// boundEndOffset returns the boundary end offset when it falls inside
// the walker's current parent, -1 otherwise.
func (w *TreeWalker) boundEndOffset() int {
	if w.opts.Boundaries == nil {
		return -1
	}
	end := w.opts.Boundaries.End
	if end.Root() != w.pos.Root() || end.Depth() != w.pos.Depth() {
		return -1
	}
	if !hasPathPrefix(end.path, w.pos.path[:len(w.pos.path)-1]) {
		return -1
	}
	return end.Offset()
}

// boundStartOffset mirrors boundEndOffset for the boundary start.
func (w *TreeWalker) boundStartOffset() int {
	if w.opts.Boundaries == nil {
		return -1
	}
	start := w.opts.Boundaries.Start
	if start.Root() != w.pos.Root() || start.Depth() != w.pos.Depth() {
		return -1
	}
	if !hasPathPrefix(start.path, w.pos.path[:len(w.pos.path)-1]) {
		return -1
	}
	return start.Offset()
}
