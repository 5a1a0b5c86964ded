package loom

import "fmt"

// History is the append-only log of deltas applied to a document, in
// application order. Besides the log itself it keeps an index from base
// version to log position, so the tail of history after any recorded
// version is a cheap lookup.
type History struct {
	deltas []*Delta
	points map[int]int // base version -> index into deltas
}

func newHistory() *History {
	return &History{points: make(map[int]int)}
}

// Len returns the number of recorded deltas.
func (h *History) Len() int {
	return len(h.deltas)
}

// AddOperation records an applied operation. Operations belonging to a
// delta are coalesced: the delta enters the log once, when its first
// operation is reported. A bare operation is wrapped in a single-op
// delta so the log stays uniform.
func (h *History) AddOperation(op Operation) {
	d := op.OwningDelta()
	if d != nil {
		if n := len(h.deltas); n > 0 && h.deltas[n-1] == d {
			return
		}
		h.addDelta(d)
		return
	}
	d = NewDelta(deltaKindForOperation(op))
	d.AddOperation(op)
	h.addDelta(d)
}

func (h *History) addDelta(d *Delta) {
	if d.BaseVersion() >= 0 {
		h.points[d.BaseVersion()] = len(h.deltas)
	}
	h.deltas = append(h.deltas, d)
}

// nextHistoryPoint returns the base version the next delta will carry.
func (h *History) nextHistoryPoint() int {
	if len(h.deltas) == 0 {
		return 0
	}
	last := h.deltas[len(h.deltas)-1]
	return last.BaseVersion() + last.Len()
}

// Deltas returns the recorded deltas from the given base version
// onward. The version must be one at which a delta was recorded, or the
// current end of history (which yields an empty slice).
func (h *History) Deltas(from int) ([]*Delta, error) {
	if from == h.nextHistoryPoint() {
		return nil, nil
	}
	idx, ok := h.points[from]
	if !ok {
		return nil, fmt.Errorf("%w: base version %d", ErrUnknownHistoryPoint, from)
	}
	return append([]*Delta(nil), h.deltas[idx:]...), nil
}

// AllDeltas returns the whole log in application order.
func (h *History) AllDeltas() []*Delta {
	return append([]*Delta(nil), h.deltas...)
}

// GetTransformedDelta rebases a stale delta onto the present: the delta
// is transformed through every delta recorded since its base version,
// with history taking precedence on every tie, and comes back renumbered
// to apply at the current end of history. The result is a list applied
// in order; TransformDelta preserves delta counts (fragmentation happens
// inside operations), so it holds exactly one delta.
func (h *History) GetTransformedDelta(d *Delta) ([]*Delta, error) {
	if d.BaseVersion() < 0 {
		return []*Delta{d}, nil
	}
	tail, err := h.Deltas(d.BaseVersion())
	if err != nil {
		return nil, err
	}
	out := d
	for _, hd := range tail {
		out = TransformDelta(out, hd, false)
	}
	return []*Delta{out}, nil
}

// deltaKindForOperation picks the delta kind for a bare operation.
func deltaKindForOperation(op Operation) DeltaKind {
	switch op.Kind() {
	case OpInsert:
		return DeltaInsert
	case OpRemove:
		return DeltaRemove
	case OpMove:
		return DeltaMove
	case OpRename:
		return DeltaRename
	case OpAttribute:
		return DeltaAttribute
	case OpMarker:
		return DeltaMarker
	}
	return DeltaNoOp
}
