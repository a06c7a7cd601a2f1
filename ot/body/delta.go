package body

import (
	"math"

	"github.com/quillhub/scribe/ot/common"
)

// Delta is an ordered, immutable sequence of body Ops (§3.2).
type Delta struct {
	ops []Op
}

// New builds a Delta from the given ops, in canonical form (adjacent
// compatible runs merged; see canonicalize).
func New(ops ...Op) Delta {
	return Delta{ops: append([]Op(nil), ops...)}.canonicalize()
}

// Empty is the identity delta.
var Empty = Delta{}

// Ops returns the delta's ops in order. The returned slice must not be
// mutated.
func (d Delta) Ops() []Op { return d.ops }

// IsEmpty reports whether d carries no ops.
func (d Delta) IsEmpty() bool { return len(d.ops) == 0 }

// IsDocument reports whether every op is an insert (§3.2: body document
// deltas are all-insert sequences).
func (d Delta) IsDocument() bool {
	for _, op := range d.ops {
		if !op.IsInsert() {
			return false
		}
	}
	return true
}

// Equal compares two deltas op-by-op in canonical form.
func (d Delta) Equal(other Delta) bool {
	a := d.canonicalize()
	b := other.canonicalize()
	if len(a.ops) != len(b.ops) {
		return false
	}
	for i := range a.ops {
		if !a.ops[i].Equal(b.ops[i]) {
			return false
		}
	}
	return true
}

// canonicalize merges contiguous runs of compatible text/retain ops with
// identical attributes, and drops a single trailing no-attribute retain
// (an implicit "retain to end of document" per Quill-style delta
// convention), so that any two deltas composing to the same document
// state are Equal once both are canonicalized (§4.1).
func (d Delta) canonicalize() Delta {
	var out []Op
	for _, op := range d.ops {
		if op.Name() == OpRetain && op.count == 0 {
			continue
		}
		if op.Name() == OpDelete && op.count == 0 {
			continue
		}
		if op.Name() == OpText && op.text == "" && op.attrs == nil {
			continue
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Name() == OpText && op.Name() == OpText && common.AttrsEqual(last.attrs, op.attrs) {
				last.text += op.text
				out[len(out)-1] = last
				continue
			}
			if last.Name() == OpRetain && op.Name() == OpRetain && common.AttrsEqual(last.attrs, op.attrs) {
				last.count += op.count
				out[len(out)-1] = last
				continue
			}
			if last.Name() == OpDelete && op.Name() == OpDelete {
				last.count += op.count
				out[len(out)-1] = last
				continue
			}
		}
		out = append(out, op)
	}
	// Drop a single trailing no-attribute retain: it carries no
	// information (the region it covers is implicitly preserved).
	if n := len(out); n > 0 {
		last := out[n-1]
		if last.Name() == OpRetain && last.attrs == nil {
			out = out[:n-1]
		}
	}
	return Delta{ops: out}
}

// Compose returns the delta produced by applying other after d, per the
// Quill-style op-iterator compose algorithm (§4.1): deletes win over
// retains, inserts from `other` pass through unchanged, retain/retain
// pairs merge attributes, and deleting an insert cancels it out.
func (d Delta) Compose(other Delta) Delta {
	thisIt := newOpIterator(d.ops)
	otherIt := newOpIterator(other.ops)
	var out []Op

	for thisIt.hasNext() || otherIt.hasNext() {
		switch {
		case otherIt.peekIsInsert():
			out = append(out, otherIt.next(math.MaxInt32))
		case thisIt.peekIsDelete():
			out = append(out, thisIt.next(math.MaxInt32))
		default:
			length := min(thisIt.peekLength(), otherIt.peekLength())
			thisOp := thisIt.next(length)
			otherOp := otherIt.next(length)
			switch otherOp.Name() {
			case OpRetain:
				if thisOp.IsInsert() {
					merged := common.ComposeAttrs(thisOp.attrs, otherOp.attrs)
					out = append(out, thisOp.withAttrs(merged))
				} else if thisOp.Name() == OpRetain {
					merged := common.ComposeAttrs(thisOp.attrs, otherOp.attrs)
					if length > 0 {
						r, _ := Retain(length, merged)
						out = append(out, r)
					}
				}
			case OpDelete:
				if thisOp.Name() == OpRetain {
					del, _ := Delete(length)
					out = append(out, del)
				}
				// thisOp is an insert being deleted: cancels out, emit nothing.
			}
		}
	}
	return Delta{ops: out}.canonicalize()
}

// Transform rebases d (the receiver) so the result can be composed onto
// a document that already has `other` applied: `other.compose(
// d.transform(other, thisIsFirst))` then matches `d.compose(other.
// transform(d, !thisIsFirst))` (§3.2 invariant 3, §8 property 3).
// thisIsFirst says whether d's own insertions win ties against `other`'s
// concurrent insertions at the same position (the winning side's content
// appears first in the converged document).
func (d Delta) Transform(other Delta, thisIsFirst bool) Delta {
	// otherWins mirrors the classic Quill-delta transform(priority)
	// parameter, whose priority flag belongs to the already-applied
	// side; here that is `other`, so it is the negation of thisIsFirst
	// (which is expressed relative to the receiver d).
	otherWins := !thisIsFirst

	otherIt := newOpIterator(other.ops)
	selfIt := newOpIterator(d.ops)
	var out []Op

	for otherIt.hasNext() || selfIt.hasNext() {
		switch {
		case otherIt.peekIsInsert() && (otherWins || !selfIt.peekIsInsert()):
			op := otherIt.next(math.MaxInt32)
			r, _ := Retain(op.Length(), nil)
			out = append(out, r)
		case selfIt.peekIsInsert():
			out = append(out, selfIt.next(math.MaxInt32))
		default:
			length := min(otherIt.peekLength(), selfIt.peekLength())
			otherOp := otherIt.next(length)
			selfOp := selfIt.next(length)
			switch {
			case otherOp.Name() == OpDelete:
				// other already deleted this region; d's op here
				// contributes nothing.
			case selfOp.Name() == OpDelete:
				out = append(out, selfOp)
			default:
				attrs := common.TransformAttrs(otherOp.attrs, selfOp.attrs, otherWins)
				if length > 0 {
					r, _ := Retain(length, attrs)
					out = append(out, r)
				}
			}
		}
	}
	return Delta{ops: out}.canonicalize()
}
