package body

import "math"

// opIterator walks a slice of Ops, able to hand back a prefix of the
// current op of an arbitrary requested length, splitting text/retain/
// delete ops as needed. This is the standard op-iterator shape that
// Quill-style delta compose/transform algorithms are built on; embed ops
// are atomic (length 1) and are never split.
type opIterator struct {
	ops    []Op
	index  int
	offset int // runes/count already consumed from ops[index]
}

func newOpIterator(ops []Op) *opIterator {
	return &opIterator{ops: ops}
}

// hasNext reports whether any op remains.
func (it *opIterator) hasNext() bool {
	return it.peekLength() < math.MaxInt32
}

// peekLength returns the remaining length of the current op, or
// math.MaxInt32 (treated as infinity) if the iterator is exhausted.
func (it *opIterator) peekLength() int {
	if it.index >= len(it.ops) {
		return math.MaxInt32
	}
	return it.ops[it.index].Length() - it.offset
}

// peekIsInsert reports whether the current op (if any) is an insert.
func (it *opIterator) peekIsInsert() bool {
	return it.index < len(it.ops) && it.ops[it.index].IsInsert()
}

// peekIsDelete reports whether the current op (if any) is a delete.
func (it *opIterator) peekIsDelete() bool {
	return it.index < len(it.ops) && it.ops[it.index].Name() == OpDelete
}

// next consumes up to length units of the current op and returns them as
// a standalone Op. Passing math.MaxInt32 consumes the whole remaining op.
func (it *opIterator) next(length int) Op {
	if it.index >= len(it.ops) {
		r, _ := Retain(math.MaxInt32, nil)
		return r
	}
	op := it.ops[it.index]
	remaining := op.Length() - it.offset
	if length >= remaining {
		length = remaining
	}

	var result Op
	switch op.Name() {
	case OpText:
		runes := []rune(op.Text())
		result = op
		result.text = string(runes[it.offset : it.offset+length])
	case OpEmbed:
		result = op // embeds are atomic; length is always 1
	case OpRetain, OpDelete:
		result = op
		result.count = length
	}

	it.offset += length
	if it.offset >= op.Length() {
		it.index++
		it.offset = 0
	}
	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
