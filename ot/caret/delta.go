package caret

import (
	"sort"
	"time"

	"github.com/quillhub/scribe/ot/common"
)

// Delta is an ordered sequence of caret Ops (§3.2).
type Delta struct {
	ops []Op
}

// New builds a Delta from the given ops, in the order given.
func New(ops ...Op) Delta {
	return Delta{ops: append([]Op(nil), ops...)}
}

// Empty is the identity delta.
var Empty = Delta{}

// Ops returns the delta's ops. The returned slice must not be mutated.
func (d Delta) Ops() []Op { return d.ops }

// IsEmpty reports whether d carries no ops.
func (d Delta) IsEmpty() bool { return len(d.ops) == 0 }

// IsDocument reports whether every op is begin_session with pairwise
// distinct sessionIds (§3.2).
func (d Delta) IsDocument() bool {
	seen := make(map[common.SessionId]bool, len(d.ops))
	for _, op := range d.ops {
		if op.name != OpBeginSession {
			return false
		}
		if seen[op.sessionId] {
			return false
		}
		seen[op.sessionId] = true
	}
	return true
}

// Equal compares two deltas as sets of ops (order does not carry meaning
// for caret deltas the way it does for body's positional ops).
func (d Delta) Equal(other Delta) bool {
	if len(d.ops) != len(other.ops) {
		return false
	}
	a := sortedOps(d.ops)
	b := sortedOps(other.ops)
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func sortedOps(ops []Op) []Op {
	out := append([]Op(nil), ops...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].sessionId != out[j].sessionId {
			return out[i].sessionId < out[j].sessionId
		}
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].field < out[j].field
	})
	return out
}

func toSessionMap(d Delta) map[common.SessionId]Caret {
	m := make(map[common.SessionId]Caret, len(d.ops))
	for _, op := range d.ops {
		if op.name == OpBeginSession {
			m[op.sessionId] = op.caret
		}
	}
	return m
}

// Compose applies other onto d (§4.1): begin_session adds or replaces,
// end_session removes, and set_field mutates an existing session's
// field. Compose is total, as required of every flavor's Delta.compose:
// a set_field against a session unknown to d is silently dropped rather
// than raising an error here. Callers that must surface a badUse for
// that case (the document coordinator, per §4.3/§7) should call
// ComposeStrict instead.
func (d Delta) Compose(other Delta) Delta {
	out, _ := composeInto(d, other, false)
	return out
}

// ComposeStrict behaves like Compose but returns a badUse error instead
// of silently dropping a set_field against an unknown session.
func ComposeStrict(base, other Delta) (Delta, error) {
	return composeInto(base, other, true)
}

func composeInto(d, other Delta, strict bool) (Delta, error) {
	sessions := toSessionMap(d)
	var order []common.SessionId
	for _, op := range d.ops {
		if op.name == OpBeginSession {
			order = append(order, op.sessionId)
		}
	}

	for _, op := range other.ops {
		switch op.name {
		case OpBeginSession:
			if _, exists := sessions[op.sessionId]; !exists {
				order = append(order, op.sessionId)
			}
			sessions[op.sessionId] = op.caret
		case OpEndSession:
			if _, exists := sessions[op.sessionId]; exists {
				delete(sessions, op.sessionId)
				for i, sid := range order {
					if sid == op.sessionId {
						order = append(order[:i], order[i+1:]...)
						break
					}
				}
			}
		case OpSetField:
			c, exists := sessions[op.sessionId]
			if !exists {
				if strict {
					return Delta{}, common.BadUse("set_field against unknown caret session %q", op.sessionId)
				}
				continue
			}
			updated, err := c.withField(op.field, op.value)
			if err != nil {
				return Delta{}, err
			}
			sessions[op.sessionId] = updated
		}
	}

	ops := make([]Op, 0, len(order))
	for _, sid := range order {
		if c, ok := sessions[sid]; ok {
			op, _ := BeginSession(c)
			ops = append(ops, op)
		}
	}
	return Delta{ops: ops}, nil
}

// Transform is the identity rebase: caret mutations are partitioned by
// sessionId, so two concurrent caret deltas from the same base never
// touch the same field of the same session in a way that needs
// reconciliation (§4.1: "Required only for Body").
func (d Delta) Transform(other Delta, thisIsFirst bool) Delta {
	return d
}

// Diff returns the minimal delta that composes d (a document delta) into
// newer (another document delta): set_field for changed fields of
// persisting sessions, begin_session for added sessions, end_session for
// removed ones (§4.1, §8 scenario 4).
func (d Delta) Diff(newer Delta) (Delta, error) {
	if !d.IsDocument() || !newer.IsDocument() {
		return Delta{}, common.BadValue("caret diff requires two document deltas")
	}
	before := toSessionMap(d)
	after := toSessionMap(newer)

	var ops []Op
	ids := make([]common.SessionId, 0, len(after))
	for sid := range after {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, sid := range ids {
		newC := after[sid]
		oldC, existed := before[sid]
		if !existed {
			op, err := BeginSession(newC)
			if err != nil {
				return Delta{}, err
			}
			ops = append(ops, op)
			continue
		}
		for _, f := range []FieldName{FieldIndex, FieldLength, FieldColor, FieldRevNum, FieldLastActive} {
			if !fieldValuesEqual(oldC.field(f), newC.field(f)) {
				op, err := SetField(sid, f, newC.field(f))
				if err != nil {
					return Delta{}, err
				}
				ops = append(ops, op)
			}
		}
	}

	removedIds := make([]common.SessionId, 0)
	for sid := range before {
		if _, ok := after[sid]; !ok {
			removedIds = append(removedIds, sid)
		}
	}
	sort.Slice(removedIds, func(i, j int) bool { return removedIds[i] < removedIds[j] })
	for _, sid := range removedIds {
		op, err := EndSession(sid)
		if err != nil {
			return Delta{}, err
		}
		ops = append(ops, op)
	}

	return Delta{ops: ops}, nil
}

func fieldValuesEqual(a, b interface{}) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return common.DataValueEqual(normalizeValue(a), normalizeValue(b))
}
