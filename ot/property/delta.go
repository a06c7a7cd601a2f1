package property

import (
	"sort"

	"github.com/quillhub/scribe/ot/common"
)

// Delta is an ordered sequence of property Ops (§3.2).
type Delta struct {
	ops []Op
}

// New builds a Delta from the given ops.
func New(ops ...Op) Delta {
	return Delta{ops: append([]Op(nil), ops...)}
}

// Empty is the identity delta.
var Empty = Delta{}

// Ops returns the delta's ops. The returned slice must not be mutated.
func (d Delta) Ops() []Op { return d.ops }

// IsEmpty reports whether d carries no ops.
func (d Delta) IsEmpty() bool { return len(d.ops) == 0 }

// IsDocument reports whether every op is set_property with pairwise
// distinct names (§3.2).
func (d Delta) IsDocument() bool {
	seen := make(map[string]bool, len(d.ops))
	for _, op := range d.ops {
		if op.name != OpSetProperty {
			return false
		}
		if seen[op.prop] {
			return false
		}
		seen[op.prop] = true
	}
	return true
}

// Equal compares two deltas as sets of ops (property order carries no
// meaning).
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
		if out[i].prop != out[j].prop {
			return out[i].prop < out[j].prop
		}
		return out[i].name < out[j].name
	})
	return out
}

func toPropertyMap(d Delta) map[string]interface{} {
	m := make(map[string]interface{}, len(d.ops))
	for _, op := range d.ops {
		if op.name == OpSetProperty {
			m[op.prop] = op.value
		}
	}
	return m
}

// Compose applies other onto d: set_property overwrites (last writer
// wins), delete_property removes (§4.1).
func (d Delta) Compose(other Delta) Delta {
	props := toPropertyMap(d)
	var order []string
	for _, op := range d.ops {
		if op.name == OpSetProperty {
			order = append(order, op.prop)
		}
	}

	for _, op := range other.ops {
		switch op.name {
		case OpSetProperty:
			if _, exists := props[op.prop]; !exists {
				order = append(order, op.prop)
			}
			props[op.prop] = op.value
		case OpDeleteProperty:
			if _, exists := props[op.prop]; exists {
				delete(props, op.prop)
				for i, name := range order {
					if name == op.prop {
						order = append(order[:i], order[i+1:]...)
						break
					}
				}
			}
		}
	}

	ops := make([]Op, 0, len(order))
	for _, name := range order {
		if v, ok := props[name]; ok {
			op, _ := SetProperty(name, v)
			ops = append(ops, op)
		}
	}
	return Delta{ops: ops}
}

// Transform is the identity rebase: property names partition concurrent
// writers the same way caret sessionIds do, and last-writer-wins already
// resolves same-name conflicts deterministically at append time, so no
// positional rebasing is needed (§4.1: "Required only for Body").
func (d Delta) Transform(other Delta, thisIsFirst bool) Delta {
	return d
}

// Diff returns the minimal set/delete ops turning d (a document delta)
// into newer (§4.1).
func (d Delta) Diff(newer Delta) (Delta, error) {
	if !d.IsDocument() || !newer.IsDocument() {
		return Delta{}, common.BadValue("property diff requires two document deltas")
	}
	before := toPropertyMap(d)
	after := toPropertyMap(newer)

	var ops []Op

	names := make([]string, 0, len(after))
	for name := range after {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		newV := after[name]
		oldV, existed := before[name]
		if !existed || !common.DataValueEqual(oldV, newV) {
			op, err := SetProperty(name, newV)
			if err != nil {
				return Delta{}, err
			}
			ops = append(ops, op)
		}
	}

	removed := make([]string, 0)
	for name := range before {
		if _, ok := after[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		op, err := DeleteProperty(name)
		if err != nil {
			return Delta{}, err
		}
		ops = append(ops, op)
	}

	return Delta{ops: ops}, nil
}
