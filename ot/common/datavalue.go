package common

import "sort"

// IsDataValue reports whether v is a legal deeply-immutable data value:
// nil, bool, float64/int, string, a []interface{} of data values, or a
// map[string]interface{} of data values. Anything else (channels, funcs,
// pointers to mutable state) fails the predicate and callers should
// surface a badValue error.
func IsDataValue(v interface{}) bool {
	switch t := v.(type) {
	case nil, bool, string, float64, float32, int, int32, int64:
		return true
	case []interface{}:
		for _, e := range t {
			if !IsDataValue(e) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		for _, e := range t {
			if !IsDataValue(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CloneDataValue returns a deep copy of v so that stored Ops never alias
// caller-owned mutable maps/slices.
func CloneDataValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = CloneDataValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = CloneDataValue(e)
		}
		return out
	default:
		return t
	}
}

// DataValueEqual performs structural equality between two data values.
func DataValueEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DataValueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, e := range av {
			be, ok := bv[k]
			if !ok || !DataValueEqual(e, be) {
				return false
			}
		}
		return true
	default:
		return numericEqual(a, b)
	}
}

// numericEqual treats int/int32/int64/float32/float64 as interchangeable
// so that Ops built from literal Go ints compare equal to ones decoded
// from JSON as float64.
func numericEqual(a, b interface{}) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// Attrs is an optional, deeply-immutable map of styling/metadata marks
// attached to an Op. A nil Attrs means "absent", distinct from an empty
// non-nil map.
type Attrs map[string]interface{}

// CloneAttrs deep-copies a (possibly nil) Attrs map.
func CloneAttrs(a Attrs) Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = CloneDataValue(v)
	}
	return out
}

// AttrsEqual compares two (possibly nil) Attrs maps for structural
// equality; nil and empty-non-nil are treated as equal.
func AttrsEqual(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !DataValueEqual(v, bv) {
			return false
		}
	}
	return true
}

// ComposeAttrs merges `next` onto `base`, with `next`'s values winning on
// key conflicts. A nil key's presence removes the key entirely, mirroring
// the "set to null to delete" convention used by the rest of the op
// algebra. Returns nil if the merged result is empty.
func ComposeAttrs(base, next Attrs) Attrs {
	if len(base) == 0 && len(next) == 0 {
		return nil
	}
	merged := make(Attrs, len(base)+len(next))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range next {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return CloneAttrs(merged)
}

// TransformAttrs resolves concurrent attribute changes on the same
// region. When thisIsFirst, `base`'s values win on conflicting keys
// (first-priority side keeps its marks); otherwise `next` fully
// overrides, matching ComposeAttrs semantics for the non-priority side.
func TransformAttrs(base, next Attrs, thisIsFirst bool) Attrs {
	if len(next) == 0 {
		return nil
	}
	if !thisIsFirst {
		return CloneAttrs(next)
	}
	result := make(Attrs)
	for k, v := range next {
		if _, conflict := base[k]; !conflict {
			result[k] = v
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// SortedKeys returns a's keys in sorted order, useful for deterministic
// diff/encode output.
func (a Attrs) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
