// Package caret implements the per-session cursor/selection/presence OT
// flavor (§3.1, §3.5, §4.1). Unlike body, caret mutations are naturally
// partitioned by sessionId: two concurrent edits never touch the same
// session's fields, so transform is the identity rebase rather than a
// positional algorithm.
package caret

import (
	"time"

	"github.com/quillhub/scribe/ot/common"
)

// FieldName is the closed set of mutable Caret fields addressable by a
// set_field op.
type FieldName string

const (
	FieldIndex      FieldName = "index"
	FieldLength     FieldName = "length"
	FieldColor      FieldName = "color"
	FieldRevNum     FieldName = "revNum"
	FieldLastActive FieldName = "lastActive"
)

// Caret is the full per-session presence record (§3.5).
type Caret struct {
	SessionId  common.SessionId
	Index      int
	Length     int
	Color      string
	RevNum     common.RevisionNumber
	LastActive time.Time
}

// DefaultFields holds the zero-value presence a newly begun session
// starts with, before the SessionId is assigned.
var DefaultFields = Caret{
	Index:      0,
	Length:     0,
	Color:      "#000000",
	RevNum:     0,
	LastActive: time.Time{},
}

// NewSession returns DefaultFields bound to sessionId.
func NewSession(sessionId common.SessionId) Caret {
	c := DefaultFields
	c.SessionId = sessionId
	return c
}

// Equal compares two Carets field-by-field.
func (c Caret) Equal(other Caret) bool {
	return c.SessionId == other.SessionId &&
		c.Index == other.Index &&
		c.Length == other.Length &&
		c.Color == other.Color &&
		c.RevNum == other.RevNum &&
		c.LastActive.Equal(other.LastActive)
}

func (c Caret) field(f FieldName) interface{} {
	switch f {
	case FieldIndex:
		return c.Index
	case FieldLength:
		return c.Length
	case FieldColor:
		return c.Color
	case FieldRevNum:
		return c.RevNum
	case FieldLastActive:
		return c.LastActive
	default:
		return nil
	}
}

func (c Caret) withField(f FieldName, value interface{}) (Caret, error) {
	switch f {
	case FieldIndex:
		n, ok := asNonNegInt(value)
		if !ok {
			return Caret{}, common.BadValue("caret field %q requires a non-negative int, got %#v", f, value)
		}
		c.Index = n
	case FieldLength:
		n, ok := asNonNegInt(value)
		if !ok {
			return Caret{}, common.BadValue("caret field %q requires a non-negative int, got %#v", f, value)
		}
		c.Length = n
	case FieldColor:
		s, ok := value.(string)
		if !ok || !isCSSHex(s) {
			return Caret{}, common.BadValue("caret field %q requires a #rrggbb color, got %#v", f, value)
		}
		c.Color = s
	case FieldRevNum:
		n, ok := asNonNegInt(value)
		if !ok {
			return Caret{}, common.BadValue("caret field %q requires a non-negative int, got %#v", f, value)
		}
		c.RevNum = common.RevisionNumber(n)
	case FieldLastActive:
		t, ok := value.(time.Time)
		if !ok {
			return Caret{}, common.BadValue("caret field %q requires a time.Time, got %#v", f, value)
		}
		c.LastActive = t
	default:
		return Caret{}, common.BadValue("unrecognized caret field %q", f)
	}
	return c, nil
}

func asNonNegInt(value interface{}) (int, bool) {
	switch t := value.(type) {
	case int:
		if t < 0 {
			return 0, false
		}
		return t, true
	case int64:
		if t < 0 {
			return 0, false
		}
		return int(t), true
	case common.RevisionNumber:
		if t < 0 {
			return 0, false
		}
		return int(t), true
	case float64:
		// Decoded JSON numbers arrive as float64; accept whole numbers
		// only.
		if t < 0 || t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	default:
		return 0, false
	}
}

func isCSSHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}
