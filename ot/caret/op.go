package caret

import (
	"time"

	"github.com/quillhub/scribe/ot/common"
)

// OpName is the closed set of caret op names (§3.1).
type OpName string

const (
	OpBeginSession OpName = "begin_session"
	OpEndSession   OpName = "end_session"
	OpSetField     OpName = "set_field"
)

// Op is a tagged caret mutation. Only the fields relevant to its Name are
// meaningful; construct via BeginSession/EndSession/SetField.
type Op struct {
	name      OpName
	sessionId common.SessionId
	caret     Caret
	field     FieldName
	value     interface{}
}

// BeginSession introduces or replaces a session's full presence record.
func BeginSession(c Caret) (Op, error) {
	if c.SessionId == "" {
		return Op{}, common.BadValue("begin_session requires a non-empty sessionId")
	}
	if !isCSSHex(c.Color) {
		return Op{}, common.BadValue("begin_session caret has invalid color %q", c.Color)
	}
	if c.Index < 0 || c.Length < 0 || c.RevNum < 0 {
		return Op{}, common.BadValue("begin_session caret has negative index/length/revNum")
	}
	return Op{name: OpBeginSession, sessionId: c.SessionId, caret: c}, nil
}

// EndSession removes a session's presence record.
func EndSession(sessionId common.SessionId) (Op, error) {
	if sessionId == "" {
		return Op{}, common.BadValue("end_session requires a non-empty sessionId")
	}
	return Op{name: OpEndSession, sessionId: sessionId}, nil
}

// SetField mutates a single field of an existing session's record. The
// session must already exist in the document the op is composed onto;
// that is checked at compose time (§4.1), not here.
func SetField(sessionId common.SessionId, field FieldName, value interface{}) (Op, error) {
	if sessionId == "" {
		return Op{}, common.BadValue("set_field requires a non-empty sessionId")
	}
	switch field {
	case FieldIndex, FieldLength, FieldColor, FieldRevNum, FieldLastActive:
	default:
		return Op{}, common.BadValue("unrecognized caret field %q", field)
	}
	// Validate shape eagerly by running it through withField against a
	// throwaway caret; real application happens during compose.
	if _, err := DefaultFields.withField(field, value); err != nil {
		return Op{}, err
	}
	return Op{name: OpSetField, sessionId: sessionId, field: field, value: value}, nil
}

func (op Op) Name() OpName               { return op.name }
func (op Op) SessionId() common.SessionId { return op.sessionId }
func (op Op) Caret() Caret                { return op.caret }
func (op Op) Field() FieldName            { return op.field }
func (op Op) Value() interface{}          { return op.value }

// Equal compares two ops structurally.
func (op Op) Equal(other Op) bool {
	if op.name != other.name || op.sessionId != other.sessionId {
		return false
	}
	switch op.name {
	case OpBeginSession:
		return op.caret.Equal(other.caret)
	case OpEndSession:
		return true
	case OpSetField:
		if op.field != other.field {
			return false
		}
		if at, ok := op.value.(time.Time); ok {
			bt, ok := other.value.(time.Time)
			return ok && at.Equal(bt)
		}
		return common.DataValueEqual(normalizeValue(op.value), normalizeValue(other.value))
	default:
		return false
	}
}

// normalizeValue lets RevisionNumber compare sanely through
// DataValueEqual's numeric path.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case common.RevisionNumber:
		return int64(t)
	default:
		return t
	}
}
