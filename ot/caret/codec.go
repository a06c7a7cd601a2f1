package caret

import (
	"encoding/json"
	"time"

	"github.com/quillhub/scribe/ot/common"
)

// wireOp is the on-the-wire/on-disk JSON shape for a caret Op.
type wireOp struct {
	Name       OpName           `json:"name"`
	SessionId  common.SessionId `json:"sessionId"`
	Index      *int             `json:"index,omitempty"`
	Length     *int             `json:"length,omitempty"`
	Color      *string          `json:"color,omitempty"`
	RevNum     *int64           `json:"revNum,omitempty"`
	LastActive *time.Time       `json:"lastActive,omitempty"`
	Field      FieldName        `json:"field,omitempty"`
	Value      interface{}      `json:"value,omitempty"`
}

func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Name: o.name, SessionId: o.sessionId}
	switch o.name {
	case OpBeginSession:
		idx, length, revNum := o.caret.Index, o.caret.Length, int64(o.caret.RevNum)
		w.Index = &idx
		w.Length = &length
		w.Color = &o.caret.Color
		w.RevNum = &revNum
		w.LastActive = &o.caret.LastActive
	case OpSetField:
		w.Field = o.field
		w.Value = o.value
	}
	return json.Marshal(w)
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var built Op
	var err error
	switch w.Name {
	case OpBeginSession:
		c := Caret{SessionId: w.SessionId}
		if w.Index != nil {
			c.Index = *w.Index
		}
		if w.Length != nil {
			c.Length = *w.Length
		}
		if w.Color != nil {
			c.Color = *w.Color
		}
		if w.RevNum != nil {
			c.RevNum = common.RevisionNumber(*w.RevNum)
		}
		if w.LastActive != nil {
			c.LastActive = *w.LastActive
		}
		built, err = BeginSession(c)
	case OpEndSession:
		built, err = EndSession(w.SessionId)
	case OpSetField:
		value := w.Value
		if w.Field == FieldLastActive {
			if s, ok := value.(string); ok {
				t, perr := time.Parse(time.RFC3339Nano, s)
				if perr != nil {
					return perr
				}
				value = t
			}
		}
		built, err = SetField(w.SessionId, w.Field, value)
	default:
		return &json.UnsupportedValueError{Str: "unrecognized caret op name " + string(w.Name)}
	}
	if err != nil {
		return err
	}
	*o = built
	return nil
}

func (d Delta) MarshalJSON() ([]byte, error) {
	if d.ops == nil {
		return json.Marshal([]Op{})
	}
	return json.Marshal(d.ops)
}

func (d *Delta) UnmarshalJSON(data []byte) error {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err != nil {
		return err
	}
	*d = New(ops...)
	return nil
}
