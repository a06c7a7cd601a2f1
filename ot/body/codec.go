package body

import (
	"encoding/json"

	"github.com/quillhub/scribe/ot/common"
)

// wireOp is the on-the-wire/on-disk JSON shape for a body Op. The codec
// preserves type identity (§6) by always carrying the op name alongside
// only the fields that name uses.
type wireOp struct {
	Name       OpName       `json:"name"`
	Count      int          `json:"count,omitempty"`
	Text       string       `json:"text,omitempty"`
	EmbedType  string       `json:"embedType,omitempty"`
	EmbedValue interface{}  `json:"embedValue,omitempty"`
	Attrs      common.Attrs `json:"attrs,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Name: o.name, Attrs: o.attrs}
	switch o.name {
	case OpDelete, OpRetain:
		w.Count = o.count
	case OpText:
		w.Text = o.text
	case OpEmbed:
		w.EmbedType = o.embedType
		w.EmbedValue = o.embedValue
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler, routing through the
// validating constructors so a decoded Op carries the same guarantees as
// one built in process.
func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var built Op
	var err error
	switch w.Name {
	case OpDelete:
		built, err = Delete(w.Count)
	case OpText:
		built, err = Text(w.Text, w.Attrs)
	case OpEmbed:
		built, err = Embed(w.EmbedType, w.EmbedValue, w.Attrs)
	case OpRetain:
		built, err = Retain(w.Count, w.Attrs)
	default:
		return &json.UnsupportedValueError{Str: "unrecognized body op name " + string(w.Name)}
	}
	if err != nil {
		return err
	}
	*o = built
	return nil
}

// MarshalJSON implements json.Marshaler for a whole delta.
func (d Delta) MarshalJSON() ([]byte, error) {
	if d.ops == nil {
		return json.Marshal([]Op{})
	}
	return json.Marshal(d.ops)
}

// UnmarshalJSON implements json.Unmarshaler for a whole delta.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err != nil {
		return err
	}
	*d = New(ops...)
	return nil
}
