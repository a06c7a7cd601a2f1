package property

import "encoding/json"

type wireOp struct {
	Name  OpName      `json:"name"`
	Prop  string       `json:"property"`
	Value interface{} `json:"value,omitempty"`
}

func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireOp{Name: o.name, Prop: o.prop, Value: o.value})
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var built Op
	var err error
	switch w.Name {
	case OpSetProperty:
		built, err = SetProperty(w.Prop, w.Value)
	case OpDeleteProperty:
		built, err = DeleteProperty(w.Prop)
	default:
		return &json.UnsupportedValueError{Str: "unrecognized property op name " + string(w.Name)}
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
