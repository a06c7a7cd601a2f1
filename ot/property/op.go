// Package property implements the document-metadata OT flavor: a flat,
// last-writer-wins map of named data values (§3.1, §4.1).
package property

import "github.com/quillhub/scribe/ot/common"

// OpName is the closed set of property op names.
type OpName string

const (
	OpSetProperty    OpName = "set_property"
	OpDeleteProperty OpName = "delete_property"
)

// Op is a tagged property mutation.
type Op struct {
	name  OpName
	prop  string
	value interface{}
}

// SetProperty assigns name to value. value must be a deeply-immutable
// data value (§3.1).
func SetProperty(name string, value interface{}) (Op, error) {
	if name == "" {
		return Op{}, common.BadValue("set_property requires a non-empty name")
	}
	if !common.IsDataValue(value) {
		return Op{}, common.BadValue("set_property value for %q is not a data value: %#v", name, value)
	}
	return Op{name: OpSetProperty, prop: name, value: common.CloneDataValue(value)}, nil
}

// DeleteProperty removes name.
func DeleteProperty(name string) (Op, error) {
	if name == "" {
		return Op{}, common.BadValue("delete_property requires a non-empty name")
	}
	return Op{name: OpDeleteProperty, prop: name}, nil
}

func (op Op) Name() OpName        { return op.name }
func (op Op) Property() string    { return op.prop }
func (op Op) Value() interface{}  { return op.value }

// Equal compares two ops structurally.
func (op Op) Equal(other Op) bool {
	if op.name != other.name || op.prop != other.prop {
		return false
	}
	if op.name == OpSetProperty {
		return common.DataValueEqual(op.value, other.value)
	}
	return true
}
