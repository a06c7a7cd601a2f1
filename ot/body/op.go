// Package body implements the rich-text flavor of the OT algebra:
// delete/text/embed/retain ops, delta compose/transform/diff, and the
// Change/Snapshot instantiation over body.Delta (§3.1, §4.1).
package body

import (
	"github.com/quillhub/scribe/ot/common"
)

// OpName is the closed set of body op names.
type OpName string

const (
	OpDelete OpName = "delete"
	OpText   OpName = "text"
	OpEmbed  OpName = "embed"
	OpRetain OpName = "retain"
)

// Op is an immutable tagged body operation. Use the New* constructors;
// the zero value is not a valid Op.
type Op struct {
	name       OpName
	count      int
	text       string
	embedType  string
	embedValue interface{}
	attrs      common.Attrs
}

// Delete builds a delete(count) op. count must be >= 1.
func Delete(count int) (Op, error) {
	if count < 1 {
		return Op{}, common.BadValue("delete: count must be >= 1, got %d", count)
	}
	return Op{name: OpDelete, count: count}, nil
}

// Text builds a text(string, attrs?) insert op. attrs may be nil.
func Text(text string, attrs common.Attrs) (Op, error) {
	if !validAttrs(attrs) {
		return Op{}, common.BadValue("text: attributes must be a data map")
	}
	return Op{name: OpText, text: text, attrs: common.CloneAttrs(attrs)}, nil
}

// Embed builds an embed(type, value, attrs?) insert op.
func Embed(embedType string, value interface{}, attrs common.Attrs) (Op, error) {
	if embedType == "" {
		return Op{}, common.BadValue("embed: type must be non-empty")
	}
	if !common.IsDataValue(value) {
		return Op{}, common.BadValue("embed: value must be a data value")
	}
	if !validAttrs(attrs) {
		return Op{}, common.BadValue("embed: attributes must be a data map")
	}
	return Op{
		name:       OpEmbed,
		embedType:  embedType,
		embedValue: common.CloneDataValue(value),
		attrs:      common.CloneAttrs(attrs),
	}, nil
}

// Retain builds a retain(count, attrs?) op. count must be >= 1.
func Retain(count int, attrs common.Attrs) (Op, error) {
	if count < 1 {
		return Op{}, common.BadValue("retain: count must be >= 1, got %d", count)
	}
	if !validAttrs(attrs) {
		return Op{}, common.BadValue("retain: attributes must be a data map")
	}
	return Op{name: OpRetain, count: count, attrs: common.CloneAttrs(attrs)}, nil
}

func validAttrs(a common.Attrs) bool {
	if a == nil {
		return true
	}
	return common.IsDataValue(map[string]interface{}(a))
}

// Name returns the op's tag.
func (o Op) Name() OpName { return o.name }

// Attrs returns the op's attribute map, or nil if absent.
func (o Op) Attrs() common.Attrs { return o.attrs }

// IsInsert reports whether this op is a text or embed insert.
func (o Op) IsInsert() bool { return o.name == OpText || o.name == OpEmbed }

// Length is the op's length in the document's coordinate space: rune
// count for text, 1 for embed, count for retain/delete.
func (o Op) Length() int {
	switch o.name {
	case OpText:
		return len([]rune(o.text))
	case OpEmbed:
		return 1
	default:
		return o.count
	}
}

// Text returns the inserted text (only meaningful when Name==OpText).
func (o Op) Text() string { return o.text }

// Embed returns the embed type and value (only meaningful when
// Name==OpEmbed).
func (o Op) Embed() (string, interface{}) { return o.embedType, o.embedValue }

// Equal is structural equality: same name, same arguments.
func (o Op) Equal(other Op) bool {
	if o.name != other.name {
		return false
	}
	switch o.name {
	case OpDelete:
		return o.count == other.count
	case OpText:
		return o.text == other.text && common.AttrsEqual(o.attrs, other.attrs)
	case OpEmbed:
		return o.embedType == other.embedType &&
			common.DataValueEqual(o.embedValue, other.embedValue) &&
			common.AttrsEqual(o.attrs, other.attrs)
	case OpRetain:
		return o.count == other.count && common.AttrsEqual(o.attrs, other.attrs)
	default:
		return false
	}
}

// withAttrs returns a copy of o carrying the given attrs, used internally
// by compose/transform to rebuild an op with merged attributes.
func (o Op) withAttrs(attrs common.Attrs) Op {
	o.attrs = attrs
	return o
}

// sliceText returns a copy of o covering only the first n runes (used to
// split a text op during compose/transform iteration).
func (o Op) sliceText(n int) (head, rest Op) {
	runes := []rune(o.text)
	head = o
	head.text = string(runes[:n])
	rest = o
	rest.text = string(runes[n:])
	return head, rest
}

// sliceCount returns two copies of o (retain/delete) whose counts sum to
// the original count, split at n.
func (o Op) sliceCount(n int) (head, rest Op) {
	head = o
	head.count = n
	rest = o
	rest.count = o.count - n
	return head, rest
}
