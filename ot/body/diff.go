package body

import "github.com/quillhub/scribe/ot/common"

// atom is one indivisible unit of document content used by Diff: either
// a single rune carrying its op's attributes, or a whole embed.
type atom struct {
	isEmbed    bool
	r          rune
	embedType  string
	embedValue interface{}
	attrs      common.Attrs
}

func (a atom) equalContent(b atom) bool {
	if a.isEmbed != b.isEmbed {
		return false
	}
	if a.isEmbed {
		return a.embedType == b.embedType && common.DataValueEqual(a.embedValue, b.embedValue)
	}
	return a.r == b.r
}

func explode(d Delta) []atom {
	var out []atom
	for _, op := range d.ops {
		switch op.Name() {
		case OpText:
			for _, r := range op.Text() {
				out = append(out, atom{r: r, attrs: op.Attrs()})
			}
		case OpEmbed:
			et, ev := op.Embed()
			out = append(out, atom{isEmbed: true, embedType: et, embedValue: ev, attrs: op.Attrs()})
		}
	}
	return out
}

func atomsToDelta(atoms []atom) Delta {
	var ops []Op
	flushText := func(text string, attrs common.Attrs) {
		if text == "" {
			return
		}
		op, _ := Text(text, attrs)
		ops = append(ops, op)
	}
	var pending string
	var pendingAttrs common.Attrs
	havePending := false
	for _, a := range atoms {
		if a.isEmbed {
			flushText(pending, pendingAttrs)
			pending, havePending = "", false
			op, _ := Embed(a.embedType, a.embedValue, a.attrs)
			ops = append(ops, op)
			continue
		}
		if havePending && common.AttrsEqual(pendingAttrs, a.attrs) {
			pending += string(a.r)
			continue
		}
		flushText(pending, pendingAttrs)
		pending = string(a.r)
		pendingAttrs = a.attrs
		havePending = true
	}
	flushText(pending, pendingAttrs)
	return New(ops...)
}

// Diff returns the delta that, composed onto d (a document delta),
// produces newer (another document delta) (§3.4 invariant 2, §4.1).
// It is not guaranteed minimal, but it is always correct: the common
// prefix and suffix of the two documents' content are retained, and the
// differing middle section is replaced wholesale.
func (d Delta) Diff(newer Delta) (Delta, error) {
	if !d.IsDocument() || !newer.IsDocument() {
		return Delta{}, common.BadValue("diff requires two document deltas")
	}
	a := explode(d)
	b := explode(newer)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix].equalContent(b[prefix]) &&
		common.AttrsEqual(a[prefix].attrs, b[prefix].attrs) {
		prefix++
	}

	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix].equalContent(b[len(b)-1-suffix]) &&
		common.AttrsEqual(a[len(a)-1-suffix].attrs, b[len(b)-1-suffix].attrs) {
		suffix++
	}

	midOld := a[prefix : len(a)-suffix]
	midNew := b[prefix : len(b)-suffix]

	var ops []Op
	if prefix > 0 {
		r, _ := Retain(prefix, nil)
		ops = append(ops, r)
	}
	if len(midOld) > 0 {
		del, _ := Delete(len(midOld))
		ops = append(ops, del)
	}
	ops = append(ops, atomsToDelta(midNew).Ops()...)

	return New(ops...), nil
}
