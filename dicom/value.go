package dicom

import (
	"bytes"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueSequence
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "Null"
	case ValueString:
		return "String"
	case ValueSequence:
		return "Sequence"
	default:
		return "Unknown"
	}
}

// Value is the content of one element: null, a string (UTF-8 text or raw
// bytes when binary) or a sequence of item datasets. Numeric VRs are held
// as their textual form, e.g. "512\1024" for US or "0010,0010" for AT.
type Value struct {
	kind      ValueKind
	content   string
	binary    bool
	items     []*Dataset
	fragments [][]byte
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{}
}

// StringValue returns a text value.
func StringValue(s string) Value {
	return Value{kind: ValueString, content: s}
}

// StringsValue joins components with the value multiplicity separator.
func StringsValue(components ...string) Value {
	return StringValue(strings.Join(components, `\`))
}

// BinaryValue returns a value holding raw bytes.
func BinaryValue(b []byte) Value {
	return Value{kind: ValueString, content: string(b), binary: true}
}

// SequenceValue returns a sequence of items.
func SequenceValue(items ...*Dataset) Value {
	if items == nil {
		items = []*Dataset{}
	}
	return Value{kind: ValueSequence, items: items}
}

// EncapsulatedValue holds encapsulated pixel data. fragments[0] is the
// Basic Offset Table, possibly empty.
func EncapsulatedValue(fragments [][]byte) Value {
	if len(fragments) == 0 {
		fragments = [][]byte{{}}
	}
	return Value{kind: ValueString, binary: true, fragments: fragments}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == ValueNull }

func (v Value) IsBinary() bool { return v.kind == ValueString && v.binary }

func (v Value) IsSequence() bool { return v.kind == ValueSequence }

// IsEncapsulated reports pixel data stored as fragments.
func (v Value) IsEncapsulated() bool { return v.fragments != nil }

// String returns the text content, or the raw bytes as a string for binary values.
func (v Value) String() string { return v.content }

// Bytes returns the raw bytes of the value. For encapsulated data the
// fragments after the offset table are concatenated.
func (v Value) Bytes() []byte {
	if v.fragments != nil {
		var buf bytes.Buffer
		for _, f := range v.fragments[1:] {
			buf.Write(f)
		}
		return buf.Bytes()
	}
	return []byte(v.content)
}

// Components splits a text value on the multiplicity separator.
func (v Value) Components() []string {
	if v.kind != ValueString || v.binary {
		return nil
	}
	return strings.Split(v.content, `\`)
}

// Items returns the sequence items.
func (v Value) Items() []*Dataset { return v.items }

// Fragments returns the encapsulated items including the offset table.
func (v Value) Fragments() [][]byte { return v.fragments }

// Len is the byte length of a string value or the item count of a sequence.
func (v Value) Len() int {
	switch {
	case v.kind == ValueSequence:
		return len(v.items)
	case v.fragments != nil:
		n := 0
		for _, f := range v.fragments {
			n += len(f)
		}
		return n
	default:
		return len(v.content)
	}
}

// Clone deep-copies sequences and fragments.
func (v Value) Clone() Value {
	c := v
	if v.items != nil {
		c.items = make([]*Dataset, len(v.items))
		for i, item := range v.items {
			c.items[i] = item.Clone()
		}
	}
	if v.fragments != nil {
		c.fragments = make([][]byte, len(v.fragments))
		for i, f := range v.fragments {
			c.fragments[i] = append([]byte(nil), f...)
		}
	}
	return c
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.binary != o.binary || v.content != o.content {
		return false
	}
	if len(v.items) != len(o.items) || (v.fragments == nil) != (o.fragments == nil) {
		return false
	}
	for i := range v.items {
		if !v.items[i].Equal(o.items[i]) {
			return false
		}
	}
	if len(v.fragments) != len(o.fragments) {
		return false
	}
	for i := range v.fragments {
		if !bytes.Equal(v.fragments[i], o.fragments[i]) {
			return false
		}
	}
	return true
}
