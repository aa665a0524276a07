package dicom

import (
	"slices"
	"strconv"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// Element represents a DICOM data element
type Element struct {
	Tag   Tag
	VR    VR
	Value Value

	// raw keeps the encoded bytes of charset-dependent text so that an
	// untouched value is written back byte for byte.
	raw        []byte
	rawCharset string
}

// Dataset represents a collection of DICOM elements. Each tag appears at
// most once; insertion order is kept for iteration while encoding always
// follows ascending tag order.
type Dataset struct {
	elements map[Tag]*Element
	order    []Tag
	version  uint64
}

// NewDataset creates a new empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		elements: make(map[Tag]*Element),
	}
}

// AddElement sets an element, replacing any previous value of the tag.
func (d *Dataset) AddElement(tag Tag, vr VR, value Value) {
	d.put(&Element{Tag: tag, VR: vr, Value: value})
}

func (d *Dataset) put(e *Element) {
	if _, exists := d.elements[e.Tag]; !exists {
		d.order = append(d.order, e.Tag)
	}
	d.elements[e.Tag] = e
	d.version++
}

// SetString stores a text value, resolving the VR through the default
// dictionary. Private tags use the block reservation found in d.
func (d *Dataset) SetString(tag Tag, s string) {
	d.AddElement(tag, d.resolveVR(Default().Dictionary, tag), StringValue(s))
}

// SetStrings stores a multi-valued text element.
func (d *Dataset) SetStrings(tag Tag, components ...string) {
	d.AddElement(tag, d.resolveVR(Default().Dictionary, tag), StringsValue(components...))
}

// SetSequence stores a sequence of items.
func (d *Dataset) SetSequence(tag Tag, items ...*Dataset) {
	d.AddElement(tag, VR_SQ, SequenceValue(items...))
}

// GetElement returns an element by tag
func (d *Dataset) GetElement(tag Tag) (*Element, bool) {
	element, exists := d.elements[tag]
	return element, exists
}

// Has reports whether the tag is present.
func (d *Dataset) Has(tag Tag) bool {
	_, ok := d.elements[tag]
	return ok
}

// Remove deletes a tag and reports whether it was present.
func (d *Dataset) Remove(tag Tag) bool {
	if _, ok := d.elements[tag]; !ok {
		return false
	}
	delete(d.elements, tag)
	if i := slices.Index(d.order, tag); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
	d.version++
	return true
}

// Len returns the number of elements at this level.
func (d *Dataset) Len() int {
	return len(d.elements)
}

// Tags returns the tags in ascending order.
func (d *Dataset) Tags() []Tag {
	tags := make([]Tag, 0, len(d.elements))
	for tag := range d.elements {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, func(a, b Tag) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return tags
}

// Elements returns the elements in insertion order.
func (d *Dataset) Elements() []*Element {
	out := make([]*Element, 0, len(d.order))
	for _, tag := range d.order {
		out = append(out, d.elements[tag])
	}
	return out
}

// Version increases on every mutation at this level.
func (d *Dataset) Version() uint64 {
	return d.version
}

// Touch marks the dataset as modified, for callers that mutated nested items.
func (d *Dataset) Touch() {
	d.version++
}

// LookupString returns a non-null, non-binary string value.
func (d *Dataset) LookupString(tag Tag) (string, bool) {
	e, ok := d.elements[tag]
	if !ok || e.Value.Kind() != ValueString || e.Value.IsBinary() {
		return "", false
	}
	return e.Value.String(), true
}

// GetString returns a string value for a tag, trimmed of spaces
func (d *Dataset) GetString(tag Tag) string {
	s, _ := d.LookupString(tag)
	return strings.TrimSpace(s)
}

// GetStrings returns a slice of string values for a tag
func (d *Dataset) GetStrings(tag Tag) []string {
	s, ok := d.LookupString(tag)
	if !ok {
		return nil
	}
	parts := strings.Split(s, `\`)
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// GetInt parses the first component of a numeric value.
func (d *Dataset) GetInt(tag Tag) (int, bool, error) {
	parts := d.GetStrings(tag)
	if len(parts) == 0 || parts[0] == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		if f, ferr := strconv.ParseFloat(parts[0], 64); ferr == nil && f == float64(int(f)) {
			return int(f), true, nil
		}
		return 0, true, dcmerr.New(dcmerr.KindBadFileFormat, "not an integer: %q", parts[0]).WithDetail(tag.String())
	}
	return v, true, nil
}

// Items returns the items of a sequence, or nil.
func (d *Dataset) Items(tag Tag) []*Dataset {
	if e, ok := d.elements[tag]; ok && e.Value.IsSequence() {
		return e.Value.Items()
	}
	return nil
}

// PrivateCreator returns the creator reserving the block of a private tag.
func (d *Dataset) PrivateCreator(tag Tag) string {
	creatorTag, ok := tag.CreatorTag()
	if !ok {
		return ""
	}
	return d.GetString(creatorTag)
}

func (d *Dataset) resolveVR(dict *Dictionary, tag Tag) VR {
	return dict.VR(tag, d.PrivateCreator(tag))
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	c := NewDataset()
	for _, tag := range d.order {
		e := *d.elements[tag]
		e.Value = e.Value.Clone()
		c.elements[tag] = &e
		c.order = append(c.order, tag)
	}
	return c
}

// Equal compares tags, VRs and values, ignoring insertion order.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.elements) != len(o.elements) {
		return false
	}
	for tag, e := range d.elements {
		oe, ok := o.elements[tag]
		if !ok || e.VR != oe.VR || !e.Value.Equal(oe.Value) {
			return false
		}
	}
	return true
}

// Merge copies every element of src into d, replacing existing tags.
func (d *Dataset) Merge(src *Dataset) {
	for _, e := range src.Elements() {
		c := *e
		c.Value = e.Value.Clone()
		d.put(&c)
	}
}
