// Package modification edits parsed DICOM instances: insertion,
// replacement, removal and clearing of elements at any depth, identifier
// remapping and the de-identification profiles of PS3.15.
package modification

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// ReplaceMode selects what Replace does when the target tag is absent.
type ReplaceMode int

const (
	// InsertIfAbsent creates the element when it is missing.
	InsertIfAbsent ReplaceMode = iota
	// ThrowIfAbsent fails with InexistentItem when the element is missing.
	ThrowIfAbsent
	// IgnoreIfAbsent leaves the dataset untouched when the element is missing.
	IgnoreIfAbsent
)

func (m ReplaceMode) String() string {
	switch m {
	case InsertIfAbsent:
		return "InsertIfAbsent"
	case ThrowIfAbsent:
		return "ThrowIfAbsent"
	case IgnoreIfAbsent:
		return "IgnoreIfAbsent"
	}
	return "ReplaceMode(" + strconv.Itoa(int(m)) + ")"
}

// Editor applies single operations to one instance. Values passed to
// Insert and Replace may be a string, a []string, a dicom.Value, a slice
// of item datasets, or a decoded JSON value (nil, json.Number, []any of
// strings or of objects).
type Editor struct {
	inst *dicom.ParsedInstance

	// PrivateCreator resolves the VR of private tags whose block is not
	// reserved in the target dataset, and is used to reserve it.
	PrivateCreator string

	// DecodeDataURI turns data:<mime>;base64 strings into binary values,
	// images and encapsulated documents.
	DecodeDataURI bool

	Logger *slog.Logger
}

// NewEditor returns an editor bound to inst.
func NewEditor(inst *dicom.ParsedInstance) *Editor {
	return &Editor{inst: inst}
}

func (e *Editor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Instance returns the edited instance.
func (e *Editor) Instance() *dicom.ParsedInstance {
	return e.inst
}

// eachItem calls fn on every dataset holding the final tag of path. Top
// level paths address the File Meta Information for group 0002. Missing
// sequences or items fail with InexistentItem when strict, except below a
// universal step.
func (e *Editor) eachItem(path dicom.DicomPath, strict bool, fn func(*dicom.Dataset) error) error {
	if path.IsTopLevel() {
		if path.Final.Group == 0x0002 {
			return fn(e.inst.FileMeta())
		}
		return fn(e.inst.Dataset())
	}
	defer e.inst.Dataset().Touch()
	return walkPath(e.inst.Dataset(), path, 0, strict, fn)
}

func walkPath(item *dicom.Dataset, path dicom.DicomPath, level int, strict bool, fn func(*dicom.Dataset) error) error {
	if level == len(path.Prefix) {
		return fn(item)
	}

	step := path.Prefix[level]
	missing := func(format string, args ...any) error {
		if !strict {
			return nil
		}
		return dcmerr.New(dcmerr.KindInexistentItem, format, args...).WithDetail(path.Format())
	}

	el, ok := item.GetElement(step.Tag)
	if !ok || !el.Value.IsSequence() {
		if step.Universal {
			return nil
		}
		return missing("no sequence %s", step.Tag)
	}

	items := el.Value.Items()
	if step.Universal {
		for _, child := range items {
			if err := walkPath(child, path, level+1, strict, fn); err != nil {
				return err
			}
		}
		return nil
	}
	if step.Index >= len(items) {
		return missing("sequence %s has %d items, no item %d", step.Tag, len(items), step.Index)
	}
	return walkPath(items[step.Index], path, level+1, strict, fn)
}

// Insert adds an element that must not already exist.
func (e *Editor) Insert(path dicom.DicomPath, value any) error {
	if path.Final.IsGroupLength() {
		return nil
	}

	if path.IsTopLevel() && e.isEmbeddable(path.Final, value) {
		if e.inst.Dataset().Has(path.Final) {
			return dcmerr.New(dcmerr.KindAlreadyExistingTag, "cannot insert an existing tag").WithDetail(path.Final.String())
		}
		if done, err := e.EmbedContent(value.(string)); done || err != nil {
			return err
		}
	}

	return e.eachItem(path, true, func(ds *dicom.Dataset) error {
		if ds.Has(path.Final) {
			return dcmerr.New(dcmerr.KindAlreadyExistingTag, "cannot insert an existing tag").WithDetail(path.Format())
		}
		return e.set(ds, path, value)
	})
}

// Replace sets an element, acting on absent elements according to mode.
func (e *Editor) Replace(path dicom.DicomPath, value any, mode ReplaceMode) error {
	if path.Final.IsGroupLength() {
		return nil
	}
	if mode < InsertIfAbsent || mode > IgnoreIfAbsent {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown replace mode %d", int(mode))
	}

	if path.IsTopLevel() && e.isEmbeddable(path.Final, value) {
		present := e.inst.Dataset().Has(path.Final)
		switch {
		case !present && mode == ThrowIfAbsent:
			return dcmerr.New(dcmerr.KindInexistentItem, "cannot replace inexistent tag").WithDetail(path.Final.String())
		case !present && mode == IgnoreIfAbsent:
			return nil
		}
		if done, err := e.EmbedContent(value.(string)); done || err != nil {
			return err
		}
	}

	return e.eachItem(path, mode != IgnoreIfAbsent, func(ds *dicom.Dataset) error {
		if !ds.Has(path.Final) {
			switch mode {
			case ThrowIfAbsent:
				return dcmerr.New(dcmerr.KindInexistentItem, "cannot replace inexistent tag").WithDetail(path.Format())
			case IgnoreIfAbsent:
				return nil
			}
		}
		return e.set(ds, path, value)
	})
}

// Remove deletes the element wherever the path selects it. Missing items
// are not an error.
func (e *Editor) Remove(path dicom.DicomPath) error {
	return e.eachItem(path, false, func(ds *dicom.Dataset) error {
		ds.Remove(path.Final)
		return nil
	})
}

// Clear empties the element, keeping it in the dataset. With onlyIfExists
// absent elements and items are skipped; otherwise empty elements are
// created and missing items fail with InexistentItem.
func (e *Editor) Clear(path dicom.DicomPath, onlyIfExists bool) error {
	if path.Final.IsGroupLength() {
		return nil
	}
	return e.eachItem(path, !onlyIfExists, func(ds *dicom.Dataset) error {
		el, ok := ds.GetElement(path.Final)
		if !ok && onlyIfExists {
			return nil
		}

		var vr dicom.VR
		if ok {
			vr = el.VR
		} else {
			vr = e.resolveVR(ds, path.Final)
		}
		if vr == dicom.VR_SQ {
			ds.AddElement(path.Final, vr, dicom.SequenceValue())
		} else {
			ds.AddElement(path.Final, vr, dicom.NullValue())
		}
		return nil
	})
}

// RemovePrivateTags drops every top-level private element not listed in keep.
func (e *Editor) RemovePrivateTags(keep map[dicom.Tag]bool) {
	ds := e.inst.Dataset()
	for _, tag := range ds.Tags() {
		if tag.IsPrivate() && !keep[tag] {
			ds.Remove(tag)
		}
	}
}

func (e *Editor) isEmbeddable(tag dicom.Tag, value any) bool {
	if !e.DecodeDataURI || (tag != dicom.TagPixelData && tag != dicom.TagEncapsulatedDocument) {
		return false
	}
	s, ok := value.(string)
	return ok && strings.HasPrefix(s, "data:")
}

func (e *Editor) resolveVR(ds *dicom.Dataset, tag dicom.Tag) dicom.VR {
	dict := e.inst.Environment().Dictionary
	creator := ds.PrivateCreator(tag)
	if creator == "" && tag.IsPrivate() {
		creator = e.PrivateCreator
	}
	return dict.VR(tag, creator)
}

// reserve writes the private creator of tag's block when it is missing.
func (e *Editor) reserve(ds *dicom.Dataset, tag dicom.Tag) {
	if e.PrivateCreator == "" {
		return
	}
	if creatorTag, ok := tag.CreatorTag(); ok && !ds.Has(creatorTag) {
		ds.AddElement(creatorTag, dicom.VR_LO, dicom.StringValue(e.PrivateCreator))
	}
}

func (e *Editor) set(ds *dicom.Dataset, path dicom.DicomPath, value any) error {
	tag := path.Final
	vr := e.resolveVR(ds, tag)
	if el, ok := ds.GetElement(tag); ok && el.VR != dicom.VR_UN {
		vr = el.VR
	}

	if (tag == dicom.TagSOPClassUID || tag == dicom.TagSOPInstanceUID) && path.IsTopLevel() {
		if _, ok := value.(string); !ok {
			return dcmerr.New(dcmerr.KindBadParameterType, "%s must be a string", tag).WithDetail(path.Format())
		}
	}

	v, err := e.toValue(ds, tag, vr, value)
	if err != nil {
		return dcmerr.Wrap(dcmerr.KindOf(err), err, "cannot set %s", path.Format())
	}
	if v.IsSequence() {
		vr = dicom.VR_SQ
	}

	if tag.IsPrivate() && !tag.IsPrivateCreator() {
		e.reserve(ds, tag)
	}
	ds.AddElement(tag, vr, v)

	if path.IsTopLevel() {
		e.syncStorageUID(tag, v)
	}
	return nil
}

// syncStorageUID mirrors SOP class and instance UIDs into the File Meta
// Information.
func (e *Editor) syncStorageUID(tag dicom.Tag, v dicom.Value) {
	meta := e.inst.FileMeta()
	switch tag {
	case dicom.TagSOPClassUID:
		meta.AddElement(dicom.TagMediaStorageSOPClassUID, dicom.VR_UI, dicom.StringValue(v.String()))
	case dicom.TagSOPInstanceUID:
		meta.AddElement(dicom.TagMediaStorageSOPInstanceUID, dicom.VR_UI, dicom.StringValue(v.String()))
	}
}

func badType(tag dicom.Tag, format string, args ...any) error {
	return dcmerr.New(dcmerr.KindBadParameterType, format, args...).WithDetail(tag.String())
}

func (e *Editor) toValue(ds *dicom.Dataset, tag dicom.Tag, vr dicom.VR, value any) (dicom.Value, error) {
	env := e.inst.Environment()

	switch v := value.(type) {
	case nil:
		if vr == dicom.VR_SQ {
			return dicom.SequenceValue(), nil
		}
		return dicom.NullValue(), nil

	case dicom.Value:
		if v.IsSequence() != (vr == dicom.VR_SQ) && vr != dicom.VR_UN {
			return dicom.Value{}, badType(tag, "value kind %s does not match VR %s", v.Kind(), vr)
		}
		return v.Clone(), nil

	case string:
		return e.stringValue(tag, vr, v)

	case json.Number:
		return e.stringValue(tag, vr, v.String())

	case float64:
		return e.stringValue(tag, vr, strconv.FormatFloat(v, 'f', -1, 64))

	case int:
		return e.stringValue(tag, vr, strconv.Itoa(v))

	case []string:
		for _, s := range v {
			if strings.Contains(s, `\`) {
				return dicom.Value{}, badType(tag, "value component contains a backslash")
			}
		}
		return e.stringValue(tag, vr, strings.Join(v, `\`))

	case []*dicom.Dataset:
		if vr != dicom.VR_SQ && vr != dicom.VR_UN {
			return dicom.Value{}, badType(tag, "sequence given for VR %s", vr)
		}
		items := make([]*dicom.Dataset, len(v))
		for i, item := range v {
			items[i] = item.Clone()
		}
		return dicom.SequenceValue(items...), nil

	case []any:
		if len(v) > 0 {
			if _, isObject := v[0].(map[string]any); isObject {
				if vr != dicom.VR_SQ && vr != dicom.VR_UN {
					return dicom.Value{}, badType(tag, "sequence given for VR %s", vr)
				}
				items := make([]*dicom.Dataset, 0, len(v))
				for _, raw := range v {
					obj, ok := raw.(map[string]any)
					if !ok {
						return dicom.Value{}, badType(tag, "mixed sequence and value array")
					}
					item, err := env.DatasetFromJSON(obj)
					if err != nil {
						return dicom.Value{}, err
					}
					items = append(items, item)
				}
				return dicom.SequenceValue(items...), nil
			}
		} else if vr == dicom.VR_SQ {
			return dicom.SequenceValue(), nil
		}

		parts := make([]string, 0, len(v))
		for _, raw := range v {
			switch c := raw.(type) {
			case string:
				parts = append(parts, c)
			case json.Number:
				parts = append(parts, c.String())
			case float64:
				parts = append(parts, strconv.FormatFloat(c, 'f', -1, 64))
			default:
				return dicom.Value{}, badType(tag, "unexpected array member of type %T", raw)
			}
		}
		return e.stringValue(tag, vr, strings.Join(parts, `\`))
	}
	return dicom.Value{}, badType(tag, "unsupported value of type %T", value)
}

const octetStreamPrefix = "data:application/octet-stream;base64,"

func (e *Editor) stringValue(tag dicom.Tag, vr dicom.VR, s string) (dicom.Value, error) {
	if vr == dicom.VR_SQ {
		if s != "" {
			return dicom.Value{}, badType(tag, "string given for a sequence")
		}
		return dicom.SequenceValue(), nil
	}

	if e.DecodeDataURI {
		if vr.IsBinary() {
			if _, b, ok := dicom.ParseDataURI(s); ok {
				return dicom.BinaryValue(b), nil
			}
		} else if strings.HasPrefix(s, octetStreamPrefix) {
			_, b, ok := dicom.ParseDataURI(s)
			if !ok {
				return dicom.Value{}, dcmerr.New(dcmerr.KindBadFileFormat, "malformed data URI").WithDetail(tag.String())
			}
			s = string(b)
		}
	}

	if vr.IsBinary() {
		return dicom.BinaryValue([]byte(s)), nil
	}
	if vr.IsNumeric() && vr != dicom.VR_AT && s != "" {
		for _, part := range strings.Split(s, `\`) {
			if _, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
				return dicom.Value{}, badType(tag, "%q is not a valid %s value", part, vr)
			}
		}
	}
	if s == "" {
		return dicom.NullValue(), nil
	}
	return dicom.StringValue(s), nil
}
