package dicom

import (
	"bytes"
	"encoding/json"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// ParseJSON builds a dataset from Short, Full or Human JSON with the
// default environment.
func ParseJSON(data []byte) (*Dataset, error) {
	return Default().ParseJSON(data)
}

// ParseJSON builds a dataset from Short, Full or Human JSON. Keys are
// keywords or "gggg,eeee"; arrays of objects are sequences; strings of the
// form data:<mime>;base64,... become binary values.
func (env *Environment) ParseJSON(data []byte) (*Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindBadJson, err, "cannot parse JSON dataset")
	}
	return env.DatasetFromJSON(root)
}

// DatasetFromJSON is ParseJSON over an already decoded object.
func (env *Environment) DatasetFromJSON(root map[string]any) (*Dataset, error) {
	ds := NewDataset()

	// Private creators first, so that private tags resolve their VR.
	keys := make([]string, 0, len(root))
	var later []string
	for key := range root {
		if t, err := env.Dictionary.ParseTag(key); err == nil && t.IsPrivateCreator() {
			keys = append(keys, key)
		} else {
			later = append(later, key)
		}
	}
	keys = append(keys, later...)

	for _, key := range keys {
		tag, err := env.Dictionary.ParseTag(key)
		if err != nil {
			return nil, err
		}
		if err := env.elementFromJSON(ds, tag, root[key]); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func badJSON(tag Tag, format string, args ...any) error {
	return dcmerr.New(dcmerr.KindBadJson, format, args...).WithDetail(tag.String())
}

func (env *Environment) elementFromJSON(ds *Dataset, tag Tag, raw any) error {
	// Full format node
	if node, ok := raw.(map[string]any); ok {
		typ, _ := node["Type"].(string)
		value := node["Value"]
		switch typ {
		case "Null", "TooLong":
			ds.AddElement(tag, ds.resolveVR(env.Dictionary, tag), NullValue())
			return nil
		case "String", "Binary", "Sequence":
			return env.elementFromJSON(ds, tag, value)
		}
		return badJSON(tag, "unknown node type %q", typ)
	}

	vr := ds.resolveVR(env.Dictionary, tag)

	switch v := raw.(type) {
	case nil:
		ds.AddElement(tag, vr, NullValue())
	case string:
		if _, b, ok := ParseDataURI(v); ok && vr.IsBinary() {
			ds.AddElement(tag, vr, BinaryValue(b))
			return nil
		}
		ds.AddElement(tag, vr, StringValue(v))
	case json.Number:
		ds.AddElement(tag, vr, StringValue(v.String()))
	case bool:
		return badJSON(tag, "boolean values are not supported")
	case []any:
		items := make([]*Dataset, 0, len(v))
		for _, raw := range v {
			obj, ok := raw.(map[string]any)
			if !ok {
				// an array of strings is a multi-valued element
				return env.multiValueFromJSON(ds, tag, vr, v)
			}
			item, err := env.DatasetFromJSON(obj)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		ds.AddElement(tag, VR_SQ, SequenceValue(items...))
	default:
		return badJSON(tag, "unexpected JSON value of type %T", raw)
	}
	return nil
}

func (env *Environment) multiValueFromJSON(ds *Dataset, tag Tag, vr VR, values []any) error {
	parts := make([]string, 0, len(values))
	for _, raw := range values {
		switch v := raw.(type) {
		case string:
			parts = append(parts, v)
		case json.Number:
			parts = append(parts, v.String())
		case nil:
			parts = append(parts, "")
		default:
			return badJSON(tag, "mixed sequence and value array")
		}
	}
	ds.AddElement(tag, vr, StringValue(strings.Join(parts, `\`)))
	return nil
}
