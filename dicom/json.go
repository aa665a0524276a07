package dicom

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// JSONFormat selects the projection of a dataset to JSON.
type JSONFormat int

const (
	// JSONShort maps "gggg,eeee" to the value.
	JSONShort JSONFormat = iota
	// JSONFull maps "gggg,eeee" to {Name, Type, Value}.
	JSONFull
	// JSONHuman maps the keyword to the value.
	JSONHuman
)

func (f JSONFormat) String() string {
	switch f {
	case JSONShort:
		return "Short"
	case JSONFull:
		return "Full"
	case JSONHuman:
		return "Human"
	}
	return "Unknown"
}

// ParseJSONFormat accepts "Short", "Full" or "Human", case-insensitively.
func ParseJSONFormat(s string) (JSONFormat, bool) {
	for _, f := range []JSONFormat{JSONShort, JSONFull, JSONHuman} {
		if strings.EqualFold(s, f.String()) {
			return f, true
		}
	}
	return 0, false
}

// JSONFlags control which elements are projected and how binary values
// are rendered. The zero value omits binary values and pixel data.
type JSONFlags uint

const (
	JSONIncludeBinary JSONFlags = 1 << iota
	JSONIncludePixelData
	JSONIncludePrivateTags
	JSONIncludeUnknownTags
	JSONConvertBinaryToNull
	JSONConvertBinaryToASCII
	JSONStopAfterPixelData
	JSONSkipGroupLengths

	JSONFlagsNone JSONFlags = 0
)

// Has reports whether every bit of f is set.
func (flags JSONFlags) Has(f JSONFlags) bool {
	return flags&f == f
}

// JSONOptions configure ToJSON.
type JSONOptions struct {
	Format JSONFormat
	Flags  JSONFlags
	// MaxStringLength marks longer values as TooLong; 0 disables the cap.
	MaxStringLength int
	// IgnoreLength lists tags exempt from MaxStringLength.
	IgnoreLength []Tag
}

// ToJSON projects ds with the default environment.
func ToJSON(ds *Dataset, opts JSONOptions) map[string]any {
	return Default().ToJSON(ds, opts)
}

// ToJSON projects ds to a JSON object in the Short, Full or Human format.
func (env *Environment) ToJSON(ds *Dataset, opts JSONOptions) map[string]any {
	p := &jsonProjector{env: env, opts: opts, ignore: make(map[Tag]bool)}
	for _, t := range opts.IgnoreLength {
		p.ignore[t] = true
	}
	return p.dataset(ds, 0)
}

// EncodeJSON is ToJSON followed by json.Marshal.
func (env *Environment) EncodeJSON(ds *Dataset, opts JSONOptions) ([]byte, error) {
	return json.Marshal(env.ToJSON(ds, opts))
}

type jsonProjector struct {
	env    *Environment
	opts   JSONOptions
	ignore map[Tag]bool
}

func (p *jsonProjector) known(ds *Dataset, tag Tag) bool {
	if tag.IsGroupLength() || tag.IsPrivateCreator() {
		return true
	}
	_, ok := p.env.Dictionary.LookupPrivate(tag, ds.PrivateCreator(tag))
	return ok
}

func (p *jsonProjector) name(ds *Dataset, tag Tag) string {
	if kw := p.env.Dictionary.Keyword(tag, ds.PrivateCreator(tag)); kw != "" {
		return kw
	}
	if tag.IsPrivateCreator() {
		return "PrivateCreator"
	}
	return tag.Format()
}

func isBinaryElement(e *Element) bool {
	return e.VR.IsBinary() || e.Value.IsBinary()
}

func (p *jsonProjector) dataset(ds *Dataset, depth int) map[string]any {
	out := make(map[string]any)
	flags := p.opts.Flags

	for _, tag := range ds.Tags() {
		e := ds.elements[tag]

		switch {
		case depth == 0 && flags.Has(JSONStopAfterPixelData) && TagPixelData.Less(tag):
			continue
		case flags.Has(JSONSkipGroupLengths) && tag.IsGroupLength():
			continue
		case tag.IsPrivate() && !flags.Has(JSONIncludePrivateTags):
			continue
		case !flags.Has(JSONIncludeUnknownTags) && !p.known(ds, tag):
			continue
		}

		if isBinaryElement(e) {
			if tag == TagPixelData && !flags.Has(JSONIncludePixelData) {
				continue
			}
			if tag != TagPixelData && !flags.Has(JSONIncludeBinary) {
				continue
			}
		}

		key := tag.Format()
		if p.opts.Format == JSONHuman {
			key = p.name(ds, tag)
		}

		if e.Value.IsSequence() {
			items := make([]any, 0, len(e.Value.Items()))
			for _, item := range e.Value.Items() {
				items = append(items, p.dataset(item, depth+1))
			}
			if p.opts.Format == JSONFull {
				out[key] = map[string]any{"Name": p.name(ds, tag), "Type": "Sequence", "Value": items}
			} else {
				out[key] = items
			}
			continue
		}

		typ, value := p.leaf(e)
		if p.opts.Format != JSONFull {
			if typ == "TooLong" {
				continue
			}
			out[key] = value
			continue
		}

		node := map[string]any{"Name": p.name(ds, tag), "Type": typ, "Value": value}
		if tag.IsPrivate() && !tag.IsPrivateCreator() {
			if creator := ds.PrivateCreator(tag); creator != "" {
				node["PrivateCreator"] = creator
			}
		}
		out[key] = node
	}
	return out
}

// leaf returns the Full-format type and the value of a non-sequence element.
func (p *jsonProjector) leaf(e *Element) (string, any) {
	flags := p.opts.Flags
	v := e.Value

	if isBinaryElement(e) {
		if flags.Has(JSONConvertBinaryToNull) {
			return "Null", nil
		}
		var s string
		if flags.Has(JSONConvertBinaryToASCII) {
			s = toASCII(v.Bytes())
		} else {
			s = DataURI("application/octet-stream", v.Bytes())
		}
		if p.tooLong(e.Tag, s) {
			return "TooLong", nil
		}
		return "Binary", s
	}
	if v.IsNull() {
		return "Null", nil
	}

	s := v.String()
	if p.tooLong(e.Tag, s) {
		return "TooLong", nil
	}
	return "String", s
}

// tooLong applies MaxStringLength to the rendered value of tag.
func (p *jsonProjector) tooLong(tag Tag, s string) bool {
	return p.opts.MaxStringLength > 0 && len(s) > p.opts.MaxStringLength && !p.ignore[tag]
}

// toASCII keeps printable ASCII characters and drops the others.
func toASCII(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c < 0x7F {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// DataURI formats bytes as data:<mime>;base64,<payload>.
func DataURI(mime string, b []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// ParseDataURI decodes a data:<mime>;base64,<payload> string. The boolean
// is false when s is not a base64 data URI.
func ParseDataURI(s string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, false
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, false
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, false
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mime, b, true
}
