package dicom

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DICOMwebOptions configure the PS3.18 JSON projection.
type DICOMwebOptions struct {
	// BulkDataURIPrefix, when set, replaces InlineBinary by a BulkDataURI
	// of the form <prefix>/<GGGGEEEE>[/<item>/<GGGGEEEE>...].
	BulkDataURIPrefix string
	IncludePixelData  bool
}

// ToDICOMweb projects ds with the default environment.
func ToDICOMweb(ds *Dataset, opts DICOMwebOptions) map[string]any {
	return Default().ToDICOMweb(ds, opts)
}

// ToDICOMweb projects ds to the DICOM JSON model of PS3.18 Annex F.
func (env *Environment) ToDICOMweb(ds *Dataset, opts DICOMwebOptions) map[string]any {
	w := &dicomwebProjector{env: env, opts: opts}
	return w.dataset(ds, nil)
}

// MarshalDICOMweb is ToDICOMweb followed by json.Marshal.
func (env *Environment) MarshalDICOMweb(ds *Dataset, opts DICOMwebOptions) ([]byte, error) {
	return json.Marshal(env.ToDICOMweb(ds, opts))
}

type dicomwebProjector struct {
	env  *Environment
	opts DICOMwebOptions
}

func (w *dicomwebProjector) dataset(ds *Dataset, parents []string) map[string]any {
	out := make(map[string]any)
	for _, tag := range ds.Tags() {
		e := ds.elements[tag]
		if tag.IsGroupLength() {
			continue
		}
		if tag == TagPixelData && len(parents) == 0 && !w.opts.IncludePixelData {
			continue
		}

		vr := e.VR
		if vr == "" {
			vr = ds.resolveVR(w.env.Dictionary, tag)
		}
		key := tag.DICOMwebKey()
		node := map[string]any{"vr": string(vr)}
		path := append(append([]string(nil), parents...), key)

		switch {
		case e.Value.IsSequence():
			node["vr"] = string(VR_SQ)
			if items := e.Value.Items(); len(items) > 0 {
				values := make([]any, 0, len(items))
				for i, item := range items {
					values = append(values, w.dataset(item, append(path, strconv.Itoa(i))))
				}
				node["Value"] = values
			}
		case isBinaryElement(e):
			if vr == VR_UN || !vr.IsBinary() {
				node["vr"] = string(VR_UN)
			}
			if e.Value.IsNull() {
				break
			}
			if w.opts.BulkDataURIPrefix != "" {
				node["BulkDataURI"] = strings.TrimSuffix(w.opts.BulkDataURIPrefix, "/") + "/" + strings.Join(path, "/")
			} else {
				node["InlineBinary"] = base64.StdEncoding.EncodeToString(e.Value.Bytes())
			}
		case e.Value.IsNull() || e.Value.String() == "":
		default:
			if values := dicomwebValues(vr, e.Value.String()); len(values) > 0 {
				node["Value"] = values
			}
		}
		out[key] = node
	}
	return out
}

func dicomwebValues(vr VR, s string) []any {
	components := strings.Split(s, `\`)
	values := make([]any, 0, len(components))

	if vr == VR_LT || vr == VR_ST || vr == VR_UT || vr == VR_UR {
		// single-valued text keeps backslashes
		components = []string{s}
	}

	for _, c := range components {
		if vr != VR_PN && vr != VR_LT && vr != VR_ST && vr != VR_UT {
			c = strings.TrimSpace(c)
		}
		if c == "" {
			if vr == VR_PN {
				values = append(values, map[string]any{})
			} else {
				values = append(values, nil)
			}
			continue
		}

		switch vr {
		case VR_PN:
			values = append(values, personName(c))
		case VR_IS, VR_SS, VR_US, VR_SL, VR_UL, VR_SV, VR_UV:
			values = append(values, jsonInteger(c))
		case VR_DS, VR_FL, VR_FD:
			values = append(values, jsonDecimal(c))
		case VR_AT:
			if t, ok := parseHexTag(c); ok {
				values = append(values, t.DICOMwebKey())
			} else {
				values = append(values, c)
			}
		default:
			values = append(values, c)
		}
	}
	return values
}

func personName(s string) map[string]any {
	out := make(map[string]any)
	groups := strings.SplitN(s, "=", 3)
	for i, name := range []string{"Alphabetic", "Ideographic", "Phonetic"} {
		if i < len(groups) && groups[i] != "" {
			out[name] = groups[i]
		}
	}
	return out
}

func jsonInteger(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v
	}
	return jsonDecimal(s)
}

// jsonDecimal writes integral values as integers.
func jsonDecimal(s string) any {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}
