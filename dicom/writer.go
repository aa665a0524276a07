package dicom

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"math"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// WriteOptions tune dataset encoding.
type WriteOptions struct {
	// Lossy replaces characters the target charset cannot represent by '?'
	// instead of failing with NotAcceptableCharacter.
	Lossy bool
}

type writer struct {
	env      *Environment
	order    byteOrder
	explicit bool
	opts     WriteOptions
}

// WriteDataset encodes ds without File Meta Information. Elements are
// written in ascending tag order and group lengths are omitted.
func (env *Environment) WriteDataset(ds *Dataset, transferSyntax string, opts WriteOptions) ([]byte, error) {
	layout, err := layoutOf(transferSyntax)
	if err != nil {
		return nil, err
	}

	w := &writer{env: env, order: binary.LittleEndian, explicit: layout.explicit, opts: opts}
	if layout.bigEndian {
		w.order = binary.BigEndian
	}

	out, err := w.writeDataset(nil, ds, Charset{Encoding: env.DefaultEncoding}, false)
	if err != nil {
		return nil, err
	}

	if layout.deflated {
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, dcmerr.Wrap(dcmerr.KindInternalError, err, "cannot create deflater")
		}
		if _, err := fw.Write(out); err != nil {
			return nil, dcmerr.Wrap(dcmerr.KindInternalError, err, "cannot deflate dataset")
		}
		if err := fw.Close(); err != nil {
			return nil, dcmerr.Wrap(dcmerr.KindInternalError, err, "cannot deflate dataset")
		}
		out = buf.Bytes()
		if len(out)%2 != 0 {
			out = append(out, 0)
		}
	}
	return out, nil
}

// EncodeDatasetWithTransferSyntax encodes a dataset with the default environment.
// An empty syntax means Explicit VR Little Endian.
func EncodeDatasetWithTransferSyntax(ds *Dataset, transferSyntaxUID string) ([]byte, error) {
	if transferSyntaxUID == "" {
		transferSyntaxUID = types.ExplicitVRLittleEndian
	}
	return Default().WriteDataset(ds, transferSyntaxUID, WriteOptions{})
}

// EncodeDataset encodes a dataset as Explicit VR Little Endian.
func EncodeDataset(ds *Dataset) ([]byte, error) {
	return EncodeDatasetWithTransferSyntax(ds, types.ExplicitVRLittleEndian)
}

func (w *writer) charsetOf(ds *Dataset, inherited Charset) Charset {
	if _, ok := ds.LookupString(TagSpecificCharacterSet); !ok {
		return inherited
	}
	cs, err := DetectCharset(ds, w.env.DefaultEncoding)
	if err != nil {
		w.env.logger().Warn("Unsupported specific character set, writing ASCII",
			"value", ds.GetString(TagSpecificCharacterSet),
			"error", err)
		return Charset{Encoding: EncodingASCII}
	}
	return cs
}

// writeDataset appends the encoding of ds to out. Group lengths are kept
// only inside the meta group, where the caller recomputes them.
func (w *writer) writeDataset(out []byte, ds *Dataset, inherited Charset, keepGroupLength bool) ([]byte, error) {
	charset := w.charsetOf(ds, inherited)

	for _, tag := range ds.Tags() {
		if tag.IsGroupLength() && !keepGroupLength {
			continue
		}
		e := ds.elements[tag]
		vr := e.VR
		if vr == "" {
			vr = ds.resolveVR(w.env.Dictionary, tag)
		}

		var err error
		out, err = w.writeElement(out, e, vr, charset)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (w *writer) appendTag(out []byte, t Tag) []byte {
	out = w.order.AppendUint16(out, t.Group)
	return w.order.AppendUint16(out, t.Element)
}

func (w *writer) appendHeader(out []byte, tag Tag, vr VR, length uint32) ([]byte, error) {
	out = w.appendTag(out, tag)
	if !w.explicit {
		return w.order.AppendUint32(out, length), nil
	}

	out = append(out, vr[0], vr[1])
	if vr.IsLong() {
		out = append(out, 0, 0)
		return w.order.AppendUint32(out, length), nil
	}
	if length > math.MaxUint16 {
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange,
			"%s value of %d bytes does not fit a 16-bit length", vr, length).WithDetail(tag.String())
	}
	return w.order.AppendUint16(out, uint16(length)), nil
}

func (w *writer) writeElement(out []byte, e *Element, vr VR, charset Charset) ([]byte, error) {
	switch {
	case e.Value.IsSequence():
		return w.writeSequence(out, e.Tag, e.Value.Items(), charset)
	case e.Value.IsEncapsulated():
		return w.writeFragments(out, e.Tag, vr, e.Value.Fragments())
	}

	value, err := w.encodeValue(e, vr, charset)
	if err != nil {
		return nil, err
	}
	if len(value)%2 != 0 {
		value = append(value, PaddingFor(vr).Pad)
	}
	out, err = w.appendHeader(out, e.Tag, vr, uint32(len(value)))
	if err != nil {
		return nil, err
	}
	return append(out, value...), nil
}

func (w *writer) encodeValue(e *Element, vr VR, charset Charset) ([]byte, error) {
	v := e.Value
	switch {
	case v.IsNull():
		return nil, nil
	case vr.IsNumeric():
		return encodeNumeric(e.Tag, vr, v.String(), w.order)
	case vr.IsBinary() || v.IsBinary():
		b := v.Bytes()
		if w.order == binary.BigEndian {
			b = swapWords(b, vr.WordSize())
		}
		return b, nil
	case vr.IsCharsetDependent():
		if e.raw != nil && e.rawCharset == charset.String() &&
			charset.Decode(trimPadding(vr, e.raw), nil) == v.String() {
			return e.raw, nil
		}
		b, err := charset.Encode(v.String(), w.opts.Lossy)
		if err != nil {
			return nil, dcmerr.Wrap(dcmerr.KindOf(err), err, "cannot encode %s", e.Tag)
		}
		return b, nil
	default:
		return []byte(v.String()), nil
	}
}

func (w *writer) writeSequence(out []byte, tag Tag, items []*Dataset, charset Charset) ([]byte, error) {
	var body []byte
	for _, item := range items {
		encoded, err := w.writeDataset(nil, item, charset, false)
		if err != nil {
			return nil, err
		}
		body = w.appendTag(body, TagItem)
		body = w.order.AppendUint32(body, uint32(len(encoded)))
		body = append(body, encoded...)
	}

	out, err := w.appendHeader(out, tag, VR_SQ, uint32(len(body)))
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}

func (w *writer) writeFragments(out []byte, tag Tag, vr VR, frags [][]byte) ([]byte, error) {
	if vr != VR_OW {
		vr = VR_OB
	}
	out, err := w.appendHeader(out, tag, vr, undefinedLength)
	if err != nil {
		return nil, err
	}
	for _, f := range frags {
		out = w.appendTag(out, TagItem)
		size := len(f)
		if size%2 != 0 {
			size++
		}
		out = w.order.AppendUint32(out, uint32(size))
		out = append(out, f...)
		if size != len(f) {
			out = append(out, 0)
		}
	}
	out = w.appendTag(out, TagSequenceDelimitationItem)
	return w.order.AppendUint32(out, 0), nil
}
