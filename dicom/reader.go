package dicom

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"
	"log/slog"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

const undefinedLength = 0xFFFFFFFF

// ReadOptions tune dataset decoding.
type ReadOptions struct {
	// StopBeforePixelData ends the top-level dataset at (7FE0,0010).
	StopBeforePixelData bool
}

type reader struct {
	env      *Environment
	logger   *slog.Logger
	data     []byte
	order    byteOrder
	explicit bool
	opts     ReadOptions
}

type syntaxLayout struct {
	explicit  bool
	bigEndian bool
	deflated  bool
}

// layoutOf returns how datasets of a transfer syntax are laid out on the wire.
func layoutOf(transferSyntax string) (syntaxLayout, error) {
	info, ok := types.LookupTransferSyntax(transferSyntax)
	if !ok {
		return syntaxLayout{}, dcmerr.New(dcmerr.KindNotImplemented, "unsupported transfer syntax").WithDetail(transferSyntax)
	}
	return syntaxLayout{explicit: info.ExplicitVR, bigEndian: info.BigEndian, deflated: info.Deflated}, nil
}

// ReadDataset decodes a dataset without File Meta Information.
func (env *Environment) ReadDataset(data []byte, transferSyntax string, opts ReadOptions) (*Dataset, error) {
	layout, err := layoutOf(transferSyntax)
	if err != nil {
		return nil, err
	}

	if layout.deflated {
		inflated, err := io.ReadAll(flate.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, dcmerr.Wrap(dcmerr.KindCorruptedFile, err, "cannot inflate dataset")
		}
		data = inflated
	}

	r := &reader{
		env:      env,
		logger:   env.logger(),
		data:     data,
		order:    binary.LittleEndian,
		explicit: layout.explicit,
		opts:     opts,
	}
	if layout.bigEndian {
		r.order = binary.BigEndian
	}

	charset := Charset{Encoding: env.DefaultEncoding}
	ds, _, err := r.readDataset(0, len(data), false, charset, true)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Common transfer syntax UIDs
const (
	TransferSyntaxImplicitVRLittleEndian = types.ImplicitVRLittleEndian
	TransferSyntaxExplicitVRLittleEndian = types.ExplicitVRLittleEndian
)

// ParseDataset parses an Explicit VR Little Endian dataset with the default environment.
func ParseDataset(data []byte) (*Dataset, error) {
	return Default().ReadDataset(data, types.ExplicitVRLittleEndian, ReadOptions{})
}

// ParseDatasetWithTransferSyntax parses a dataset using the provided transfer syntax.
// An empty syntax means Explicit VR Little Endian.
func ParseDatasetWithTransferSyntax(data []byte, transferSyntaxUID string) (*Dataset, error) {
	if transferSyntaxUID == "" {
		transferSyntaxUID = types.ExplicitVRLittleEndian
	}
	return Default().ReadDataset(data, transferSyntaxUID, ReadOptions{})
}

func (r *reader) truncated(pos int, what string) error {
	return dcmerr.New(dcmerr.KindBadFileFormat, "truncated %s at offset %d", what, pos)
}

func (r *reader) readTag(pos int) (Tag, error) {
	if pos+4 > len(r.data) {
		return Tag{}, r.truncated(pos, "tag")
	}
	return Tag{Group: r.order.Uint16(r.data[pos:]), Element: r.order.Uint16(r.data[pos+2:])}, nil
}

// readDataset decodes elements in [pos, end). When undefined is set the
// dataset is an item of undefined length closed by an item delimiter.
func (r *reader) readDataset(pos, end int, undefined bool, charset Charset, top bool) (*Dataset, int, error) {
	ds := NewDataset()

	for pos < end {
		tag, err := r.readTag(pos)
		if err != nil {
			return nil, pos, err
		}

		if tag == TagItemDelimitationItem {
			if !undefined {
				return nil, pos, dcmerr.New(dcmerr.KindCorruptedFile, "unexpected item delimiter at offset %d", pos)
			}
			return ds, pos + 8, nil
		}
		if top && r.opts.StopBeforePixelData && tag == TagPixelData {
			return ds, end, nil
		}

		elem, next, err := r.readElement(ds, tag, pos, end, charset)
		if err != nil {
			return nil, pos, err
		}
		ds.put(elem)
		pos = next

		if tag == TagSpecificCharacterSet {
			detected, err := DetectCharset(ds, r.env.DefaultEncoding)
			if err != nil {
				r.logger.Warn("Unsupported specific character set, falling back to ASCII",
					"value", ds.GetString(TagSpecificCharacterSet),
					"error", err)
				detected = Charset{Encoding: EncodingASCII}
			}
			charset = detected
		}
	}

	if undefined {
		return nil, pos, r.truncated(pos, "item without delimiter")
	}
	ds.version = 0
	return ds, pos, nil
}

func (r *reader) readHeader(ds *Dataset, tag Tag, pos int) (VR, uint32, int, error) {
	if !r.explicit || tag.Group == 0xFFFE {
		if pos+8 > len(r.data) {
			return "", 0, pos, r.truncated(pos, "element header")
		}
		length := r.order.Uint32(r.data[pos+4:])
		if tag.Group == 0xFFFE {
			return "", length, pos + 8, nil
		}
		return ds.resolveVR(r.env.Dictionary, tag), length, pos + 8, nil
	}

	if pos+8 > len(r.data) {
		return "", 0, pos, r.truncated(pos, "element header")
	}
	vr := VR(r.data[pos+4 : pos+6])
	if !vr.IsValid() {
		return "", 0, pos, dcmerr.New(dcmerr.KindBadFileFormat, "invalid VR %q", string(vr)).WithDetail(tag.String())
	}
	if vr.IsLong() {
		if pos+12 > len(r.data) {
			return "", 0, pos, r.truncated(pos, "element header")
		}
		return vr, r.order.Uint32(r.data[pos+8:]), pos + 12, nil
	}
	return vr, uint32(r.order.Uint16(r.data[pos+6:])), pos + 8, nil
}

func (r *reader) readElement(ds *Dataset, tag Tag, pos, end int, charset Charset) (*Element, int, error) {
	vr, length, valuePos, err := r.readHeader(ds, tag, pos)
	if err != nil {
		return nil, pos, err
	}

	if length == undefinedLength {
		switch {
		case tag == TagPixelData:
			frags, next, err := r.readFragments(valuePos, end)
			if err != nil {
				return nil, pos, err
			}
			if vr != VR_OW {
				vr = VR_OB
			}
			return &Element{Tag: tag, VR: vr, Value: EncapsulatedValue(frags)}, next, nil
		case vr == VR_UN && r.explicit:
			// PS3.5 6.2.2: an UN sequence of undefined length is encoded in implicit VR LE
			sub := &reader{env: r.env, logger: r.logger, data: r.data, order: binary.LittleEndian, explicit: false}
			items, next, err := sub.readItems(valuePos, end, true, charset)
			if err != nil {
				return nil, pos, err
			}
			return &Element{Tag: tag, VR: VR_SQ, Value: SequenceValue(items...)}, next, nil
		default:
			items, next, err := r.readItems(valuePos, end, true, charset)
			if err != nil {
				return nil, pos, err
			}
			return &Element{Tag: tag, VR: VR_SQ, Value: SequenceValue(items...)}, next, nil
		}
	}

	valueEnd := valuePos + int(length)
	if int(length) < 0 || valueEnd > end {
		return nil, pos, dcmerr.New(dcmerr.KindBadFileFormat, "value of %d bytes overruns the dataset", length).WithDetail(tag.String())
	}

	if vr == VR_SQ {
		items, _, err := r.readItems(valuePos, valueEnd, false, charset)
		if err != nil {
			return nil, pos, err
		}
		return &Element{Tag: tag, VR: VR_SQ, Value: SequenceValue(items...)}, valueEnd, nil
	}

	raw := r.data[valuePos:valueEnd]
	elem, err := r.decodeValue(tag, vr, raw, charset)
	if err != nil {
		return nil, pos, err
	}
	return elem, valueEnd, nil
}

func (r *reader) decodeValue(tag Tag, vr VR, raw []byte, charset Charset) (*Element, error) {
	if err := validateRaw(tag, vr, raw); err != nil {
		return nil, err
	}

	elem := &Element{Tag: tag, VR: vr}
	switch {
	case len(raw) == 0:
		elem.Value = NullValue()
		if vr.IsBinary() {
			elem.Value = BinaryValue(nil)
		}
	case vr.IsNumeric():
		elem.Value = StringValue(decodeNumeric(vr, raw, r.order))
	case vr.IsBinary():
		b := raw
		if r.order == binary.BigEndian {
			b = swapWords(raw, vr.WordSize())
		} else {
			b = append([]byte(nil), raw...)
		}
		elem.Value = BinaryValue(b)
	case vr.IsCharsetDependent():
		trimmed := trimPadding(vr, raw)
		elem.Value = StringValue(charset.Decode(trimmed, r.logger))
		elem.raw = append([]byte(nil), raw...)
		elem.rawCharset = charset.String()
	default:
		elem.Value = StringValue(string(trimPadding(vr, raw)))
	}
	return elem, nil
}

// readItems decodes sequence items until end (defined length) or the
// sequence delimiter (undefined length).
func (r *reader) readItems(pos, end int, undefined bool, charset Charset) ([]*Dataset, int, error) {
	var items []*Dataset
	for pos < end {
		tag, err := r.readTag(pos)
		if err != nil {
			return nil, pos, err
		}
		if pos+8 > len(r.data) {
			return nil, pos, r.truncated(pos, "item header")
		}
		length := r.order.Uint32(r.data[pos+4:])

		switch tag {
		case TagSequenceDelimitationItem:
			if !undefined {
				return nil, pos, dcmerr.New(dcmerr.KindCorruptedFile, "unexpected sequence delimiter at offset %d", pos)
			}
			return items, pos + 8, nil
		case TagItem:
		default:
			return nil, pos, dcmerr.New(dcmerr.KindBadFileFormat, "expected item, found %s", tag)
		}

		pos += 8
		var item *Dataset
		if length == undefinedLength {
			item, pos, err = r.readDataset(pos, end, true, charset, false)
		} else {
			itemEnd := pos + int(length)
			if itemEnd > end {
				return nil, pos, dcmerr.New(dcmerr.KindBadFileFormat, "item of %d bytes overruns its sequence", length)
			}
			item, _, err = r.readDataset(pos, itemEnd, false, charset, false)
			pos = itemEnd
		}
		if err != nil {
			return nil, pos, err
		}
		items = append(items, item)
	}

	if undefined {
		return nil, pos, r.truncated(pos, "sequence without delimiter")
	}
	if items == nil {
		items = []*Dataset{}
	}
	return items, pos, nil
}

// readFragments decodes encapsulated pixel data: the Basic Offset Table
// followed by fragments, closed by a sequence delimiter.
func (r *reader) readFragments(pos, end int) ([][]byte, int, error) {
	var frags [][]byte
	for pos < end {
		tag, err := r.readTag(pos)
		if err != nil {
			return nil, pos, err
		}
		if pos+8 > len(r.data) {
			return nil, pos, r.truncated(pos, "fragment header")
		}
		length := int(r.order.Uint32(r.data[pos+4:]))
		pos += 8

		switch tag {
		case TagSequenceDelimitationItem:
			if len(frags) == 0 {
				frags = [][]byte{{}}
			}
			return frags, pos, nil
		case TagItem:
		default:
			return nil, pos, dcmerr.New(dcmerr.KindBadFileFormat, "expected pixel data fragment, found %s", tag)
		}

		if length < 0 || pos+length > end {
			return nil, pos, dcmerr.New(dcmerr.KindBadFileFormat, "fragment of %d bytes overruns the dataset", length)
		}
		frags = append(frags, append([]byte(nil), r.data[pos:pos+length]...))
		pos += length
	}
	return nil, pos, r.truncated(pos, "encapsulated pixel data without delimiter")
}
