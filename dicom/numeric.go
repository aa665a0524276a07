package dicom

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// byteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// decodeNumeric renders fixed-size binary numbers as backslash-separated text.
func decodeNumeric(vr VR, b []byte, order binary.ByteOrder) string {
	var parts []string
	switch vr {
	case VR_US:
		for i := 0; i+2 <= len(b); i += 2 {
			parts = append(parts, strconv.FormatUint(uint64(order.Uint16(b[i:])), 10))
		}
	case VR_SS:
		for i := 0; i+2 <= len(b); i += 2 {
			parts = append(parts, strconv.FormatInt(int64(int16(order.Uint16(b[i:]))), 10))
		}
	case VR_UL:
		for i := 0; i+4 <= len(b); i += 4 {
			parts = append(parts, strconv.FormatUint(uint64(order.Uint32(b[i:])), 10))
		}
	case VR_SL:
		for i := 0; i+4 <= len(b); i += 4 {
			parts = append(parts, strconv.FormatInt(int64(int32(order.Uint32(b[i:]))), 10))
		}
	case VR_UV:
		for i := 0; i+8 <= len(b); i += 8 {
			parts = append(parts, strconv.FormatUint(order.Uint64(b[i:]), 10))
		}
	case VR_SV:
		for i := 0; i+8 <= len(b); i += 8 {
			parts = append(parts, strconv.FormatInt(int64(order.Uint64(b[i:])), 10))
		}
	case VR_FL:
		for i := 0; i+4 <= len(b); i += 4 {
			f := math.Float32frombits(order.Uint32(b[i:]))
			parts = append(parts, strconv.FormatFloat(float64(f), 'g', -1, 32))
		}
	case VR_FD:
		for i := 0; i+8 <= len(b); i += 8 {
			f := math.Float64frombits(order.Uint64(b[i:]))
			parts = append(parts, strconv.FormatFloat(f, 'g', -1, 64))
		}
	case VR_AT:
		for i := 0; i+4 <= len(b); i += 4 {
			t := Tag{Group: order.Uint16(b[i:]), Element: order.Uint16(b[i+2:])}
			parts = append(parts, t.Format())
		}
	}
	return strings.Join(parts, `\`)
}

// encodeNumeric is the inverse of decodeNumeric.
func encodeNumeric(tag Tag, vr VR, s string, order byteOrder) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []byte{}, nil
	}

	bad := func(part string) error {
		return dcmerr.New(dcmerr.KindBadParameterType, "invalid %s value %q", vr, part).WithDetail(tag.String())
	}

	var out []byte
	for _, part := range strings.Split(s, `\`) {
		part = strings.TrimSpace(part)
		switch vr {
		case VR_US:
			v, err := strconv.ParseUint(part, 10, 16)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint16(out, uint16(v))
		case VR_SS:
			v, err := strconv.ParseInt(part, 10, 16)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint16(out, uint16(int16(v)))
		case VR_UL:
			v, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint32(out, uint32(v))
		case VR_SL:
			v, err := strconv.ParseInt(part, 10, 32)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint32(out, uint32(int32(v)))
		case VR_UV:
			v, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint64(out, v)
		case VR_SV:
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint64(out, uint64(v))
		case VR_FL:
			v, err := strconv.ParseFloat(part, 32)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint32(out, math.Float32bits(float32(v)))
		case VR_FD:
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, bad(part)
			}
			out = order.AppendUint64(out, math.Float64bits(v))
		case VR_AT:
			t, ok := parseHexTag(part)
			if !ok {
				return nil, bad(part)
			}
			out = order.AppendUint16(out, t.Group)
			out = order.AppendUint16(out, t.Element)
		default:
			return nil, bad(part)
		}
	}
	return out, nil
}

// swapWords converts between little and big endian for word-sized data.
func swapWords(b []byte, word int) []byte {
	if word <= 1 {
		return b
	}
	out := make([]byte, len(b))
	copy(out, b)
	for i := 0; i+word <= len(out); i += word {
		for j := 0; j < word/2; j++ {
			out[i+j], out[i+word-1-j] = out[i+word-1-j], out[i+j]
		}
	}
	return out
}
