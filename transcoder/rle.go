package transcoder

import (
	"encoding/binary"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
)

const (
	rleHeaderSize  = 64
	rleMaxSegments = 15
)

// RLECodec implements RLE Lossless (PS3.5 Annex G). Each byte plane of
// each sample is a PackBits segment, most significant byte first.
type RLECodec struct{}

var _ interfaces.ImageCodec = RLECodec{}

func rleLayout(info *dicom.ImageInfo) (pixels, bytesPerSample, segments int, err error) {
	switch info.BitsAllocated {
	case 8, 16, 32:
	default:
		return 0, 0, 0, dcmerr.New(dcmerr.KindNotImplemented, "RLE with %d bits allocated", info.BitsAllocated)
	}
	bytesPerSample = info.BitsAllocated / 8
	segments = bytesPerSample * info.SamplesPerPixel
	if segments > rleMaxSegments {
		return 0, 0, 0, dcmerr.New(dcmerr.KindNotImplemented, "RLE cannot hold %d segments", segments)
	}
	return info.Width * info.Height, bytesPerSample, segments, nil
}

// Encode compresses a native frame row by row.
func (RLECodec) Encode(frame []byte, info *dicom.ImageInfo, _ int) (*interfaces.CodedFrame, error) {
	pixels, bps, segments, err := rleLayout(info)
	if err != nil {
		return nil, err
	}
	samples := info.SamplesPerPixel
	if len(frame) < pixels*samples*bps {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "frame holds %d bytes, %d expected", len(frame), pixels*samples*bps)
	}

	out := make([]byte, rleHeaderSize, rleHeaderSize+len(frame))
	binary.LittleEndian.PutUint32(out, uint32(segments))

	plane := make([]byte, pixels)
	segment := 0
	for s := 0; s < samples; s++ {
		for b := bps - 1; b >= 0; b-- {
			for p := range plane {
				plane[p] = frame[(p*samples+s)*bps+b]
			}

			binary.LittleEndian.PutUint32(out[4+4*segment:], uint32(len(out)))
			for row := 0; row < info.Height; row++ {
				out = packBits(out, plane[row*info.Width:(row+1)*info.Width])
			}
			if len(out)%2 != 0 {
				out = append(out, 0)
			}
			segment++
		}
	}
	return &interfaces.CodedFrame{Data: out}, nil
}

// Decode expands the segments of an RLE frame into interleaved samples.
func (RLECodec) Decode(frame []byte, info *dicom.ImageInfo) (*interfaces.CodedFrame, error) {
	pixels, bps, segments, err := rleLayout(info)
	if err != nil {
		return nil, err
	}
	if len(frame) < rleHeaderSize {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "RLE frame of %d bytes has no header", len(frame))
	}

	count := int(binary.LittleEndian.Uint32(frame))
	if count != segments {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "RLE frame has %d segments, %d expected", count, segments)
	}
	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(frame[4+4*i:]))
	}
	offsets[count] = len(frame)
	for i := 0; i < count; i++ {
		if offsets[i] < rleHeaderSize || offsets[i] > offsets[i+1] {
			return nil, dcmerr.New(dcmerr.KindBadFileFormat, "bad offset %d for RLE segment %d", offsets[i], i)
		}
	}

	samples := info.SamplesPerPixel
	out := make([]byte, pixels*samples*bps)
	plane := make([]byte, pixels)
	segment := 0
	for s := 0; s < samples; s++ {
		for b := bps - 1; b >= 0; b-- {
			if err := unpackBits(plane, frame[offsets[segment]:offsets[segment+1]]); err != nil {
				return nil, dcmerr.Wrap(dcmerr.KindBadFileFormat, err, "RLE segment %d", segment)
			}
			for p, v := range plane {
				out[(p*samples+s)*bps+b] = v
			}
			segment++
		}
	}
	return &interfaces.CodedFrame{Data: out}, nil
}

// packBits appends the PackBits encoding of src to dst. Runs of two or
// more equal bytes are replicated; everything else goes in literal runs
// of at most 128 bytes.
func packBits(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run >= 2 {
			dst = append(dst, uint8(257-run), src[i])
			i += run
			continue
		}

		start := i
		i++
		for i < len(src) && i-start < 128 {
			if i+1 < len(src) && src[i] == src[i+1] {
				break
			}
			i++
		}
		dst = append(dst, uint8(i-start-1))
		dst = append(dst, src[start:i]...)
	}
	return dst
}

// unpackBits fills dst from the PackBits stream src. Extra input, such
// as the padding byte of a segment, is ignored.
func unpackBits(dst, src []byte) error {
	o := 0
	for i := 0; o < len(dst) && i < len(src); {
		n := int8(src[i])
		i++
		switch {
		case n >= 0:
			count := int(n) + 1
			if i+count > len(src) {
				return dcmerr.New(dcmerr.KindCorruptedFile, "literal run past the end of the segment")
			}
			o += copy(dst[o:], src[i:i+count])
			i += count
		case n != -128:
			if i >= len(src) {
				return dcmerr.New(dcmerr.KindCorruptedFile, "replicate run past the end of the segment")
			}
			v := src[i]
			i++
			for count := 1 - int(n); count > 0 && o < len(dst); count-- {
				dst[o] = v
				o++
			}
		}
	}
	if o < len(dst) {
		return dcmerr.New(dcmerr.KindCorruptedFile, "segment decodes to %d bytes, %d expected", o, len(dst))
	}
	return nil
}
