package transcoder

import (
	"github.com/cocosip/go-dicom-codec/jpeg/baseline"
	"github.com/cocosip/go-dicom-codec/jpeg/extended"
	jpeglossless "github.com/cocosip/go-dicom-codec/jpeg/lossless"
	"github.com/cocosip/go-dicom-codec/jpeg/lossless14sv1"
	"github.com/cocosip/go-dicom-codec/jpeg2000"
	jlslossless "github.com/cocosip/go-dicom-codec/jpegls/lossless"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// decoded is the output of a go-dicom-codec decoder. A zero bitDepth
// means the decoder does not report it.
type decoded struct {
	pixels                              []byte
	width, height, components, bitDepth int
}

// FrameCodec adapts the frame buffer encoders and decoders of
// go-dicom-codec to ImageCodec. Samples are exchanged little endian and
// interleaved, as in native pixel data. A nil encode makes the codec
// decode only.
type FrameCodec struct {
	Name string

	// Lossy codecs accept 8-bit samples, and 12-bit ones when Extended
	// is set. Color frames are stored as YBR_FULL_422.
	Lossy    bool
	Extended bool

	encode func(frame []byte, info *dicom.ImageInfo, bitDepth, quality int) ([]byte, error)
	decode func(frame []byte) (*decoded, error)
}

var _ interfaces.ImageCodec = (*FrameCodec)(nil)

// BuiltinCodecs returns the codecs registered by New, keyed by transfer
// syntax UID.
func BuiltinCodecs() map[string]interfaces.ImageCodec {
	return map[string]interfaces.ImageCodec{
		types.RLELossless:       RLECodec{},
		types.JPEGBaseline8Bit:  NewBaselineCodec(),
		types.JPEGExtended12Bit: NewExtendedCodec(),
		types.JPEGLossless:      NewLosslessCodec(6),
		types.JPEGLosslessSV1:   NewLosslessSV1Codec(),
		types.JPEGLSLossless:    NewJPEGLSCodec(),
		types.JPEG2000Lossless:  NewJPEG2000Codec(true),
		types.JPEG2000:          NewJPEG2000Codec(false),
	}
}

// NewBaselineCodec handles JPEG baseline (process 1).
func NewBaselineCodec() *FrameCodec {
	return &FrameCodec{
		Name:  "JPEG baseline",
		Lossy: true,
		encode: func(frame []byte, info *dicom.ImageInfo, _, quality int) ([]byte, error) {
			return baseline.Encode(frame, info.Width, info.Height, info.SamplesPerPixel, quality)
		},
		decode: func(frame []byte) (*decoded, error) {
			pixels, w, h, c, err := baseline.Decode(frame)
			if err != nil {
				return nil, err
			}
			return &decoded{pixels: pixels, width: w, height: h, components: c, bitDepth: 8}, nil
		},
	}
}

// NewExtendedCodec handles JPEG extended (processes 2 and 4).
func NewExtendedCodec() *FrameCodec {
	return &FrameCodec{
		Name:     "JPEG extended",
		Lossy:    true,
		Extended: true,
		encode: func(frame []byte, info *dicom.ImageInfo, bitDepth, quality int) ([]byte, error) {
			return extended.Encode(frame, info.Width, info.Height, info.SamplesPerPixel, bitDepth, quality)
		},
		decode: func(frame []byte) (*decoded, error) {
			pixels, w, h, c, bits, err := extended.Decode(frame)
			if err != nil {
				return nil, err
			}
			return &decoded{pixels: pixels, width: w, height: h, components: c, bitDepth: bits}, nil
		},
	}
}

// NewLosslessCodec handles JPEG lossless, non-hierarchical (process 14)
// and encodes with the given selection value, 1 to 7. Decoding accepts
// any predictor.
func NewLosslessCodec(predictor int) *FrameCodec {
	return &FrameCodec{
		Name: "JPEG lossless",
		encode: func(frame []byte, info *dicom.ImageInfo, bitDepth, _ int) ([]byte, error) {
			if predictor < 1 || predictor > 7 {
				return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "JPEG lossless predictor %d", predictor)
			}
			return jpeglossless.Encode(frame, info.Width, info.Height, info.SamplesPerPixel, bitDepth, predictor)
		},
		decode: func(frame []byte) (*decoded, error) {
			pixels, w, h, c, bits, err := jpeglossless.Decode(frame)
			if err != nil {
				return nil, err
			}
			return &decoded{pixels: pixels, width: w, height: h, components: c, bitDepth: bits}, nil
		},
	}
}

// NewLosslessSV1Codec handles JPEG lossless with selection value 1.
func NewLosslessSV1Codec() *FrameCodec {
	return &FrameCodec{
		Name: "JPEG lossless SV1",
		encode: func(frame []byte, info *dicom.ImageInfo, bitDepth, _ int) ([]byte, error) {
			return lossless14sv1.Encode(frame, info.Width, info.Height, info.SamplesPerPixel, bitDepth)
		},
		decode: func(frame []byte) (*decoded, error) {
			pixels, w, h, c, bits, err := lossless14sv1.Decode(frame)
			if err != nil {
				return nil, err
			}
			return &decoded{pixels: pixels, width: w, height: h, components: c, bitDepth: bits}, nil
		},
	}
}

// NewJPEGLSCodec handles lossless JPEG-LS.
func NewJPEGLSCodec() *FrameCodec {
	return &FrameCodec{
		Name: "JPEG-LS lossless",
		encode: func(frame []byte, info *dicom.ImageInfo, bitDepth, _ int) ([]byte, error) {
			return jlslossless.Encode(frame, info.Width, info.Height, info.SamplesPerPixel, bitDepth)
		},
		decode: func(frame []byte) (*decoded, error) {
			pixels, w, h, c, bits, err := jlslossless.Decode(frame)
			if err != nil {
				return nil, err
			}
			return &decoded{pixels: pixels, width: w, height: h, components: c, bitDepth: bits}, nil
		},
	}
}

// NewJPEG2000Codec handles JPEG 2000. Only the lossless (reversible)
// variant encodes; the irreversible one is decoded only.
func NewJPEG2000Codec(reversible bool) *FrameCodec {
	c := &FrameCodec{
		Name: "JPEG 2000",
		decode: func(frame []byte) (*decoded, error) {
			dec := jpeg2000.NewDecoder()
			if err := dec.Decode(frame); err != nil {
				return nil, err
			}
			return &decoded{
				pixels:     dec.GetPixelData(),
				width:      dec.Width(),
				height:     dec.Height(),
				components: dec.Components(),
				bitDepth:   dec.BitDepth(),
			}, nil
		},
	}
	if reversible {
		c.Name = "JPEG 2000 lossless"
		c.encode = func(frame []byte, info *dicom.ImageInfo, bitDepth, _ int) ([]byte, error) {
			params := jpeg2000.DefaultEncodeParams(info.Width, info.Height, info.SamplesPerPixel, bitDepth, false)
			return jpeg2000.NewEncoder(params).Encode(frame)
		}
	}
	return c
}

// precision returns the bit depth handed to the encoder. Samples are
// encoded as unsigned bit patterns, so signed samples use the whole
// allocated width.
func (c *FrameCodec) precision(info *dicom.ImageInfo) (int, error) {
	switch {
	case c.Lossy && !c.Extended && (info.BitsAllocated != 8 || info.BitsStored != 8):
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s requires 8-bit samples, got %d bits stored", c.Name, info.BitsStored)
	case c.Lossy && info.BitsStored > 12:
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s with %d bits stored", c.Name, info.BitsStored)
	case c.Lossy && info.Signed:
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s of signed samples", c.Name)
	case info.BitsAllocated != 8 && info.BitsAllocated != 16:
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s with %d bits allocated", c.Name, info.BitsAllocated)
	case info.BitsStored < 2 || info.BitsStored > info.BitsAllocated:
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s with %d bits stored", c.Name, info.BitsStored)
	case info.Shift() != 0:
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s with high bit %d", c.Name, info.HighBit)
	case info.SamplesPerPixel != 1 && info.SamplesPerPixel != 3:
		return 0, dcmerr.New(dcmerr.KindNotImplemented, "%s with %d samples per pixel", c.Name, info.SamplesPerPixel)
	}
	if info.Signed {
		return info.BitsAllocated, nil
	}
	return info.BitsStored, nil
}

// encodedPhotometric is the photometric interpretation of the compressed
// frame, or "" when it is unchanged.
func (c *FrameCodec) encodedPhotometric(info *dicom.ImageInfo) (string, error) {
	if !c.Lossy {
		return "", nil
	}
	switch {
	case info.SamplesPerPixel == 1 && (info.Photometric == "MONOCHROME1" || info.Photometric == "MONOCHROME2"):
		return "", nil
	case info.SamplesPerPixel == 3 && info.Photometric == "RGB":
		return "YBR_FULL_422", nil
	}
	return "", dcmerr.New(dcmerr.KindNotImplemented, "%s of %s images", c.Name, info.Photometric)
}

// Encode compresses one native frame.
func (c *FrameCodec) Encode(frame []byte, info *dicom.ImageInfo, quality int) (*interfaces.CodedFrame, error) {
	if c.encode == nil {
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "%s encoding", c.Name)
	}
	bitDepth, err := c.precision(info)
	if err != nil {
		return nil, err
	}
	photometric, err := c.encodedPhotometric(info)
	if err != nil {
		return nil, err
	}
	size, err := info.FrameSize()
	if err != nil {
		return nil, err
	}
	if len(frame) != size {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "frame of %d bytes, expected %d", len(frame), size)
	}
	if !info.Signed && info.BitsStored < info.BitsAllocated {
		frame = maskSamples(frame, info)
	}

	data, err := c.encode(frame, info, bitDepth, quality)
	if err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindNotImplemented, err, "cannot encode frame with %s", c.Name)
	}
	return &interfaces.CodedFrame{Data: data, Photometric: photometric}, nil
}

// Decode returns the native samples of one compressed frame. Color frames
// of the lossy and JPEG 2000 codecs come back as RGB.
func (c *FrameCodec) Decode(frame []byte, info *dicom.ImageInfo) (*interfaces.CodedFrame, error) {
	out, err := c.decode(frame)
	if err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindBadFileFormat, err, "cannot decode %s frame", c.Name)
	}
	if out.width != info.Width || out.height != info.Height {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "%s frame of %dx%d in a %dx%d image",
			c.Name, out.width, out.height, info.Width, info.Height)
	}
	if out.components != info.SamplesPerPixel {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "%s frame with %d components in an image with %d samples per pixel",
			c.Name, out.components, info.SamplesPerPixel)
	}

	pixels := out.pixels
	samples := info.Width * info.Height * info.SamplesPerPixel
	if info.BytesPerValue() == 2 && len(pixels) == samples {
		pixels = widenSamples(pixels)
	}
	if len(pixels) != samples*info.BytesPerValue() {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "%s frame decoded to %d bytes, expected %d",
			c.Name, len(pixels), samples*info.BytesPerValue())
	}

	result := &interfaces.CodedFrame{Data: pixels}
	if info.SamplesPerPixel == 3 {
		switch info.Photometric {
		case "YBR_FULL", "YBR_FULL_422", "YBR_ICT", "YBR_RCT":
			result.Photometric = "RGB"
		}
	}
	return result, nil
}

// maskSamples clears the bits above BitsStored of each sample.
func maskSamples(frame []byte, info *dicom.ImageInfo) []byte {
	out := make([]byte, len(frame))
	if info.BitsAllocated == 8 {
		mask := byte(1<<info.BitsStored - 1)
		for i, v := range frame {
			out[i] = v & mask
		}
		return out
	}
	mask := uint16(1<<info.BitsStored - 1)
	for i := 0; i+1 < len(frame); i += 2 {
		v := (uint16(frame[i]) | uint16(frame[i+1])<<8) & mask
		out[i], out[i+1] = byte(v), byte(v>>8)
	}
	return out
}

// widenSamples stores 8-bit decoder output in 16-bit little endian words.
func widenSamples(pixels []byte) []byte {
	out := make([]byte, 2*len(pixels))
	for i, v := range pixels {
		out[2*i] = v
	}
	return out
}
