package dicom

import (
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// PixelFormat is the in-memory layout of decoded pixels.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatGrayscale8
	PixelFormatGrayscale16
	PixelFormatSignedGrayscale16
	PixelFormatGrayscale32
	PixelFormatRGB24
	PixelFormatRGB48
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatGrayscale8:
		return "Grayscale8"
	case PixelFormatGrayscale16:
		return "Grayscale16"
	case PixelFormatSignedGrayscale16:
		return "SignedGrayscale16"
	case PixelFormatGrayscale32:
		return "Grayscale32"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatRGB48:
		return "RGB48"
	default:
		return "Unknown"
	}
}

// BytesPerPixel is the storage size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatGrayscale8:
		return 1
	case PixelFormatGrayscale16, PixelFormatSignedGrayscale16:
		return 2
	case PixelFormatRGB24:
		return 3
	case PixelFormatGrayscale32:
		return 4
	case PixelFormatRGB48:
		return 6
	}
	return 0
}

// ImageInfo describes the pixel layout of an image dataset.
type ImageInfo struct {
	Photometric         string
	Width               int
	Height              int
	BitsAllocated       int
	BitsStored          int
	HighBit             int
	SamplesPerPixel     int
	Signed              bool
	Planar              bool
	NumberOfFrames      int
	PixelRepresentation int
}

// NewImageInfo extracts and validates the image description of ds.
func NewImageInfo(ds *Dataset) (*ImageInfo, error) {
	unsupported := func(format string, args ...any) error {
		return dcmerr.New(dcmerr.KindNotImplemented, "image not supported: "+format, args...)
	}

	info := &ImageInfo{
		Photometric: strings.ToUpper(ds.GetString(TagPhotometricInterpretation)),
	}

	read := func(tag Tag, def int) (int, error) {
		v, ok, err := ds.GetInt(tag)
		if err != nil {
			return 0, dcmerr.Wrap(dcmerr.KindNotImplemented, err, "cannot read %s", tag)
		}
		if !ok {
			return def, nil
		}
		if v < 0 {
			return 0, unsupported("negative value in %s", tag)
		}
		return v, nil
	}

	var err error
	if info.Width, err = read(TagColumns, 0); err != nil {
		return nil, err
	}
	if info.Height, err = read(TagRows, 0); err != nil {
		return nil, err
	}
	if _, ok, _ := ds.GetInt(TagBitsAllocated); !ok {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "missing BitsAllocated").WithDetail(TagBitsAllocated.String())
	}
	if info.BitsAllocated, err = read(TagBitsAllocated, 0); err != nil {
		return nil, err
	}
	if info.SamplesPerPixel, err = read(TagSamplesPerPixel, 1); err != nil {
		return nil, err
	}
	if info.BitsStored, err = read(TagBitsStored, info.BitsAllocated); err != nil {
		return nil, err
	}
	if info.BitsStored > info.BitsAllocated {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "BitsStored %d exceeds BitsAllocated %d", info.BitsStored, info.BitsAllocated)
	}
	if info.HighBit, err = read(TagHighBit, info.BitsStored-1); err != nil {
		return nil, err
	}
	if info.PixelRepresentation, err = read(TagPixelRepresentation, 0); err != nil {
		return nil, err
	}
	info.Signed = info.PixelRepresentation != 0

	planar := 0
	if info.SamplesPerPixel > 1 {
		if planar, err = read(TagPlanarConfiguration, 0); err != nil {
			return nil, err
		}
	}
	info.Planar = planar != 0

	if info.NumberOfFrames, err = read(TagNumberOfFrames, 1); err != nil {
		return nil, err
	}

	switch {
	case info.BitsAllocated != 1 && info.BitsAllocated != 8 && info.BitsAllocated != 16 &&
		info.BitsAllocated != 24 && info.BitsAllocated != 32:
		return nil, unsupported("%d bits allocated", info.BitsAllocated)
	case info.NumberOfFrames == 0:
		return nil, unsupported("no frames")
	case planar != 0 && planar != 1:
		return nil, unsupported("planar configuration is %d", planar)
	case info.SamplesPerPixel == 0:
		return nil, unsupported("samples per pixel is 0")
	}

	if info.BitsStored == 1 {
		if info.BitsAllocated != 1 {
			return nil, dcmerr.New(dcmerr.KindBadFileFormat, "one bit stored requires one bit allocated")
		}
		if info.Width%8 != 0 {
			return nil, dcmerr.New(dcmerr.KindBadFileFormat, "bad number of columns for a black-and-white image")
		}
	}
	return info, nil
}

// IsBlackAndWhite reports one bit per pixel, as in segmentations.
func (i *ImageInfo) IsBlackAndWhite() bool {
	return i.BitsStored == 1
}

// BytesPerValue is the storage size of one sample.
func (i *ImageInfo) BytesPerValue() int {
	return i.BitsAllocated / 8
}

// Shift is the bit position of the lowest stored bit.
func (i *ImageInfo) Shift() int {
	return i.HighBit + 1 - i.BitsStored
}

// FrameSize is the size in bytes of one native frame. One-bit images pack
// eight pixels per byte.
func (i *ImageInfo) FrameSize() (int, error) {
	if i.BitsAllocated == 1 {
		if i.SamplesPerPixel != 1 {
			return 0, dcmerr.New(dcmerr.KindNotImplemented, "multi-channel black-and-white image")
		}
		return (i.Height*i.Width + 7) / 8, nil
	}
	return i.Height * i.Width * i.BytesPerValue() * i.SamplesPerPixel, nil
}

// PixelFormat maps the description to an in-memory format. The second
// result is false for layouts without a matching format.
func (i *ImageInfo) PixelFormat(ignorePhotometric bool) (PixelFormat, bool) {
	mono := i.Photometric == "MONOCHROME1" || i.Photometric == "MONOCHROME2"

	if i.Photometric == "PALETTE COLOR" && i.SamplesPerPixel == 1 && !i.Signed {
		switch i.BitsStored {
		case 8:
			return PixelFormatRGB24, true
		case 16:
			return PixelFormatRGB48, true
		}
	}

	if (ignorePhotometric || mono) && i.SamplesPerPixel == 1 {
		switch {
		case i.BitsStored == 8 && !i.Signed:
			return PixelFormatGrayscale8, true
		case i.BitsAllocated == 16 && !i.Signed:
			return PixelFormatGrayscale16, true
		case i.BitsAllocated == 16 && i.Signed:
			return PixelFormatSignedGrayscale16, true
		case i.BitsAllocated == 32 && !i.Signed:
			return PixelFormatGrayscale32, true
		case i.BitsStored == 1 && !i.Signed:
			return PixelFormatGrayscale8, true
		}
	}

	if i.SamplesPerPixel == 3 && !i.Signed && (ignorePhotometric || i.Photometric == "RGB") {
		switch i.BitsStored {
		case 8:
			return PixelFormatRGB24, true
		case 16:
			return PixelFormatRGB48, true
		}
	}
	return PixelFormatUnknown, false
}
