package imaging

import (
	"encoding/binary"
	"image"
	"image/color"
	"log/slog"
	"strconv"

	"golang.org/x/image/draw"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// PixelData is one uncompressed frame with the attributes describing it.
// Samples are little-endian and color channels are interleaved.
type PixelData struct {
	Width           int
	Height          int
	SamplesPerPixel int
	BitsAllocated   int
	Signed          bool
	Data            []byte
}

// Format returns the in-memory pixel format of p.
func (p *PixelData) Format() dicom.PixelFormat {
	switch {
	case p.SamplesPerPixel == 3 && p.BitsAllocated == 8:
		return dicom.PixelFormatRGB24
	case p.SamplesPerPixel == 3 && p.BitsAllocated == 16:
		return dicom.PixelFormatRGB48
	case p.BitsAllocated == 8:
		return dicom.PixelFormatGrayscale8
	case p.Signed:
		return dicom.PixelFormatSignedGrayscale16
	default:
		return dicom.PixelFormatGrayscale16
	}
}

type opaquer interface {
	Opaque() bool
}

// FromImage converts img to pixel data. Grayscale images keep their depth;
// every other model becomes 8-bit or 16-bit RGB. The alpha channel is
// dropped, with a warning when the image is not opaque.
func FromImage(img image.Image, logger *slog.Logger) (*PixelData, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "empty image")
	}

	if o, ok := img.(opaquer); ok && !o.Opaque() {
		logger.Warn("Getting rid of the alpha channel when embedding an image inside DICOM")
	}

	p := &PixelData{Width: w, Height: h}

	switch src := img.(type) {
	case *image.Gray:
		p.SamplesPerPixel, p.BitsAllocated = 1, 8
		p.Data = make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			p.Data = append(p.Data, src.Pix[off:off+w]...)
		}

	case *image.Gray16:
		p.SamplesPerPixel, p.BitsAllocated = 1, 16
		p.Data = make([]byte, 0, 2*w*h)
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				// image.Gray16 stores big-endian samples
				p.Data = append(p.Data, src.Pix[off+2*x+1], src.Pix[off+2*x])
			}
		}

	case *image.RGBA64, *image.NRGBA64:
		p.SamplesPerPixel, p.BitsAllocated = 3, 16
		p.Data = make([]byte, 0, 6*w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBA64Model.Convert(src.At(x, y)).(color.NRGBA64)
				p.Data = binary.LittleEndian.AppendUint16(p.Data, c.R)
				p.Data = binary.LittleEndian.AppendUint16(p.Data, c.G)
				p.Data = binary.LittleEndian.AppendUint16(p.Data, c.B)
			}
		}

	default:
		p.SamplesPerPixel, p.BitsAllocated = 3, 8

		var pix []byte
		var stride int
		switch src := img.(type) {
		case *image.NRGBA:
			pix, stride = src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride
		case *image.RGBA:
			pix, stride = src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride
		default:
			rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
			draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
			pix, stride = rgba.Pix, rgba.Stride
		}

		p.Data = make([]byte, 0, 3*w*h)
		for y := 0; y < h; y++ {
			row := pix[y*stride:]
			for x := 0; x < w; x++ {
				p.Data = append(p.Data, row[4*x], row[4*x+1], row[4*x+2])
			}
		}
	}
	return p, nil
}

// Embed writes the image attributes and PixelData into ds. A grayscale
// image keeps an existing PhotometricInterpretation and defaults to
// MONOCHROME2; NumberOfFrames is removed since the result has one frame.
func (p *PixelData) Embed(ds *dicom.Dataset) {
	set := func(tag dicom.Tag, vr dicom.VR, v int) {
		ds.AddElement(tag, vr, dicom.StringValue(strconv.Itoa(v)))
	}

	ds.Remove(dicom.TagPixelData)
	ds.Remove(dicom.TagNumberOfFrames)
	set(dicom.TagColumns, dicom.VR_US, p.Width)
	set(dicom.TagRows, dicom.VR_US, p.Height)
	set(dicom.TagSamplesPerPixel, dicom.VR_US, p.SamplesPerPixel)
	set(dicom.TagBitsAllocated, dicom.VR_US, p.BitsAllocated)
	set(dicom.TagBitsStored, dicom.VR_US, p.BitsAllocated)
	set(dicom.TagHighBit, dicom.VR_US, p.BitsAllocated-1)

	representation := 0
	if p.Signed {
		representation = 1
	}
	set(dicom.TagPixelRepresentation, dicom.VR_US, representation)

	if p.SamplesPerPixel == 3 {
		ds.AddElement(dicom.TagPhotometricInterpretation, dicom.VR_CS, dicom.StringValue("RGB"))
		set(dicom.TagPlanarConfiguration, dicom.VR_US, 0)
	} else {
		ds.Remove(dicom.TagPlanarConfiguration)
		if !ds.Has(dicom.TagPhotometricInterpretation) {
			ds.AddElement(dicom.TagPhotometricInterpretation, dicom.VR_CS, dicom.StringValue("MONOCHROME2"))
		}
	}

	vr := dicom.VR_OB
	if p.BitsAllocated > 8 {
		vr = dicom.VR_OW
	}
	ds.AddElement(dicom.TagPixelData, vr, dicom.BinaryValue(p.Data))
}

// ToImage wraps one native frame as a Go image. Signed 16-bit samples are
// shifted into the unsigned range; planar color frames are interleaved.
func ToImage(info *dicom.ImageInfo, frame []byte) (image.Image, error) {
	format, ok := info.PixelFormat(true)
	if !ok {
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "no image model for %d samples of %d bits (%s)",
			info.SamplesPerPixel, info.BitsAllocated, info.Photometric)
	}
	if info.IsBlackAndWhite() {
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "one-bit images cannot be converted")
	}

	w, h := info.Width, info.Height
	need := w * h * format.BytesPerPixel()
	if len(frame) < need {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "frame holds %d bytes, %d expected", len(frame), need)
	}
	if info.Planar && info.SamplesPerPixel == 3 {
		frame = Interleave(frame[:need], w*h, 3, format.BytesPerPixel()/3)
	}
	rect := image.Rect(0, 0, w, h)

	switch format {
	case dicom.PixelFormatGrayscale8:
		img := image.NewGray(rect)
		copy(img.Pix, frame)
		return img, nil

	case dicom.PixelFormatGrayscale16, dicom.PixelFormatSignedGrayscale16:
		img := image.NewGray16(rect)
		for i := 0; i < w*h; i++ {
			v := binary.LittleEndian.Uint16(frame[2*i:])
			if format == dicom.PixelFormatSignedGrayscale16 {
				v ^= 0x8000
			}
			binary.BigEndian.PutUint16(img.Pix[2*i:], v)
		}
		return img, nil

	case dicom.PixelFormatRGB24:
		img := image.NewRGBA(rect)
		for i := 0; i < w*h; i++ {
			copy(img.Pix[4*i:4*i+3], frame[3*i:3*i+3])
			img.Pix[4*i+3] = 0xff
		}
		return img, nil

	case dicom.PixelFormatRGB48:
		img := image.NewRGBA64(rect)
		for i := 0; i < w*h; i++ {
			for c := 0; c < 3; c++ {
				v := binary.LittleEndian.Uint16(frame[6*i+2*c:])
				binary.BigEndian.PutUint16(img.Pix[8*i+2*c:], v)
			}
			img.Pix[8*i+6], img.Pix[8*i+7] = 0xff, 0xff
		}
		return img, nil
	}
	return nil, dcmerr.New(dcmerr.KindNotImplemented, "unsupported pixel format %s", format)
}

// Interleave converts a color-by-plane buffer of the given number of
// pixels into color-by-pixel order.
func Interleave(planar []byte, pixels, samples, sampleSize int) []byte {
	out := make([]byte, len(planar))
	plane := pixels * sampleSize
	for i := 0; i < pixels; i++ {
		for c := 0; c < samples; c++ {
			copy(out[(samples*i+c)*sampleSize:], planar[c*plane+i*sampleSize:c*plane+(i+1)*sampleSize])
		}
	}
	return out
}
